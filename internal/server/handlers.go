package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexrange/internal/network"
	"github.com/gravitas-games/hexrange/internal/store"
	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/logger"
	"github.com/gravitas-games/hexrange/pkg/models"
	"github.com/gravitas-games/hexrange/pkg/render"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, network.ErrorPayload{Code: code, Message: message})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": s.ConnectionCount(),
	})
}

// handleRender renders the requested grid as PNG
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.requestFrom(r.URL.Query())
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	if px := req.Viewport.Width * req.Viewport.Height; px > s.config.Server.MaxPixels {
		writeError(w, http.StatusBadRequest, "image_too_large",
			"image of "+humanize.Comma(int64(px))+" pixels exceeds the limit of "+humanize.Comma(int64(s.config.Server.MaxPixels)))
		return
	}

	center, err := req.Geometry.PixelToHex(req.Point)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	key := cacheKey(req, center)
	log := logger.Log.WithFields(logrus.Fields{
		"client": clientFrom(r.Context()).Username,
		"center": center.Key(),
		"range":  req.Range,
	})

	if s.cache != nil {
		data, ok, err := s.cache.Get(r.Context(), key)
		if err != nil {
			log.WithError(err).Warn("Render cache lookup failed")
		} else if ok {
			log.Debug("Render cache hit")
			writePNG(w, data, center, -1, "HIT")
			return
		}
	}

	out, err := render.Run(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	var buf bytes.Buffer
	if err := out.Canvas.EncodePNG(&buf); err != nil {
		log.WithError(err).Error("PNG encoding failed")
		writeError(w, http.StatusInternalServerError, "encode_failed", "failed to encode image")
		return
	}
	data := buf.Bytes()

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), key, data); err != nil {
			log.WithError(err).Warn("Render cache store failed")
		}
	}
	if s.history != nil {
		rec := store.NewRecord("http", req, out, int64(len(data)), r.URL.RequestURI())
		if err := s.history.Record(rec); err != nil {
			log.WithError(err).Warn("Failed to record render")
		}
	}

	log.WithFields(logrus.Fields{
		"highlighted": out.Highlighted,
		"size":        humanize.Bytes(uint64(len(data))),
	}).Info("Rendered hex grid")
	writePNG(w, data, center, out.Highlighted, "MISS")
}

func writePNG(w http.ResponseWriter, data []byte, center hex.Axial, highlighted int, cache string) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Hex-Center", center.Key())
	if highlighted >= 0 {
		w.Header().Set("X-Hex-Highlighted", strconv.Itoa(highlighted))
	}
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Log.WithError(err).Debug("Failed to write PNG response")
	}
}

// rangeQuery resolves a range query against the configured geometry
func (s *Server) rangeQuery(p network.RangePayload) (*network.RangeResultPayload, error) {
	if err := s.checkRange(p.Range); err != nil {
		return nil, err
	}
	center, err := s.geom.PixelToHex(hex.Point{X: p.X, Y: p.Y})
	if err != nil {
		return nil, err
	}
	set, err := hex.HexesInRange(hex.RangeQuery{Center: center, Range: p.Range})
	if err != nil {
		return nil, err
	}
	return &network.RangeResultPayload{
		Center: center,
		Range:  p.Range,
		Count:  set.Len(),
		Hexes:  network.Describe(s.geom, set.Sorted()),
	}, nil
}

// ringQuery returns a ring in walk order
func (s *Server) ringQuery(p network.RingPayload) (*network.RingResultPayload, error) {
	if err := s.checkRange(p.Radius); err != nil {
		return nil, err
	}
	ring, err := hex.Ring(p.Center, p.Radius)
	if err != nil {
		return nil, err
	}
	return &network.RingResultPayload{
		Center: p.Center,
		Radius: p.Radius,
		Count:  len(ring),
		Hexes:  network.Describe(s.geom, ring),
	}, nil
}

// handleHexes lists the hexes within range of a point
func (s *Server) handleHexes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := network.RangePayload{
		X:     float64(s.config.Query.X),
		Y:     float64(s.config.Query.Y),
		Range: s.config.Query.Range,
	}
	for _, err := range []error{
		floatParam(q, &p.X, "x"),
		floatParam(q, &p.Y, "y"),
		intParam(q, &p.Range, "range", "r"),
	} {
		if err != nil {
			writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
			return
		}
	}
	res, err := s.rangeQuery(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRing lists a ring around an axial coordinate
func (s *Server) handleRing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := network.RingPayload{Radius: 1}
	if key := q.Get("key"); key != "" {
		center, err := hex.ParseKey(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
			return
		}
		p.Center = center
	}
	for _, err := range []error{
		intParam(q, &p.Center.Q, "q"),
		intParam(q, &p.Center.R, "r"),
		intParam(q, &p.Radius, "radius"),
	} {
		if err != nil {
			writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
			return
		}
	}
	res, err := s.ringQuery(p)
	if err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleHistory lists recent renders
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "render history is not configured")
		return
	}
	limit := 20
	if err := intParam(r.URL.Query(), &limit, "limit"); err != nil {
		writeError(w, http.StatusBadRequest, errorCode(err), err.Error())
		return
	}
	recs, err := s.history.Recent(limit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to read render history")
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to read history")
		return
	}
	if recs == nil {
		recs = []models.RenderRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleHistoryRecord returns one render by id
func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history_disabled", "render history is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.history.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "not_found", "no render with id "+id)
		return
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to read render record")
		writeError(w, http.StatusInternalServerError, "history_failed", "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
