package server

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexrange/internal/config"
	"github.com/gravitas-games/hexrange/internal/network"
	"github.com/gravitas-games/hexrange/internal/store"
	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/models"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	return d, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = png
	m.sets++
	return nil
}

func (m *memCache) Close() error { return nil }

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown()
	})
	return srv, ts
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, config.Default())
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Fatalf("unexpected health body %v (%v)", body, err)
	}
}

func TestRenderDefaults(t *testing.T) {
	cache := newMemCache()
	_, ts := newTestServer(t, config.Default(), WithCache(cache))

	resp, err := http.Get(ts.URL + "/render")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}
	if resp.Header.Get("X-Hex-Center") != "2:5" || resp.Header.Get("X-Hex-Highlighted") != "7" {
		t.Fatalf("unexpected headers center=%s highlighted=%s", resp.Header.Get("X-Hex-Center"), resp.Header.Get("X-Hex-Highlighted"))
	}
	if resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("expected cache miss, got %s", resp.Header.Get("X-Cache"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 400 {
		t.Fatalf("expected 400x400, got %dx%d", b.Dx(), b.Dy())
	}

	// A different point inside the same hex is served from the cache.
	resp2, err := http.Get(ts.URL + "/render?x=150&y=152")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Cache") != "HIT" {
		t.Fatalf("expected cache hit, got %s", resp2.Header.Get("X-Cache"))
	}
	if cache.sets != 1 {
		t.Fatalf("expected 1 cache store, got %d", cache.sets)
	}
}

func TestRenderOverridesAndErrors(t *testing.T) {
	_, ts := newTestServer(t, config.Default())

	resp, err := http.Get(ts.URL + "/render?w=120&h=80&x=60&y=40&range=0&orientation=flat")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	cfg, err := png.DecodeConfig(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 80 || resp.Header.Get("X-Hex-Highlighted") != "1" {
		t.Fatalf("unexpected render %dx%d highlighted=%s", cfg.Width, cfg.Height, resp.Header.Get("X-Hex-Highlighted"))
	}

	cases := map[string]string{
		"/render?sizeX=-5":          "invalid_geometry",
		"/render?range=-1":          "invalid_range",
		"/render?w=0":               "invalid_dimensions",
		"/render?x=abc":             "invalid_parameter",
		"/render?orientation=round": "invalid_parameter",
		"/render?w=100000&h=100000": "image_too_large",
	}
	for path, code := range cases {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var body network.ErrorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest || body.Code != code {
			t.Fatalf("%s: expected 400 %s, got %d %s", path, code, resp.StatusCode, body.Code)
		}
	}
}

func TestHexesAndRing(t *testing.T) {
	_, ts := newTestServer(t, config.Default())

	resp, err := http.Get(ts.URL + "/hexes?x=140&y=160&range=2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var rng network.RangeResultPayload
	if err := json.NewDecoder(resp.Body).Decode(&rng); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	resp.Body.Close()
	if rng.Center != (hex.Axial{Q: 2, R: 5}) || rng.Count != 19 || len(rng.Hexes) != 19 {
		t.Fatalf("unexpected range result center=%v count=%d", rng.Center, rng.Count)
	}

	resp, err = http.Get(ts.URL + "/ring?key=2:5&radius=3")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var ring network.RingResultPayload
	if err := json.NewDecoder(resp.Body).Decode(&ring); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	resp.Body.Close()
	if ring.Count != 18 {
		t.Fatalf("expected 18 hexes in ring 3, got %d", ring.Count)
	}
	for _, h := range ring.Hexes {
		if hex.Distance(hex.Axial{Q: 2, R: 5}, hex.Axial{Q: h.Q, R: h.R}) != 3 {
			t.Fatalf("hex %s not on ring 3", h.Key)
		}
	}

	resp, err = http.Get(ts.URL + "/ring?q=0&r=0&radius=-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative radius, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "s3cret"
	cfg.JWT.Issuer = "hexrange-test"
	srv, ts := newTestServer(t, cfg)

	get := func(token string) int {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/hexes", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := get(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
	good, err := srv.jwtValidator.IssueToken("42", "alice", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if code := get(good); code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", code)
	}
	foreign, _ := NewJWTValidator("s3cret", "someone-else").IssueToken("42", "alice", time.Hour)
	if code := get(foreign); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong issuer, got %d", code)
	}
	expired, _ := srv.jwtValidator.IssueToken("42", "alice", -time.Minute)
	if code := get(expired); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", code)
	}
	forged, _ := NewJWTValidator("other", "hexrange-test").IssueToken("42", "alice", time.Hour)
	if code := get(forged); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", code)
	}

	// health stays public
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected public health check, got %d", resp.StatusCode)
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	if got := extractToken(r); got != "q" {
		t.Fatalf("expected query token, got %q", got)
	}
	r.Header.Set("Authorization", "Bearer b")
	if got := extractToken(r); got != "b" {
		t.Fatalf("expected bearer token, got %q", got)
	}
	r.Header.Set("Sec-WebSocket-Protocol", "access_token, p")
	if got := extractToken(r); got != "p" {
		t.Fatalf("expected subprotocol token, got %q", got)
	}
}

func readMessage(t *testing.T, ws *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read %s: %v", want, err)
	}
	if msg.Type != want {
		t.Fatalf("expected %s message, got %s (%s)", want, msg.Type, msg.Payload)
	}
	return msg.Payload
}

func TestWebSocketRangeQueries(t *testing.T) {
	_, ts := newTestServer(t, config.Default())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	var welcome network.WelcomePayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeWelcome), &welcome)
	if welcome.Username != models.Anonymous().Username || welcome.Orientation != "pointy" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}

	send := func(typ string, payload interface{}) {
		raw, _ := json.Marshal(payload)
		if err := ws.WriteJSON(network.ClientMessage{Type: typ, Payload: raw}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	send(network.MsgTypeRange, network.RangePayload{X: 140, Y: 160, Range: 1})
	var res network.RangeResultPayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeRangeResult), &res)
	if res.Count != 7 || res.Center != (hex.Axial{Q: 2, R: 5}) {
		t.Fatalf("unexpected range result %+v", res)
	}

	send(network.MsgTypeRing, network.RingPayload{Center: hex.Axial{Q: 0, R: 0}, Radius: 2})
	var ring network.RingResultPayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeRingResult), &ring)
	if ring.Count != 12 {
		t.Fatalf("expected 12 hexes in ring 2, got %d", ring.Count)
	}

	send(network.MsgTypeRange, network.RangePayload{Range: -4})
	var perr network.ErrorPayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeError), &perr)
	if perr.Code != "invalid_range" {
		t.Fatalf("expected invalid_range, got %s", perr.Code)
	}

	send(network.MsgTypePing, nil)
	readMessage(t, ws, network.MsgTypePong)

	send("teleport", nil)
	json.Unmarshal(readMessage(t, ws, network.MsgTypeError), &perr)
	if perr.Code != "unknown_message_type" {
		t.Fatalf("expected unknown_message_type, got %s", perr.Code)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "s3cret"
	srv, ts := newTestServer(t, cfg)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %v", resp)
	}

	token, _ := srv.jwtValidator.IssueToken("7", "bob", time.Hour)
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial with token failed: %v", err)
	}
	defer ws.Close()
	var welcome network.WelcomePayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeWelcome), &welcome)
	if welcome.ClientID != "7" || welcome.Username != "bob" {
		t.Fatalf("unexpected welcome %+v", welcome)
	}
}

func TestHistory(t *testing.T) {
	_, ts := newTestServer(t, config.Default())
	resp, err := http.Get(ts.URL + "/history")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without history, got %d", resp.StatusCode)
	}

	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	_, ts = newTestServer(t, config.Default(), WithHistory(history))
	for _, q := range []string{"range=0", "range=2"} {
		resp, err := http.Get(ts.URL + "/render?" + q)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
	}
	resp, err = http.Get(ts.URL + "/history?limit=5")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	var recs []models.RenderRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.Source != "http" || rec.Width != 400 || rec.Bytes == 0 {
			t.Fatalf("unexpected record %+v", rec)
		}
	}
}

func TestCacheKeySharesHex(t *testing.T) {
	srv, err := New(config.Default())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	defer srv.Shutdown()
	req, _ := srv.requestFrom(nil)
	a := cacheKey(req, hex.Axial{Q: 2, R: 5})
	req.Range = 2
	if b := cacheKey(req, hex.Axial{Q: 2, R: 5}); a == b {
		t.Fatalf("expected range to change the cache key")
	}
	req.Range = 1
	if c := cacheKey(req, hex.Axial{Q: 2, R: 6}); a == c {
		t.Fatalf("expected center to change the cache key")
	}
}

func TestRangeLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxRange = 4
	_, ts := newTestServer(t, cfg)

	cases := map[string]int{
		"/hexes?range=4":                           http.StatusOK,
		"/hexes?range=5":                           http.StatusBadRequest,
		"/hexes?range=1500":                        http.StatusBadRequest,
		"/ring?q=0&r=0&radius=4":                   http.StatusOK,
		"/ring?q=0&r=0&radius=2000000000000000000": http.StatusBadRequest,
		"/render?range=4":                          http.StatusOK,
		"/render?range=1500":                       http.StatusBadRequest,
	}
	for path, status := range cases {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var body network.ErrorPayload
		if status != http.StatusOK {
			json.NewDecoder(resp.Body).Decode(&body)
		}
		resp.Body.Close()
		if resp.StatusCode != status {
			t.Fatalf("%s: expected %d, got %d", path, status, resp.StatusCode)
		}
		if status != http.StatusOK && body.Code != "range_too_large" {
			t.Fatalf("%s: expected range_too_large, got %s", path, body.Code)
		}
	}
}

func TestWebSocketRangeLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxRange = 3
	_, ts := newTestServer(t, cfg)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()
	readMessage(t, ws, network.MsgTypeWelcome)

	send := func(typ string, payload interface{}) {
		raw, _ := json.Marshal(payload)
		if err := ws.WriteJSON(network.ClientMessage{Type: typ, Payload: raw}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	var perr network.ErrorPayload

	send(network.MsgTypeRange, network.RangePayload{X: 140, Y: 160, Range: 4})
	json.Unmarshal(readMessage(t, ws, network.MsgTypeError), &perr)
	if perr.Code != "range_too_large" {
		t.Fatalf("expected range_too_large for range, got %s", perr.Code)
	}

	send(network.MsgTypeRing, network.RingPayload{Radius: 1 << 30})
	json.Unmarshal(readMessage(t, ws, network.MsgTypeError), &perr)
	if perr.Code != "range_too_large" {
		t.Fatalf("expected range_too_large for ring, got %s", perr.Code)
	}

	send(network.MsgTypeRing, network.RingPayload{Radius: 3})
	var ring network.RingResultPayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeRingResult), &ring)
	if ring.Count != 18 {
		t.Fatalf("expected 18 hexes at the limit, got %d", ring.Count)
	}
}

func TestWebSocketSubprotocolToken(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "s3cret"
	srv, ts := newTestServer(t, cfg)
	token, _ := srv.jwtValidator.IssueToken("9", "carol", time.Hour)

	dialer := websocket.Dialer{Subprotocols: []string{"access_token", token}}
	ws, resp, err := dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()
	if ws.Subprotocol() != "access_token" {
		t.Fatalf("expected negotiated access_token, got %q (header %q)", ws.Subprotocol(), resp.Header.Get("Sec-WebSocket-Protocol"))
	}
	var welcome network.WelcomePayload
	json.Unmarshal(readMessage(t, ws, network.MsgTypeWelcome), &welcome)
	if welcome.Username != "carol" {
		t.Fatalf("expected carol, got %s", welcome.Username)
	}
}

func TestHistoryRecord(t *testing.T) {
	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	_, ts := newTestServer(t, config.Default(), WithHistory(history))

	resp, err := http.Get(ts.URL + "/render?range=2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	recs, err := history.Recent(1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("expected one record, got %d (%v)", len(recs), err)
	}

	resp, err = http.Get(ts.URL + "/history/" + recs[0].ID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var rec models.RenderRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("failed to decode record: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || rec.ID != recs[0].ID || rec.Range != 2 {
		t.Fatalf("unexpected record %d %+v", resp.StatusCode, rec)
	}

	resp, err = http.Get(ts.URL + "/history/does-not-exist")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", resp.StatusCode)
	}
}
