// Command hexapp renders a hex grid to PNG and highlights every hex within a
// given range of the hex under a query point.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexrange/internal/config"
	"github.com/gravitas-games/hexrange/internal/store"
	"github.com/gravitas-games/hexrange/pkg/logger"
	"github.com/gravitas-games/hexrange/pkg/models"
	"github.com/gravitas-games/hexrange/pkg/render"
)

func main() {
	logger.Init()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fl, err := config.ParseFlags("hexapp", args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	cfg, err := fl.Resolve()
	if err != nil {
		logger.Log.WithError(err).Error("Failed to load configuration")
		return 1
	}
	// Nothing is written unless the whole configuration is valid.
	if err := cfg.Validate(); err != nil {
		logger.Log.WithError(err).Error("Invalid configuration")
		return 1
	}
	req, err := cfg.Request()
	if err != nil {
		logger.Log.WithError(err).Error("Invalid configuration")
		return 1
	}

	start := time.Now()
	out, err := render.Run(req)
	if err != nil {
		logger.Log.WithError(err).Error("Render failed")
		return 1
	}

	if err := render.WritePNG(cfg.Image.Output, out.Canvas); err != nil {
		logger.Log.WithError(err).Error("Failed to write image")
		return 1
	}

	var size int64
	if info, err := os.Stat(cfg.Image.Output); err == nil {
		size = info.Size()
	}
	logger.Log.WithFields(logrus.Fields{
		"center":      out.Query.Center.Key(),
		"range":       out.Query.Range,
		"drawn":       len(out.Drawn),
		"highlighted": out.Highlighted,
		"size":        humanize.Bytes(uint64(size)),
		"elapsed":     time.Since(start).Round(time.Microsecond),
	}).Info("Rendered hex grid")

	if cfg.Database.Path != "" {
		recordHistory(cfg.Database.Path, store.NewRecord("cli", req, out, size, cfg.Image.Output))
	}

	fmt.Fprintln(stdout, cfg.Image.Output)
	return 0
}

// recordHistory is best effort: the image has already been written.
func recordHistory(path string, rec *models.RenderRecord) {
	db, err := store.Open(path)
	if err != nil {
		logger.Log.WithError(err).Warn("Render history unavailable")
		return
	}
	defer db.Close()
	if err := db.Record(rec); err != nil {
		logger.Log.WithError(err).Warn("Failed to record render")
	}
}
