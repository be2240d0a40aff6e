// Package store keeps a SQLite history of completed renders.
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gravitas-games/hexrange/pkg/logger"
	"github.com/gravitas-games/hexrange/pkg/models"
	"github.com/gravitas-games/hexrange/pkg/render"
)

// Store wraps a SQLite connection holding render history.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Log.WithField("path", path).Debug("render history opened")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS renders (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		size_x REAL NOT NULL,
		size_y REAL NOT NULL,
		orientation TEXT NOT NULL,
		point_x REAL NOT NULL,
		point_y REAL NOT NULL,
		center_q INTEGER NOT NULL,
		center_r INTEGER NOT NULL,
		search_range INTEGER NOT NULL,
		drawn INTEGER NOT NULL,
		highlighted INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		output TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS renders_created_at ON renders(created_at);`
	_, err := s.conn.Exec(schema)
	return err
}

// NewRecord describes a finished render. size is the encoded PNG length.
func NewRecord(source string, req render.Request, out *render.Output, size int64, output string) *models.RenderRecord {
	return &models.RenderRecord{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Width:       req.Viewport.Width,
		Height:      req.Viewport.Height,
		SizeX:       req.Geometry.SizeX,
		SizeY:       req.Geometry.SizeY,
		Orientation: req.Geometry.Orientation.String(),
		PointX:      req.Point.X,
		PointY:      req.Point.Y,
		CenterQ:     out.Query.Center.Q,
		CenterR:     out.Query.Center.R,
		Range:       out.Query.Range,
		Drawn:       len(out.Drawn),
		Highlighted: out.Highlighted,
		Bytes:       size,
		Output:      output,
	}
}

// Record inserts rec, assigning an ID and timestamp when missing.
func (s *Store) Record(rec *models.RenderRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.NamedExec(`
		INSERT INTO renders (id, created_at, source, width, height, size_x, size_y, orientation,
			point_x, point_y, center_q, center_r, search_range, drawn, highlighted, bytes, output)
		VALUES (:id, :created_at, :source, :width, :height, :size_x, :size_y, :orientation,
			:point_x, :point_y, :center_q, :center_r, :search_range, :drawn, :highlighted, :bytes, :output)`,
		rec)
	if err != nil {
		return fmt.Errorf("insert render %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]models.RenderRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.RenderRecord
	err := s.conn.Select(&out, `SELECT * FROM renders ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select renders: %w", err)
	}
	return out, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*models.RenderRecord, error) {
	var rec models.RenderRecord
	if err := s.conn.Get(&rec, `SELECT * FROM renders WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get render %s: %w", id, err)
	}
	return &rec, nil
}
