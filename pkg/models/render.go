package models

import (
	"time"

	"github.com/gravitas-games/hexrange/pkg/hex"
)

// RenderRecord describes one completed render
type RenderRecord struct {
	ID          string    `json:"id" db:"id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Source      string    `json:"source" db:"source"` // "cli" or "http"
	Width       int       `json:"width" db:"width"`
	Height      int       `json:"height" db:"height"`
	SizeX       float64   `json:"size_x" db:"size_x"`
	SizeY       float64   `json:"size_y" db:"size_y"`
	Orientation string    `json:"orientation" db:"orientation"`
	PointX      float64   `json:"point_x" db:"point_x"`
	PointY      float64   `json:"point_y" db:"point_y"`
	CenterQ     int       `json:"center_q" db:"center_q"`
	CenterR     int       `json:"center_r" db:"center_r"`
	Range       int       `json:"range" db:"search_range"`
	Drawn       int       `json:"drawn" db:"drawn"`
	Highlighted int       `json:"highlighted" db:"highlighted"`
	Bytes       int64     `json:"bytes" db:"bytes"`   // encoded PNG size
	Output      string    `json:"output" db:"output"` // file path or request URL
}

// Center returns the hex the range query was centered on
func (r *RenderRecord) Center() hex.Axial {
	return hex.Axial{Q: r.CenterQ, R: r.CenterR}
}
