package network

import (
	"encoding/json"

	"github.com/gravitas-games/hexrange/pkg/hex"
)

// Message types - Client → Server
const (
	MsgTypeRange = "range"
	MsgTypeRing  = "ring"
	MsgTypePing  = "ping"
)

// Message types - Server → Client
const (
	MsgTypeWelcome     = "welcome"
	MsgTypeRangeResult = "range_result"
	MsgTypeRingResult  = "ring_result"
	MsgTypeError       = "error"
	MsgTypePong        = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// RangePayload asks for every hex within Range of the hex under (X, Y)
type RangePayload struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Range int     `json:"range"`
}

// RingPayload asks for the ring of the given radius around a hex
type RingPayload struct {
	Center hex.Axial `json:"center"`
	Radius int       `json:"radius"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	ClientID    string  `json:"client_id"`
	Username    string  `json:"username"`
	SizeX       float64 `json:"size_x"`
	SizeY       float64 `json:"size_y"`
	Orientation string  `json:"orientation"`
}

// HexInfo describes one cell in a result
type HexInfo struct {
	Q   int       `json:"q"`
	R   int       `json:"r"`
	Key string    `json:"key"`
	Px  hex.Point `json:"pixel"` // cell center
}

// RangeResultPayload lists the hexes matched by a range query
type RangeResultPayload struct {
	Center hex.Axial `json:"center"`
	Range  int       `json:"range"`
	Count  int       `json:"count"`
	Hexes  []HexInfo `json:"hexes"`
}

// RingResultPayload lists a ring in walk order
type RingResultPayload struct {
	Center hex.Axial `json:"center"`
	Radius int       `json:"radius"`
	Count  int       `json:"count"`
	Hexes  []HexInfo `json:"hexes"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Describe converts hexes to HexInfo using geom for pixel centers
func Describe(geom hex.Geometry, hexes []hex.Axial) []HexInfo {
	out := make([]HexInfo, len(hexes))
	for i, h := range hexes {
		out[i] = HexInfo{Q: h.Q, R: h.R, Key: h.Key(), Px: geom.HexToPixel(h)}
	}
	return out
}
