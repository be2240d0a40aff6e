package models

import "time"

// Client is an authenticated caller of the render service
type Client struct {
	// From JWT claims
	ID       string `json:"id"`       // JWT subject
	Username string `json:"username"` // JWT claim
	Scope    string `json:"scope"`    // JWT claim, space separated

	// Set when a websocket session starts
	ConnectedAt time.Time `json:"connected_at"`
}

// Anonymous is used for requests when authentication is disabled
func Anonymous() *Client {
	return &Client{ID: "anonymous", Username: "anonymous"}
}

// IsAnonymous reports whether the client was not authenticated
func (c *Client) IsAnonymous() bool {
	return c == nil || c.ID == "anonymous"
}
