package birdeye

import (
	"encoding/json"
	"fmt"
)

// Public endpoints.
const (
	DefaultRESTURL = "https://public-api.birdeye.so"
	DefaultWSURL   = "wss://public-api.birdeye.so/socket/solana"
)

// Default listing request.
const (
	DefaultListingPath  = "/defi/token_trending"
	DefaultListingLimit = 20
)

// Chain sent in the x-chain header.
const Chain = "solana"

// WebSocket message types.
const (
	MsgSubscribeNewListing = "SUBSCRIBE_TOKEN_NEW_LISTING"
	MsgNewListingData      = "TOKEN_NEW_LISTING_DATA"
	MsgError               = "ERROR"
)

// Message is one inbound WebSocket frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseMessage decodes a raw frame.
func ParseMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("decode frame: missing type")
	}
	return msg, nil
}

// ListingItem decodes a TOKEN_NEW_LISTING_DATA payload as a generic object
// for field normalization.
func (m Message) ListingItem() (map[string]any, error) {
	var item map[string]any
	if err := json.Unmarshal(m.Data, &item); err != nil {
		return nil, fmt.Errorf("decode listing data: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("decode listing data: empty payload")
	}
	return item, nil
}

// APIError is returned for a non-2xx REST response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("birdeye: unexpected status %d: %s", e.StatusCode, e.Body)
}
