package ingestion

import (
	"context"
	"time"

	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
)

// ListingSource returns raw listing response bodies.
type ListingSource interface {
	FetchListing(ctx context.Context, q birdeye.ListingQuery) ([]byte, error)
}

// FeedConn is one live feed connection.
// ReadFrame is called from a single goroutine; other methods may be called concurrently with it.
type FeedConn interface {
	SubscribeNewListings() error
	ReadFrame() ([]byte, error)
	Ping() error
	LastPong() time.Time
	Close() error
}

// FeedDialer opens live feed connections.
type FeedDialer interface {
	Dial(ctx context.Context) (FeedConn, error)
}

// BirdeyeFeed adapts a birdeye.WSDialer to FeedDialer.
type BirdeyeFeed struct {
	Dialer *birdeye.WSDialer
}

// Dial implements FeedDialer.
func (f BirdeyeFeed) Dial(ctx context.Context) (FeedConn, error) {
	conn, err := f.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

var (
	_ ListingSource = (*birdeye.RESTClient)(nil)
	_ FeedConn      = (*birdeye.WSConn)(nil)
	_ FeedDialer    = BirdeyeFeed{}
)
