package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/infosolanagold/gem-scanner-backend/internal/birdeye"
	"github.com/infosolanagold/gem-scanner-backend/internal/domain"
	"github.com/infosolanagold/gem-scanner-backend/internal/logging"
	"github.com/infosolanagold/gem-scanner-backend/internal/normalization"
	"github.com/infosolanagold/gem-scanner-backend/internal/observability"
	"github.com/infosolanagold/gem-scanner-backend/internal/sink"
	"github.com/infosolanagold/gem-scanner-backend/internal/storage"
)

// DefaultIdleTimeout is how long the listener waits for a frame before pinging.
const DefaultIdleTimeout = 30 * time.Second

// ErrFeedStalled is returned when a ping goes unanswered for a full idle window.
var ErrFeedStalled = errors.New("live feed stalled: no frame or pong within idle window")

// State is the live feed connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateReceiving
	StateIdleTimeout
)

var stateNames = []string{"DISCONNECTED", "CONNECTING", "SUBSCRIBED", "RECEIVING", "IDLE_TIMEOUT"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	// Dialer is nil when no credential is configured; Run then returns immediately.
	Dialer      FeedDialer
	Store       storage.TokenStore
	Sink        sink.ListingSink // optional
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	IdleTimeout time.Duration
	// Sleep waits between reconnects; replaced in tests.
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Logger *zap.Logger
}

// ListenerStats is a point-in-time view of the listener.
type ListenerStats struct {
	State      State
	Received   uint64
	Discarded  uint64
	Reconnects uint64
	LastDelay  time.Duration
}

// Listener keeps a subscription to the new-listing feed open and upserts every
// listing into the store as LIVE. It reconnects with exponential backoff.
type Listener struct {
	dialer      FeedDialer
	store       storage.TokenStore
	sink        sink.ListingSink
	baseDelay   time.Duration
	maxDelay    time.Duration
	idleTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	logger      *zap.Logger

	state      atomic.Int32
	received   atomic.Uint64
	discarded  atomic.Uint64
	reconnects atomic.Uint64
	lastDelay  atomic.Int64
}

// NewListener creates a listener.
func NewListener(opts ListenerOptions) *Listener {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &Listener{
		dialer:      opts.Dialer,
		store:       opts.Store,
		sink:        opts.Sink,
		baseDelay:   opts.BaseDelay,
		maxDelay:    opts.MaxDelay,
		idleTimeout: opts.IdleTimeout,
		sleep:       opts.Sleep,
		now:         opts.Now,
		logger:      logging.OrNop(opts.Logger),
	}
	l.setState(StateDisconnected)
	return l
}

// State returns the current connection state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Stats returns the current state and counters.
func (l *Listener) Stats() ListenerStats {
	return ListenerStats{
		State:      l.State(),
		Received:   l.received.Load(),
		Discarded:  l.discarded.Load(),
		Reconnects: l.reconnects.Load(),
		LastDelay:  time.Duration(l.lastDelay.Load()),
	}
}

// Run connects, subscribes and processes frames until ctx is cancelled.
// Transport failures reconnect after a backoff delay; Run never returns an
// error for them and never lets a panic escape.
func (l *Listener) Run(ctx context.Context) error {
	if l.dialer == nil {
		l.logger.Warn("live feed disabled: birdeye api key not configured")
		return nil
	}

	l.logger.Info("starting live feed listener",
		zap.Duration("base_delay", l.baseDelay),
		zap.Duration("max_delay", l.maxDelay),
		zap.Duration("idle_timeout", l.idleTimeout))

	bo := newReconnectBackOff(l.baseDelay, l.maxDelay)
	for {
		subscribed, err := l.session(ctx)
		l.setState(StateDisconnected)

		if ctx.Err() != nil {
			l.logger.Info("live feed listener stopped")
			return nil
		}
		if errors.Is(err, birdeye.ErrMissingAPIKey) {
			l.logger.Warn("live feed disabled", zap.Error(err))
			return nil
		}

		if subscribed {
			bo.Reset()
		}
		delay := bo.NextBackOff()
		l.lastDelay.Store(int64(delay))
		l.reconnects.Add(1)
		observability.RecordReconnect()
		l.logger.Warn("live feed disconnected, reconnecting",
			zap.Error(err),
			zap.Bool("was_subscribed", subscribed),
			zap.Duration("delay", delay))

		if err := l.sleep(ctx, delay); err != nil {
			l.logger.Info("live feed listener stopped")
			return nil
		}
	}
}

// session runs one connection from dial to failure.
func (l *Listener) session(ctx context.Context) (subscribed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()

	l.setState(StateConnecting)
	conn, err := l.dialer.Dial(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := conn.SubscribeNewListings(); err != nil {
		return false, err
	}
	l.setState(StateSubscribed)
	subscribed = true
	l.logger.Info("subscribed to new listings")

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				readErr <- fmt.Errorf("reader panic: %v", r)
			}
		}()
		for {
			frame, err := conn.ReadFrame()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- frame:
			case <-stop:
				return
			}
		}
	}()

	idle := time.NewTimer(l.idleTimeout)
	defer idle.Stop()
	var pingSentAt time.Time

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()

		case err := <-readErr:
			return true, err

		case frame := <-frames:
			l.setState(StateReceiving)
			pingSentAt = time.Time{}
			resetTimer(idle, l.idleTimeout)
			l.handleFrame(ctx, frame)

		case <-idle.C:
			l.setState(StateIdleTimeout)
			if !pingSentAt.IsZero() && conn.LastPong().Before(pingSentAt) {
				return true, ErrFeedStalled
			}
			sentAt := l.now()
			if err := conn.Ping(); err != nil {
				return true, err
			}
			pingSentAt = sentAt
			observability.RecordIdlePing()
			l.logger.Debug("live feed idle, ping sent")
			idle.Reset(l.idleTimeout)
		}
	}
}

// handleFrame applies one inbound frame. Bad frames are discarded, never fatal.
func (l *Listener) handleFrame(ctx context.Context, frame []byte) {
	msg, err := birdeye.ParseMessage(frame)
	if err != nil {
		l.discard("decode", err)
		return
	}

	switch msg.Type {
	case birdeye.MsgNewListingData:
	case birdeye.MsgError:
		l.logger.Warn("live feed error message", zap.ByteString("data", msg.Data))
		return
	default:
		l.logger.Debug("ignoring feed message", zap.String("type", msg.Type))
		return
	}

	item, err := msg.ListingItem()
	if err != nil {
		l.discard("payload", err)
		return
	}
	rec, ok := normalization.Normalize(item, domain.ProvenanceLive, l.now())
	if !ok {
		l.discard("address", nil)
		return
	}
	if err := l.store.Upsert(rec); err != nil {
		l.discard("store", err)
		return
	}

	l.received.Add(1)
	observability.RecordListing()
	if ev, ok := l.store.(interface{ Evictions() uint64 }); ok {
		observability.UpdateStore(l.store.Len(), ev.Evictions())
	}
	if l.sink != nil {
		if err := l.sink.RecordListing(ctx, rec); err != nil {
			l.logger.Debug("listing sink rejected record", zap.String("address", rec.Address), zap.Error(err))
		}
	}
	l.logger.Debug("live listing", zap.String("address", rec.Address), zap.String("symbol", rec.Symbol))
}

func (l *Listener) discard(reason string, err error) {
	l.discarded.Add(1)
	observability.RecordFrameDiscarded(reason)
	l.logger.Debug("discarding feed frame", zap.String("reason", reason), zap.Error(err))
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
	observability.SetListenerState(s.String(), stateNames)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
