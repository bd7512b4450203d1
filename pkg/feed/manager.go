package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/pkg/types"
)

// Config holds feed manager configuration.
type Config struct {
	Venue  types.Venue
	URL    string
	Framer Framer

	// Dialer defaults to a GorillaDialer.
	Dialer Dialer

	// MaxRetries bounds consecutive failed dials before the manager parks
	// itself in StateFailed. Defaults to 5.
	MaxRetries int

	// ReconnectInterval is the fixed delay between retries. Defaults to 5s.
	ReconnectInterval time.Duration

	DialTimeout  time.Duration
	PingInterval time.Duration

	// UpdateBufferSize sizes the outbound updates channel. Defaults to 256.
	UpdateBufferSize int

	// Clock defaults to the real clock. Tests inject a mock.
	Clock clock.Clock

	Logger *zap.Logger
}

// Manager owns one streaming connection and its lifecycle.
type Manager struct {
	cfg    Config
	dialer Dialer
	framer Framer
	clock  clock.Clock
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	conn       Conn
	subs       map[string]bool
	retryCount int
	retryTimer *clock.Timer
	closing    bool
	gen        uint64

	updates chan types.PriceUpdate
	events  chan Event
}

// New builds a feed manager. The connection is not opened until Connect.
func New(cfg Config) (*Manager, error) {
	if cfg.URL == "" {
		return nil, &types.ConfigurationError{Setting: "URL", Reason: "must not be empty"}
	}
	if cfg.Framer == nil {
		return nil, &types.ConfigurationError{Setting: "Framer", Reason: "must not be nil"}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.UpdateBufferSize <= 0 {
		cfg.UpdateBufferSize = 256
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &GorillaDialer{HandshakeTimeout: cfg.DialTimeout}
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{
		cfg:     cfg,
		dialer:  cfg.Dialer,
		framer:  cfg.Framer,
		clock:   cfg.Clock,
		logger:  cfg.Logger.With(zap.String("venue", string(cfg.Venue))),
		state:   StateDisconnected,
		subs:    make(map[string]bool),
		updates: make(chan types.PriceUpdate, cfg.UpdateBufferSize),
		events:  make(chan Event, 16),
	}, nil
}

// Connect opens the connection. Calling it while Connecting or Connected is
// a no-op. From Failed or Disconnected it resets the retry budget and dials
// again.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	m.stopRetryTimerLocked()
	m.closing = false
	m.retryCount = 0
	m.setStateLocked(StateConnecting, nil)
	m.mu.Unlock()

	return m.attempt(ctx)
}

// attempt dials once and either promotes the manager to Connected or walks
// the retry path.
func (m *Manager) attempt(ctx context.Context) error {
	m.logger.Info("feed-connecting", zap.String("url", m.cfg.URL))
	conn, err := m.dialer.Dial(ctx, m.cfg.URL)

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		if err == nil {
			conn.Close()
		}
		return nil
	}
	if err != nil {
		m.scheduleRetryLocked(err)
		terminal := m.state == StateFailed
		m.mu.Unlock()
		return &types.ConnectionError{
			Venue:    m.cfg.Venue,
			Op:       "connect",
			Err:      err,
			Terminal: terminal,
		}
	}

	m.conn = conn
	m.retryCount = 0
	m.gen++
	gen := m.gen
	m.setStateLocked(StateConnected, nil)
	resub := make([]string, 0, len(m.subs))
	for id := range m.subs {
		resub = append(resub, id)
	}
	m.mu.Unlock()

	if len(resub) > 0 {
		if werr := m.writeSubscribe(conn, resub); werr != nil {
			m.logger.Error("feed-resubscribe-failed", zap.Error(werr))
		} else {
			m.logger.Info("feed-resubscribed", zap.Int("count", len(resub)))
		}
	}

	go m.readLoop(conn, gen)
	go m.heartbeat(conn, gen)
	return nil
}

// Subscribe registers market IDs and sends subscribe frames. It requires
// StateConnected; subscriptions survive reconnects.
func (m *Manager) Subscribe(ctx context.Context, marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	if m.state != StateConnected {
		st := m.state
		m.mu.Unlock()
		return &types.ConnectionError{
			Venue: m.cfg.Venue,
			Op:    "subscribe",
			Err:   fmt.Errorf("not connected (state %s)", st),
		}
	}
	fresh := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if !m.subs[id] {
			fresh = append(fresh, id)
			m.subs[id] = true
		}
	}
	conn := m.conn
	total := len(m.subs)
	m.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}

	if err := m.writeSubscribe(conn, fresh); err != nil {
		m.mu.Lock()
		for _, id := range fresh {
			delete(m.subs, id)
		}
		m.mu.Unlock()
		return &types.ConnectionError{Venue: m.cfg.Venue, Op: "subscribe", Err: err}
	}

	SubscriptionsGauge.WithLabelValues(string(m.cfg.Venue)).Set(float64(total))
	m.logger.Info("feed-subscribed",
		zap.Int("new", len(fresh)),
		zap.Int("total", total))
	return nil
}

// Unsubscribe drops market IDs. It requires StateConnected.
func (m *Manager) Unsubscribe(ctx context.Context, marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	m.mu.Lock()
	if m.state != StateConnected {
		st := m.state
		m.mu.Unlock()
		return &types.ConnectionError{
			Venue: m.cfg.Venue,
			Op:    "unsubscribe",
			Err:   fmt.Errorf("not connected (state %s)", st),
		}
	}
	victims := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if m.subs[id] {
			victims = append(victims, id)
			delete(m.subs, id)
		}
	}
	conn := m.conn
	total := len(m.subs)
	m.mu.Unlock()

	if len(victims) == 0 {
		return nil
	}

	frames, err := m.framer.UnsubscribeFrames(victims)
	if err == nil {
		err = writeAll(conn, frames)
	}
	if err != nil {
		m.mu.Lock()
		for _, id := range victims {
			m.subs[id] = true
		}
		m.mu.Unlock()
		return &types.ConnectionError{Venue: m.cfg.Venue, Op: "unsubscribe", Err: err}
	}

	SubscriptionsGauge.WithLabelValues(string(m.cfg.Venue)).Set(float64(total))
	m.logger.Info("feed-unsubscribed",
		zap.Int("dropped", len(victims)),
		zap.Int("remaining", total))
	return nil
}

// Disconnect closes the connection and cancels pending retries.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.closing = true
	m.stopRetryTimerLocked()
	conn := m.conn
	m.conn = nil
	m.gen++
	m.setStateLocked(StateDisconnected, nil)
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Updates returns the channel of parsed price updates.
func (m *Manager) Updates() <-chan types.PriceUpdate {
	return m.updates
}

// Events returns the channel of state transitions.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleReadError(conn, gen, err)
			return
		}

		updates, perr := m.framer.Parse(data)
		if perr != nil {
			ParseErrorsTotal.WithLabelValues(string(m.cfg.Venue)).Inc()
			m.logger.Debug("feed-unparseable-frame",
				zap.Error(perr),
				zap.Int("bytes", len(data)))
			continue
		}

		for _, u := range updates {
			select {
			case m.updates <- u:
				UpdatesTotal.WithLabelValues(string(m.cfg.Venue)).Inc()
			default:
				DroppedUpdatesTotal.WithLabelValues(string(m.cfg.Venue)).Inc()
				m.logger.Warn("feed-updates-channel-full",
					zap.String("market-id", u.MarketID))
			}
		}
	}
}

func (m *Manager) handleReadError(conn Conn, gen uint64, err error) {
	conn.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing || gen != m.gen {
		return
	}
	m.conn = nil

	if errors.Is(err, ErrCleanClose) {
		m.logger.Info("feed-closed-by-server")
		m.setStateLocked(StateDisconnected, err)
		return
	}

	m.logger.Warn("feed-read-error", zap.Error(err))
	m.scheduleRetryLocked(err)
}

// scheduleRetryLocked consumes one retry from the budget, or parks the
// manager in StateFailed when the budget is spent.
func (m *Manager) scheduleRetryLocked(err error) {
	if m.retryCount < m.cfg.MaxRetries {
		m.retryCount++
		m.setStateLocked(StateReconnecting, err)
		ReconnectsTotal.WithLabelValues(string(m.cfg.Venue)).Inc()
		m.logger.Warn("feed-retry-scheduled",
			zap.Int("attempt", m.retryCount),
			zap.Int("max", m.cfg.MaxRetries),
			zap.Duration("in", m.cfg.ReconnectInterval))
		m.retryTimer = m.clock.AfterFunc(m.cfg.ReconnectInterval, func() {
			_ = m.attempt(context.Background())
		})
		return
	}

	m.logger.Error("feed-retry-budget-exhausted",
		zap.Int("retries", m.retryCount),
		zap.Error(err))
	m.setStateLocked(StateFailed, err)
}

func (m *Manager) stopRetryTimerLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

func (m *Manager) setStateLocked(s State, err error) {
	if m.state == s {
		return
	}
	m.state = s
	StateGauge.WithLabelValues(string(m.cfg.Venue)).Set(float64(s))
	select {
	case m.events <- Event{State: s, Err: err}:
	default:
	}
}

func (m *Manager) writeSubscribe(conn Conn, marketIDs []string) error {
	frames, err := m.framer.SubscribeFrames(marketIDs)
	if err != nil {
		return fmt.Errorf("build subscribe frames: %w", err)
	}
	return writeAll(conn, frames)
}

func (m *Manager) heartbeat(conn Conn, gen uint64) {
	ticker := m.clock.Ticker(m.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		stale := m.closing || gen != m.gen
		m.mu.Unlock()
		if stale {
			return
		}
		if err := conn.Ping(time.Now().Add(time.Second)); err != nil {
			m.logger.Warn("feed-ping-error", zap.Error(err))
		}
	}
}

func writeAll(conn Conn, frames [][]byte) error {
	for _, f := range frames {
		if err := conn.WriteMessage(f); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}
