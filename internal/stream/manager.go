// Package stream owns the synchronization lifecycle: snapshot fetch,
// push-stream connection, watchdog, and reconnect scheduling. It drives
// the reducer and the clock interpolator from inbound frames and is the
// only writer of the canonical state.
package stream

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"driftmine/internal/clock"
	"driftmine/internal/journal"
	"driftmine/internal/persistence/indexdb"
	"driftmine/internal/protocol"
	"driftmine/internal/protocol/gate"
	"driftmine/internal/state"
)

// Session end reasons recorded in the index.
const (
	ReasonTransport = "transport"
	ReasonStale     = "stale"
	ReasonTeardown  = "teardown"
)

type Options struct {
	SnapshotURL string
	StreamURL   string

	// WatchdogTimeout must exceed the server's heartbeat interval with
	// margin; it is the only detector for transports that die without
	// signaling an error.
	WatchdogTimeout time.Duration
	// ReconnectDelay is fixed; every reconnect restarts from a fresh
	// snapshot, so there is nothing to gain from backing off.
	ReconnectDelay time.Duration

	NominalTickRate float64

	Logger *log.Logger
	Debug  bool

	// Optional collaborators.
	Journal    *journal.Writer
	Index      *indexdb.SQLiteIndex
	HTTPClient *http.Client
}

// Status is the connectivity picture the UI renders from.
type Status struct {
	Connected     bool
	SessionID     string
	LastTick      uint64
	EventsApplied uint64
	EventsDropped uint64
	LastError     string
}

// Manager runs the Disconnected -> Connecting -> Connected ->
// (Stale|Errored) -> Disconnected loop until Close. Readers take the
// current state via State(); because every batch is applied copy-on-write
// onto a fresh *State, a reader holding an old pointer is always looking
// at a complete picture.
type Manager struct {
	opts    Options
	logger  *log.Logger
	gate    *gate.Gate
	reducer *state.Reducer
	clock   *clock.Interpolator
	http    *http.Client

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}

	mu        sync.RWMutex
	st        *state.State
	connected bool
	conn      *websocket.Conn
	lastErr   string

	sessionID     string
	lastTick      uint64
	eventsApplied uint64
	eventsDropped uint64
}

func New(opts Options) (*Manager, error) {
	if opts.SnapshotURL == "" || opts.StreamURL == "" {
		return nil, fmt.Errorf("stream: snapshot and stream URLs are required")
	}
	if opts.WatchdogTimeout <= 0 {
		return nil, fmt.Errorf("stream: watchdog timeout must be positive")
	}
	if opts.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("stream: reconnect delay must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	g, err := gate.New(logger, opts.Debug)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Manager{
		opts:    opts,
		logger:  logger,
		gate:    g,
		reducer: state.NewReducer(logger),
		clock:   clock.NewInterpolator(opts.NominalTickRate),
		http:    httpClient,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Close tears the manager down: the active stream handle is closed
// synchronously and no callback can touch state afterwards, because the
// run goroutine is the only writer and it exits before Close returns.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		m.disconnect()
		<-m.done
	})
}

// State returns the canonical state, or nil while disconnected. The
// returned value is immutable; hold it as long as needed.
func (m *Manager) State() *state.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st
}

func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Connected:     m.connected,
		SessionID:     m.sessionID,
		LastTick:      m.lastTick,
		EventsApplied: m.eventsApplied,
		EventsDropped: m.eventsDropped,
		LastError:     m.lastErr,
	}
}

// Clock exposes the interpolator for the render loop: Sample(now) every
// frame, SetPaused from the UI's pause control.
func (m *Manager) Clock() *clock.Interpolator {
	return m.clock
}

func (m *Manager) disconnect() {
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.mu.Unlock()
	if c != nil {
		_ = c.Close()
	}
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			return
		default:
		}

		if err := m.runSession(); err != nil {
			m.mu.Lock()
			m.lastErr = err.Error()
			m.mu.Unlock()
			m.logger.Printf("session ended: %v", err)
		}

		select {
		case <-m.stop:
			return
		case <-time.After(m.opts.ReconnectDelay):
		}
	}
}

// runSession performs one full connect cycle: snapshot, stream, read
// until failure. Any exit path discards the canonical state; recovery
// is always a fresh snapshot, never event replay, so events emitted
// between disconnect and the next snapshot are forfeited by design.
func (m *Manager) runSession() error {
	snap, err := m.fetchSnapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := d.Dial(m.opts.StreamURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	sessionID := fmt.Sprintf("S_%d", time.Now().UnixMilli())
	m.mu.Lock()
	m.st = snap
	m.conn = conn
	m.connected = true
	m.lastErr = ""
	m.sessionID = sessionID
	m.lastTick = snap.Tick
	m.eventsApplied = 0
	m.eventsDropped = 0
	m.mu.Unlock()

	m.clock.Reset()
	m.clock.Observe(snap.Tick, time.Now())
	if m.opts.Index != nil {
		m.opts.Index.RecordStart(indexdb.SessionStart{
			SessionID:    sessionID,
			StartedAt:    time.Now(),
			SnapshotTick: snap.Tick,
		})
	}
	m.logger.Printf("connected session=%s snapshot_tick=%d", sessionID, snap.Tick)

	readErr := m.readLoop(conn)
	reason := ReasonTransport
	switch {
	case readErr == nil:
		reason = ReasonTeardown
	case isTimeout(readErr):
		// Watchdog expiry: the transport died without an error signal.
		reason = ReasonStale
	}
	m.endSession(conn, reason)
	if readErr != nil {
		return fmt.Errorf("stream (%s): %w", reason, readErr)
	}
	return nil
}

// readLoop consumes frames until the connection errors or the read
// deadline (the watchdog) fires. Every inbound frame, heartbeat or
// batch, pushes the deadline out again.
func (m *Manager) readLoop(conn *websocket.Conn) error {
	for {
		select {
		case <-m.stop:
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(m.opts.WatchdogTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-m.stop:
				// Close() woke us by closing the handle.
				return nil
			default:
			}
			return err
		}
		m.handleFrame(msg, time.Now())
	}
}

func (m *Manager) handleFrame(msg []byte, now time.Time) {
	if m.opts.Journal != nil {
		if err := m.opts.Journal.Record(msg, now); err != nil {
			m.logger.Printf("journal: %v", err)
		}
	}

	decoded, err := protocol.DecodeStreamMessage(msg)
	if err != nil {
		// A malformed frame is not a connection failure; the next
		// heartbeat keeps the watchdog happy either way.
		m.logger.Printf("drop frame: %v", err)
		return
	}

	if decoded.Heartbeat != nil {
		m.observeTick(decoded.Heartbeat.Tick, now)
		return
	}

	kept := m.gate.Filter(decoded.Batch)
	dropped := uint64(len(decoded.Batch) - len(kept))

	m.mu.Lock()
	m.st = m.reducer.Apply(m.st, kept)
	m.eventsApplied += uint64(len(kept))
	m.eventsDropped += dropped
	m.mu.Unlock()

	if tick, ok := decoded.LatestTick(); ok {
		m.observeTick(tick, now)
	}
}

func (m *Manager) observeTick(tick uint64, now time.Time) {
	m.clock.Observe(tick, now)
	m.mu.Lock()
	if tick > m.lastTick {
		m.lastTick = tick
	}
	m.mu.Unlock()
}

// endSession discards everything incremental: state, connection, clock
// samples. Transport errors and staleness are indistinguishable from
// here on, both mean continuity can no longer be trusted.
func (m *Manager) endSession(conn *websocket.Conn, reason string) {
	m.mu.Lock()
	st := Status{
		SessionID:     m.sessionID,
		LastTick:      m.lastTick,
		EventsApplied: m.eventsApplied,
		EventsDropped: m.eventsDropped,
	}
	m.st = nil
	m.connected = false
	if m.conn == conn {
		m.conn = nil
	}
	m.mu.Unlock()

	_ = conn.Close()
	rate := m.clock.Rate()
	m.clock.Reset()

	if m.opts.Index != nil {
		m.opts.Index.RecordEnd(indexdb.SessionEnd{
			SessionID:     st.SessionID,
			EndedAt:       time.Now(),
			Reason:        reason,
			LastTick:      st.LastTick,
			EventsApplied: st.EventsApplied,
			EventsDropped: st.EventsDropped,
			MeasuredRate:  rate,
		})
	}
	m.logger.Printf("disconnected session=%s reason=%s last_tick=%d applied=%d dropped=%d",
		st.SessionID, reason, st.LastTick, st.EventsApplied, st.EventsDropped)
}

func (m *Manager) fetchSnapshot() (*state.State, error) {
	resp, err := m.http.Get(m.opts.SnapshotURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	st, err := state.DecodeSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return st, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
