// Package client runs one device session: it owns a timer machine, keeps it
// in step with the user's other sessions over the sync channel, and persists
// the durable settings subset locally for reload continuity.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pomosync"
	"pomosync/timer"
)

const (
	defaultTickInterval = 500 * time.Millisecond
	maxReconnectBackoff = 30 * time.Second
)

type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://localhost:8964/ws.
	// Empty runs the session offline; the machine still works locally.
	ServerURL string
	Token     string

	// SnapshotPath stores the durable settings subset. Empty disables it.
	SnapshotPath string

	TickInterval time.Duration
	Recorder     timer.Recorder
	Notifier     timer.Notifier
	Logger       *log.Logger
}

type Session struct {
	machine  *timer.Machine
	recorder timer.Recorder
	notifier timer.Notifier
	store    *SnapshotStore
	l        *log.Logger

	// mu guards the machine; applyingRemote suppresses re-broadcast while a
	// remote event is being applied.
	mu             sync.Mutex
	applyingRemote bool

	connMu sync.Mutex
	conn   *websocket.Conn

	serverURL    string
	token        string
	tickInterval time.Duration
	wg           sync.WaitGroup
}

func NewSession(cfg Config) *Session {
	l := cfg.Logger
	if l == nil {
		l = log.Default()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}

	s := &Session{
		machine:      timer.NewMachine(),
		recorder:     cfg.Recorder,
		notifier:     cfg.Notifier,
		l:            l,
		serverURL:    cfg.ServerURL,
		token:        cfg.Token,
		tickInterval: tick,
	}
	if cfg.SnapshotPath != "" {
		s.store = NewSnapshotStore(cfg.SnapshotPath, l)
		if rec, ok, err := s.store.Load(); err != nil {
			l.Error("failed to load local snapshot", "path", cfg.SnapshotPath, "err", err)
		} else if ok {
			s.machine.RestoreSettings(rec)
		}
	}
	return s
}

// Run drives the sampling loop and the sync channel until ctx ends. The
// session stays fully operational while disconnected; on every (re)connect
// it asks peers for a fresh snapshot instead of replaying a backlog.
func (s *Session) Run(ctx context.Context) {
	s.wg.Go(func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.tick(now)
			}
		}
	})

	if s.serverURL != "" {
		s.wg.Go(func() {
			s.connectLoop(ctx)
		})
	}

	<-ctx.Done()
	s.closeConn()
	s.wg.Wait()
}

func (s *Session) connectLoop(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		header := http.Header{}
		header.Set("Authorization", "Bearer "+s.token)
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.serverURL, header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			s.l.Warn("sync channel dial failed", "url", s.serverURL, "backoff", backoff, "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxReconnectBackoff {
				backoff = maxReconnectBackoff
			}
			continue
		}
		backoff = time.Second

		s.setConn(conn)
		s.l.Info("sync channel connected", "url", s.serverURL)
		s.send(pomosync.NewSyncEvent(pomosync.EventRequestSync, pomosync.TimerSnapshot{}, time.Now()))

		s.readLoop(conn)
		s.setConn(nil)
		_ = conn.Close()
		s.l.Info("sync channel disconnected")
	}
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		var evt pomosync.SyncEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.l.Warn("sync channel read failed", "err", err)
			}
			return
		}
		s.reconcile(evt)
	}
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
}

func (s *Session) closeConn() {
	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// send writes an event to the channel; a missing connection is not an
// error, the session is simply operating local-first.
func (s *Session) send(evt pomosync.SyncEvent) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(evt); err != nil {
		s.l.Error("failed to send sync event", "type", evt.Type, "err", err)
	}
}

// apply runs a local transition, then executes its effects and broadcasts
// the change. Broadcast is skipped when no state changed, so double-clicks
// and redundant events collapse to one emission.
func (s *Session) apply(typ pomosync.SyncEventType, transition func(*timer.Machine, time.Time) ([]timer.Effect, bool)) bool {
	now := time.Now()

	s.mu.Lock()
	effects, applied := transition(s.machine, now)
	var evt pomosync.SyncEvent
	if applied && !s.applyingRemote {
		evt = pomosync.NewSyncEvent(typ, s.machine.Snapshot(now), now)
	}
	s.mu.Unlock()

	if !applied {
		return false
	}
	s.runEffects(effects)
	if evt.Type != "" {
		s.send(evt)
	}
	return true
}

func (s *Session) Start() bool {
	return s.apply(pomosync.EventStart, (*timer.Machine).Start)
}

func (s *Session) Pause() bool {
	return s.apply(pomosync.EventPause, (*timer.Machine).Pause)
}

func (s *Session) Resume() bool {
	return s.apply(pomosync.EventResume, (*timer.Machine).Resume)
}

func (s *Session) Stop() bool {
	return s.apply(pomosync.EventStop, (*timer.Machine).Stop)
}

func (s *Session) Skip() bool {
	return s.apply(pomosync.EventSkip, (*timer.Machine).Skip)
}

func (s *Session) tick(now time.Time) {
	s.mu.Lock()
	effects, transitioned := s.machine.Tick(now)
	var evt pomosync.SyncEvent
	if transitioned {
		evt = pomosync.NewSyncEvent(pomosync.EventTick, s.machine.Snapshot(now), now)
	}
	s.mu.Unlock()

	if !transitioned {
		return
	}
	s.runEffects(effects)
	s.send(evt)
}

// runEffects executes side effects off the critical path. Failures are
// logged and swallowed; the transition has already happened and a lost
// recording is recoverable by hand, a frozen timer is not.
func (s *Session) runEffects(effects []timer.Effect) {
	if len(effects) == 0 {
		return
	}
	s.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, e := range effects {
			switch e := e.(type) {
			case timer.RecordEntry:
				if s.recorder == nil {
					continue
				}
				if err := s.recorder.Record(ctx, e.Spec); err != nil {
					s.l.Error("failed to record time entry", "projectID", e.Spec.ProjectID, "err", err)
				}
			case timer.Notify:
				if s.notifier != nil {
					s.notifier.Notify(ctx, e.Notification)
				}
			}
		}
	})
}

// Setters mutate the durable settings subset. They never travel as events;
// peers pick them up with the next snapshot exchange.

func (s *Session) SetWorkMinutes(minutes int) bool {
	return s.setting(func(m *timer.Machine) bool { return m.SetWorkMinutes(minutes) })
}

func (s *Session) SetBreakMinutes(minutes int) bool {
	return s.setting(func(m *timer.Machine) bool { return m.SetBreakMinutes(minutes) })
}

func (s *Session) SetRepetitions(n int) bool {
	return s.setting(func(m *timer.Machine) bool { return m.SetRepetitions(n) })
}

func (s *Session) SetInfinite(infinite bool) bool {
	return s.setting(func(m *timer.Machine) bool { return m.SetInfinite(infinite) })
}

func (s *Session) SetProject(id pomosync.ProjectID) {
	s.setting(func(m *timer.Machine) bool { m.SetProject(id); return true })
}

func (s *Session) SetTask(id pomosync.TaskID) {
	s.setting(func(m *timer.Machine) bool { m.SetTask(id); return true })
}

func (s *Session) SetNotes(notes string) {
	s.setting(func(m *timer.Machine) bool { m.SetNotes(notes); return true })
}

func (s *Session) SetTags(tags []pomosync.TagID) {
	s.setting(func(m *timer.Machine) bool { m.SetTags(tags); return true })
}

func (s *Session) setting(mutate func(*timer.Machine) bool) bool {
	s.mu.Lock()
	applied := mutate(s.machine)
	var settings pomosync.TimerSettingsRecord
	if applied {
		settings = s.machine.Settings()
	}
	s.mu.Unlock()

	if applied && s.store != nil {
		if err := s.store.Save(settings); err != nil {
			s.l.Error("failed to save local snapshot", "err", err)
		}
	}
	return applied
}

func (s *Session) Snapshot() pomosync.TimerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot(time.Now())
}
