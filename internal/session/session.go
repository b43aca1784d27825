// internal/session/session.go
//
// Live game sessions.
//
// A Session owns one game.State and one goroutine (run). Everything that
// touches the state goes through that goroutine:
//   - the spawn ticker (period follows game.SpawnRate(level)),
//   - the motion ticker (Rules.Tick),
//   - the feedback-expiry and handoff timers,
//   - player commands (drag, drop, pause, key presses, view).
//
// Timers never mutate state themselves; they enqueue events and the loop
// applies them one at a time. A drop and the fallout of a motion tick can
// therefore never interleave, and an item leaves play exactly once.
//
// Tickers stop while the session is paused or over and restart on resume,
// so items keep their positions across a pause.

package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/ecosort/internal/catalog"
	"github.com/robalobadob/ecosort/internal/game"
)

// ErrClosed is returned by calls on a session that has been torn down.
var ErrClosed = errors.New("session closed")

// Options configure a new Session.
type Options struct {
	ID      string // generated when empty
	UserID  string // "" for guests
	Daily   string // daily challenge date key, "" for free play
	Rules   game.Rules
	Catalog *catalog.Catalog
	Rand    *rand.Rand // seeded from the clock when nil

	// OnHandoff receives the final snapshot once, HandoffDelay after game over.
	// It runs on its own goroutine and must not expect the session to still
	// be accepting commands.
	OnHandoff func(Handoff)
}

// Handoff is the one-time transfer of a finished session to the results layer.
type Handoff struct {
	SessionID  string        `json:"sessionId"`
	UserID     string        `json:"userId,omitempty"`
	Daily      string        `json:"daily,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Final      game.Snapshot `json:"final"`
}

// Session is a running game. Create with New, then Start.
type Session struct {
	id        string
	userID    string
	daily     string
	rules     game.Rules
	cat       *catalog.Catalog
	rng       *rand.Rand
	onHandoff func(Handoff)
	log       zerolog.Logger
	startedAt time.Time

	events    chan event
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
	handoffs  sync.WaitGroup // in-flight OnHandoff callbacks

	lastActive atomic.Int64 // unix nanos of the last player command
	handedOff  atomic.Bool

	subsMu  sync.Mutex
	subs    map[uint64]chan View
	nextSub uint64
	closed  bool

	// Owned by the run goroutine.
	state         *game.State
	feedback      *Feedback
	highlight     string
	feedbackGen   uint64
	feedbackTimer *time.Timer
	handoffTimer  *time.Timer
	finishedAt    time.Time
	seq           uint64
}

// New builds a session in its initial state. No timers run until Start.
func New(opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	rules := opts.Rules.WithDefaults()
	s := &Session{
		id:        opts.ID,
		userID:    opts.UserID,
		daily:     opts.Daily,
		rules:     rules,
		cat:       opts.Catalog,
		rng:       opts.Rand,
		onHandoff: opts.OnHandoff,
		log:       log.With().Str("session", opts.ID).Str("user", opts.UserID).Logger(),
		startedAt: time.Now(),
		events:    make(chan event, 32),
		done:      make(chan struct{}),
		subs:      make(map[uint64]chan View),
		state:     game.New(rules),
	}
	s.touch()
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user, "" for guests.
func (s *Session) UserID() string { return s.userID }

// StartedAt is when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// LastActive is the time of the most recent player command.
func (s *Session) LastActive() time.Time { return time.Unix(0, s.lastActive.Load()) }

// HandedOff reports whether the final snapshot has been delivered.
func (s *Session) HandedOff() bool { return s.handedOff.Load() }

// Start launches the session loop. Calling it more than once has no effect.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.log.Info().Float64("width", s.rules.Field.Width).Float64("height", s.rules.Field.Height).Msg("session started")
		s.wg.Add(1)
		go s.run()
	})
}

// Close tears the session down: the loop exits, every ticker and timer is
// stopped and subscriber channels are closed. A session closed before its
// handoff is never handed off. A handoff callback already running is waited
// for, so results are persisted before shutdown moves on. Safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.stopTimers()
		s.handoffs.Wait()

		s.subsMu.Lock()
		s.closed = true
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
		s.subsMu.Unlock()
		s.log.Info().Msg("session closed")
	})
}

// BeginDrag starts dragging the falling item with instanceID.
func (s *Session) BeginDrag(ctx context.Context, instanceID string) (bool, View, error) {
	r, err := s.call(ctx, event{kind: evDrag, instanceID: instanceID})
	return r.ok, r.view, err
}

// Drop releases the dragged item over bin. When instanceID is set the drag
// is started first, so a client can send drag and drop as one command.
func (s *Session) Drop(ctx context.Context, instanceID, bin string) (game.DropResult, bool, View, error) {
	r, err := s.call(ctx, event{kind: evDrop, instanceID: instanceID, bin: bin})
	return r.drop, r.ok, r.view, err
}

// TogglePause flips running/paused and returns the new paused flag.
func (s *Session) TogglePause(ctx context.Context) (bool, View, error) {
	r, err := s.call(ctx, event{kind: evPause})
	return r.view.Paused, r.view, err
}

// PressKey handles a key press. Space, Escape, p and P toggle pause;
// other keys are ignored and reported with ok=false.
func (s *Session) PressKey(ctx context.Context, key string) (bool, View, error) {
	r, err := s.call(ctx, event{kind: evKey, key: key})
	return r.ok, r.view, err
}

// View returns the current frame.
func (s *Session) View(ctx context.Context) (View, error) {
	r, err := s.call(ctx, event{kind: evView})
	return r.view, err
}

// Subscribe returns a channel of frames published after every state change.
// Slow readers only ever see the latest frame. The returned func
// unsubscribes; the channel is also closed when the session closes.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// call sends a command to the loop and waits for its reply.
func (s *Session) call(ctx context.Context, ev event) (reply, error) {
	s.touch()
	ev.reply = make(chan reply, 1)
	select {
	case s.events <- ev:
	case <-s.done:
		return reply{}, ErrClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-ev.reply:
		return r, nil
	case <-s.done:
		return reply{}, ErrClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// enqueue is used by timers; it gives up once the session is closed.
func (s *Session) enqueue(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) touch() { s.lastActive.Store(time.Now().UnixNano()) }

func (s *Session) run() {
	defer s.wg.Done()

	period := game.SpawnRate(s.state.Level)
	motion := time.NewTicker(s.rules.Tick)
	spawn := time.NewTicker(period)
	defer motion.Stop()
	defer spawn.Stop()
	running := true

	for {
		select {
		case <-s.done:
			return
		case <-motion.C:
			s.handle(event{kind: evMotion})
		case <-spawn.C:
			s.handle(event{kind: evSpawn})
		case ev := <-s.events:
			r := s.handle(ev)
			if ev.reply != nil {
				ev.reply <- r
			}
		}

		active := s.state.Active()
		switch {
		case running && !active:
			motion.Stop()
			spawn.Stop()
			running = false
		case !running && active:
			motion.Reset(s.rules.Tick)
			spawn.Reset(period)
			running = true
		}
		if p := game.SpawnRate(s.state.Level); p != period {
			period = p
			if running {
				spawn.Reset(p)
			}
		}
	}
}

func (s *Session) stopTimers() {
	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
	}
	if s.handoffTimer != nil {
		s.handoffTimer.Stop()
	}
}
