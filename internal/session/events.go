// internal/session/events.go
//
// Event handling for the session loop. Every timer, ticker and player
// command becomes an event applied by the loop goroutine; nothing else
// touches game state.

package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/ecosort/internal/catalog"
	"github.com/robalobadob/ecosort/internal/game"
)

type eventKind int

const (
	evSpawn eventKind = iota
	evMotion
	evDrag
	evDrop
	evPause
	evKey
	evView
	evFeedbackExpired
	evHandoff
)

type event struct {
	kind       eventKind
	instanceID string
	bin        string
	key        string
	gen        uint64
	reply      chan reply
}

type reply struct {
	ok   bool
	drop game.DropResult
	view View
}

// Feedback is the transient result of the last drop. It clears itself
// FeedbackTTL after it was raised; a newer drop replaces it and restarts
// the countdown.
type Feedback struct {
	Correct    bool             `json:"correct"`
	Item       *catalog.Item    `json:"item,omitempty"`
	CorrectBin catalog.Category `json:"correctBin,omitempty"`
	ExpiresAt  time.Time        `json:"expiresAt"`
}

// View is one rendered frame of a session.
type View struct {
	ID    string `json:"id"`
	Daily string `json:"daily,omitempty"`
	game.Snapshot
	Falling        []game.FallingItem `json:"falling"`
	Dragging       string             `json:"dragging,omitempty"`
	Feedback       *Feedback          `json:"feedback,omitempty"`
	HighlightedBin string             `json:"highlightedBin,omitempty"`
	GameSpeed      int                `json:"gameSpeed"`
	SpawnRateMs    int64              `json:"spawnRateMs"`
	Field          game.Field         `json:"field"`
	HandedOff      bool               `json:"handedOff"`
	Seq            uint64             `json:"seq"`
}

// pauseKeys are the keys that toggle pause.
var pauseKeys = map[string]bool{" ": true, "Space": true, "Escape": true, "p": true, "P": true}

// handle applies one event to the state. Only the run goroutine calls it.
func (s *Session) handle(ev event) reply {
	var r reply
	changed := false

	switch ev.kind {
	case evSpawn:
		if s.state.Active() {
			item := s.cat.PickRandom(s.rng)
			changed = s.state.Spawn(item, uuid.NewString(), s.rules.SpawnX(s.rng.Float64()))
		}

	case evMotion:
		if !s.state.Active() {
			break
		}
		out := s.state.Advance()
		changed = true
		if len(out.Removed) > 0 {
			s.log.Debug().Int("count", len(out.Removed)).Int("lives", s.state.Lives).Msg("items fell out")
		}
		if out.LevelUp {
			s.log.Info().Int("level", s.state.Level).Msg("level up")
		}
		if out.GameOver {
			s.enterGameOver()
		}

	case evDrag:
		r.ok = s.state.BeginDrag(ev.instanceID)
		changed = r.ok

	case evDrop:
		if ev.instanceID != "" && !s.state.BeginDrag(ev.instanceID) {
			s.state.CancelDrag()
			break
		}
		r.drop, r.ok = s.state.Drop(ev.bin)
		if r.ok {
			s.raiseFeedback(r.drop)
			changed = true
			if r.drop.LevelUp {
				s.log.Info().Int("level", s.state.Level).Msg("level up")
			}
		}

	case evPause:
		if !s.state.Over {
			s.state.TogglePause()
			r.ok = true
			changed = true
		}

	case evKey:
		if pauseKeys[ev.key] && !s.state.Over {
			s.state.TogglePause()
			r.ok = true
			changed = true
		}

	case evFeedbackExpired:
		if ev.gen == s.feedbackGen && (s.feedback != nil || s.highlight != "") {
			s.feedback = nil
			s.highlight = ""
			changed = true
		}

	case evHandoff:
		changed = s.handoff()

	case evView:
	}

	if changed {
		s.publish()
	}
	if ev.reply != nil {
		r.view = s.view()
	}
	return r
}

// raiseFeedback shows the outcome of a drop and restarts the expiry timer.
// An incorrect drop also highlights the bin the item was dropped on.
func (s *Session) raiseFeedback(res game.DropResult) {
	s.feedbackGen++
	gen := s.feedbackGen
	fb := &Feedback{Correct: res.Correct, ExpiresAt: time.Now().Add(s.rules.FeedbackTTL)}
	if !res.Correct {
		item := res.Item
		fb.Item = &item
		fb.CorrectBin = res.CorrectBin
		s.highlight = res.Bin
	}
	s.feedback = fb

	if s.feedbackTimer != nil {
		s.feedbackTimer.Stop()
	}
	s.feedbackTimer = time.AfterFunc(s.rules.FeedbackTTL, func() {
		s.enqueue(event{kind: evFeedbackExpired, gen: gen})
	})
}

// enterGameOver freezes the session and schedules the one-time handoff.
func (s *Session) enterGameOver() {
	s.finishedAt = time.Now()
	s.log.Info().Int("score", s.state.Score).Int("level", s.state.Level).
		Int("mistakes", len(s.state.Mistakes)).Msg("game over")
	if s.handoffTimer != nil {
		return
	}
	s.handoffTimer = time.AfterFunc(s.rules.HandoffDelay, func() {
		s.enqueue(event{kind: evHandoff})
	})
}

// handoff delivers the final snapshot exactly once.
func (s *Session) handoff() bool {
	if !s.state.Over || !s.handedOff.CompareAndSwap(false, true) {
		return false
	}
	h := Handoff{
		SessionID:  s.id,
		Daily:      s.daily,
		UserID:     s.userID,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
		Final:      s.state.Snapshot(),
	}
	s.log.Info().Int("score", h.Final.Score).Float64("accuracy", h.Final.Accuracy()).Msg("handoff")
	if s.onHandoff != nil {
		s.handoffs.Add(1)
		go func() {
			defer s.handoffs.Done()
			s.onHandoff(h)
		}()
	}
	return true
}

func (s *Session) view() View {
	return View{
		ID:             s.id,
		Daily:          s.daily,
		Snapshot:       s.state.Snapshot(),
		Falling:        s.state.FallingCopy(),
		Dragging:       s.state.Dragging,
		Feedback:       s.feedback,
		HighlightedBin: s.highlight,
		GameSpeed:      game.GameSpeed(s.state.Level),
		SpawnRateMs:    game.SpawnRate(s.state.Level).Milliseconds(),
		Field:          s.rules.Field,
		HandedOff:      s.handedOff.Load(),
		Seq:            s.seq,
	}
}

// publish pushes the current frame to every subscriber, replacing a frame
// the subscriber has not read yet.
func (s *Session) publish() {
	s.seq++
	v := s.view()
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
