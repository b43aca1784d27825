// internal/game/engine.go
//
// Core game engine for a single waste-sorting session.
// Responsibilities:
//   - Spawn falling items and advance them once per motion tick.
//   - Remove items that leave the field, charging one life each.
//   - Resolve drops into bins: +Points for the right bin, -Points and a
//     Mistake for the wrong one.
//   - Track level progression and the terminal game-over transition.
//
// Notes:
//   - State is not safe for concurrent use. The session package owns one
//     State per goroutine and serializes every transition through it.
//   - Nothing here reads a clock or a random source; callers pass ids and
//     positions in, so every transition is deterministic under test.
package game

import (
	"github.com/samber/lo"

	"github.com/robalobadob/ecosort/internal/catalog"
)

// New constructs the starting state for a session. Zero-valued rules are
// filled from DefaultRules.
func New(rules Rules) *State {
	rules = rules.WithDefaults()
	return &State{
		Level:    1,
		Lives:    rules.StartLives,
		Mistakes: []Mistake{},
		Falling:  []FallingItem{},
		rules:    rules,
	}
}

// Rules returns the rules the state was created with.
func (s *State) Rules() Rules { return s.rules }

// Active reports whether the spawner and motion updater may act.
func (s *State) Active() bool { return !s.Over && !s.Paused }

// Spawn places item at horizontal position x on the spawn line.
// Returns false (and changes nothing) while paused or over.
func (s *State) Spawn(item catalog.Item, instanceID string, x float64) bool {
	if !s.Active() || instanceID == "" {
		return false
	}
	if _, _, dup := lo.FindIndexOf(s.Falling, func(f FallingItem) bool { return f.InstanceID == instanceID }); dup {
		return false
	}
	s.Falling = append(s.Falling, FallingItem{
		InstanceID: instanceID,
		Item:       item,
		X:          x,
		Y:          s.rules.Field.SpawnY,
	})
	return true
}

// Advance is one motion tick: every falling item moves down by Step(level),
// then items past the bottom edge are removed. Each removal costs a life and
// counts toward ItemsFallen. All removals of one tick are applied here as a
// single update; once lives reach zero the state freezes and the remaining
// out-of-field items are left where they are.
func (s *State) Advance() Fallout {
	var out Fallout
	if !s.Active() {
		return out
	}
	step := s.rules.Step(s.Level)
	for i := range s.Falling {
		s.Falling[i].Y += step
	}

	kept := s.Falling[:0]
	for i, f := range s.Falling {
		if s.Over || f.Y <= s.rules.Field.Height {
			kept = append(kept, s.Falling[i])
			continue
		}
		out.Removed = append(out.Removed, f)
		if s.Dragging == f.InstanceID {
			s.Dragging = ""
		}
		s.Lives = max(s.Lives-1, 0)
		s.ItemsFallen++
		if s.levelUp() {
			out.LevelUp = true
		}
		if s.Lives == 0 {
			s.Over = true
			s.Dragging = ""
			out.GameOver = true
		}
	}
	s.Falling = kept
	return out
}

// BeginDrag marks instanceID as the item being dragged.
// Unknown instances and drags while inactive are ignored.
func (s *State) BeginDrag(instanceID string) bool {
	if !s.Active() || s.indexOf(instanceID) < 0 {
		return false
	}
	s.Dragging = instanceID
	return true
}

// CancelDrag forgets the drag in progress, if any.
func (s *State) CancelDrag() { s.Dragging = "" }

// Drop resolves the drag in progress into bin.
//
// The dropped item leaves play regardless of correctness. Any bin that is not
// the item's category counts as incorrect, including unknown bin ids.
// Returns ok=false when there is nothing to drop: no drag in progress, the
// dragged item already fell out, or the session is paused or over.
// Lives are never touched by a drop.
func (s *State) Drop(bin string) (DropResult, bool) {
	id := s.Dragging
	s.Dragging = ""
	if id == "" || !s.Active() {
		return DropResult{}, false
	}
	i := s.indexOf(id)
	if i < 0 {
		return DropResult{}, false
	}
	f := s.Falling[i]
	s.Falling = append(s.Falling[:i], s.Falling[i+1:]...)

	res := DropResult{Item: f.Item, Bin: bin, CorrectBin: f.Item.Category}
	if c, ok := catalog.ParseCategory(bin); ok && c == f.Item.Category {
		res.Correct = true
		res.Delta = s.rules.Points
	} else {
		res.Delta = -s.rules.Points
		s.Mistakes = append(s.Mistakes, Mistake{
			Item:        f.Item,
			SelectedBin: bin,
			CorrectBin:  f.Item.Category,
		})
	}
	s.Score += res.Delta

	if s.rules.CountDrops {
		s.ItemsFallen++
		res.LevelUp = s.levelUp()
	}
	return res, true
}

// TogglePause flips between running and paused and returns the new flag.
// A finished session stays as it is.
func (s *State) TogglePause() bool {
	if !s.Over {
		s.Paused = !s.Paused
	}
	return s.Paused
}

// Snapshot copies the fields that survive the session.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Score:       s.Score,
		Level:       s.Level,
		Lives:       s.Lives,
		Mistakes:    append([]Mistake{}, s.Mistakes...),
		ItemsFallen: s.ItemsFallen,
		Paused:      s.Paused,
		Over:        s.Over,
	}
}

// FallingCopy returns a copy of the active items.
func (s *State) FallingCopy() []FallingItem {
	return append([]FallingItem{}, s.Falling...)
}

// levelUp applies the level rule for the current ItemsFallen value.
// It runs at most once per distinct value, so repeated checks in one tick
// cannot raise the level twice.
func (s *State) levelUp() bool {
	if s.ItemsFallen == s.levelCheckedAt {
		return false
	}
	s.levelCheckedAt = s.ItemsFallen
	if s.ItemsFallen > 0 && s.ItemsFallen%10 == 0 && s.ItemsFallen/10 == s.Level {
		s.Level++
		return true
	}
	return false
}

func (s *State) indexOf(instanceID string) int {
	if instanceID == "" {
		return -1
	}
	_, i, ok := lo.FindIndexOf(s.Falling, func(f FallingItem) bool { return f.InstanceID == instanceID })
	if !ok {
		return -1
	}
	return i
}
