// internal/game/rules.go
//
// Tunables and the level formulas.
//
//   - GameSpeed and SpawnRate tighten by level and floor out.
//   - Step converts a level's fall speed into pixels per motion tick.
//   - Zero-valued Rules fields fall back to DefaultRules via WithDefaults.

package game

import "time"

// Field is the visible play area in pixels.
type Field struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ItemSize float64 `json:"itemSize"`
	SpawnY   float64 `json:"spawnY"`
}

// Rules are the tunables of a session. DefaultRules matches the reference game.
type Rules struct {
	StartLives   int
	Points       int
	Field        Field
	Tick         time.Duration // motion update period
	FeedbackTTL  time.Duration
	HandoffDelay time.Duration

	// CountDrops makes dropped items advance ItemsFallen like fallout does.
	CountDrops bool
}

// DefaultRules returns the reference tuning.
func DefaultRules() Rules {
	return Rules{
		StartLives:   3,
		Points:       5,
		Field:        Field{Width: 1280, Height: 720, ItemSize: 100, SpawnY: -100},
		Tick:         16 * time.Millisecond,
		FeedbackTTL:  2 * time.Second,
		HandoffDelay: 2 * time.Second,
	}
}

// GameSpeed is the fall duration parameter for a level in milliseconds.
// Lower is faster; floors at 300.
func GameSpeed(level int) int {
	if level < 1 {
		level = 1
	}
	return max(1000-(level-1)*150, 300)
}

// SpawnRate is the spawn period for a level; floors at 800ms.
func SpawnRate(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	return time.Duration(max(2000-(level-1)*200, 800)) * time.Millisecond
}

// Step is how far every falling item moves in one motion tick at level.
func (r Rules) Step(level int) float64 {
	return 100 / float64(GameSpeed(level)) * (float64(r.Tick) / float64(time.Millisecond))
}

// SpawnX maps a unit random value u in [0,1) onto the horizontal spawn range.
func (r Rules) SpawnX(u float64) float64 {
	return u * max(r.Field.Width-r.Field.ItemSize, 0)
}

// WithDefaults fills zero-valued fields from DefaultRules.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	if r.StartLives <= 0 {
		r.StartLives = d.StartLives
	}
	if r.Points == 0 {
		r.Points = d.Points
	}
	if r.Field.Width <= 0 {
		r.Field.Width = d.Field.Width
	}
	if r.Field.Height == 0 {
		r.Field.Height = d.Field.Height
	}
	if r.Field.ItemSize <= 0 {
		r.Field.ItemSize = d.Field.ItemSize
	}
	if r.Field.SpawnY == 0 {
		r.Field.SpawnY = d.Field.SpawnY
	}
	if r.Tick <= 0 {
		r.Tick = d.Tick
	}
	if r.FeedbackTTL <= 0 {
		r.FeedbackTTL = d.FeedbackTTL
	}
	if r.HandoffDelay <= 0 {
		r.HandoffDelay = d.HandoffDelay
	}
	return r
}
