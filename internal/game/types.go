// internal/game/types.go
//
// Core type definitions for the waste-sorting game engine.
// Defines:
//   - FallingItem: one spawned catalog item on its way down.
//   - Mistake:     an incorrect drop, kept for the results view.
//   - State:       the whole mutable state of one session.
//   - Snapshot:    an immutable copy handed to other layers.

package game

import "github.com/robalobadob/ecosort/internal/catalog"

// FallingItem is a catalog item currently in play.
// Y grows downward; the item is out of play once Y exceeds the field height.
type FallingItem struct {
	InstanceID string       `json:"instanceId"`
	Item       catalog.Item `json:"item"`
	X          float64      `json:"x"`
	Y          float64      `json:"y"`
}

// Mistake records one incorrect drop.
// SelectedBin is a string because any bin id is accepted, not only known categories.
type Mistake struct {
	Item        catalog.Item     `json:"item"`
	SelectedBin string           `json:"selectedCategory"`
	CorrectBin  catalog.Category `json:"correctCategory"`
}

// State holds the state of a single session.
type State struct {
	Score       int           // May go negative.
	Level       int           // Starts at 1, never decreases.
	Lives       int           // Starts at Rules.StartLives, floor 0.
	Mistakes    []Mistake     // Append-only.
	Over        bool          // Terminal once set.
	ItemsFallen int           // Level progression counter.
	Paused      bool          //
	Falling     []FallingItem // Active items, unique by InstanceID.
	Dragging    string        // InstanceID of the drag in progress, "" if none.

	rules          Rules
	levelCheckedAt int // ItemsFallen value the level-up rule last ran for.
}

// Snapshot is a copy of the session fields that outlive the session.
type Snapshot struct {
	Score       int       `json:"score"`
	Level       int       `json:"level"`
	Lives       int       `json:"lives"`
	Mistakes    []Mistake `json:"mistakes"`
	ItemsFallen int       `json:"itemsFallen"`
	Paused      bool      `json:"isPaused"`
	Over        bool      `json:"isGameOver"`
}

// Fallout reports what a motion tick removed.
type Fallout struct {
	Removed  []FallingItem
	LevelUp  bool
	GameOver bool // true only on the tick that ended the session
}

// DropResult describes a resolved drop.
type DropResult struct {
	Item       catalog.Item     `json:"item"`
	Bin        string           `json:"bin"`
	Correct    bool             `json:"correct"`
	CorrectBin catalog.Category `json:"correctBin"`
	Delta      int              `json:"delta"`
	LevelUp    bool             `json:"levelUp"`
}
