package game

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/ecosort/internal/catalog"
)

var (
	banana  = catalog.Item{ID: "banana-peel", Name: "Banana Peel", Category: catalog.Wet}
	paper   = catalog.Item{ID: "newspaper", Name: "Newspaper", Category: catalog.Dry}
	battery = catalog.Item{ID: "battery", Name: "Battery", Category: catalog.Toxic}
)

// dropOut puts every falling item one step above the bottom edge so the
// next Advance removes all of them.
func dropOut(s *State) {
	for i := range s.Falling {
		s.Falling[i].Y = s.rules.Field.Height
	}
}

func TestGameSpeedAndSpawnRate(t *testing.T) {
	assert.Equal(t, 1000, GameSpeed(1))
	assert.Equal(t, 400, GameSpeed(5))
	assert.Equal(t, 300, GameSpeed(10))
	assert.Equal(t, 2000*time.Millisecond, SpawnRate(1))
	assert.Equal(t, 1200*time.Millisecond, SpawnRate(5))
	assert.Equal(t, 800*time.Millisecond, SpawnRate(8))
	assert.Equal(t, 800*time.Millisecond, SpawnRate(30))

	for l := 1; l < 40; l++ {
		assert.Equal(t, max(1000-(l-1)*150, 300), GameSpeed(l), "level %d", l)
		assert.Equal(t, time.Duration(max(2000-(l-1)*200, 800))*time.Millisecond, SpawnRate(l), "level %d", l)
		assert.LessOrEqual(t, GameSpeed(l+1), GameSpeed(l))
		assert.LessOrEqual(t, SpawnRate(l+1), SpawnRate(l))
	}
}

func TestStepUsesTickAndSpeed(t *testing.T) {
	r := DefaultRules()
	assert.InDelta(t, 1.6, r.Step(1), 1e-9)
	assert.InDelta(t, 4.0, r.Step(5), 1e-9)
	assert.InDelta(t, 0.0, r.SpawnX(0), 1e-9)
	assert.InDelta(t, 1180*0.5, r.SpawnX(0.5), 1e-9)
}

func TestStepKeepsSubMillisecondTicks(t *testing.T) {
	r := DefaultRules()
	r.Tick = 1500 * time.Microsecond
	assert.InDelta(t, 0.15, r.Step(1), 1e-9)
}

func TestNewFillsZeroRules(t *testing.T) {
	s := New(Rules{})
	assert.Equal(t, DefaultRules(), s.Rules())
	assert.Equal(t, 3, s.Lives)

	require.True(t, s.Spawn(banana, "a", 10))
	s.Advance()
	assert.Greater(t, s.Falling[0].Y, -100.0)
}

func TestNewState(t *testing.T) {
	s := New(DefaultRules())
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, 3, s.Lives)
	assert.Equal(t, 0, s.ItemsFallen)
	assert.False(t, s.Over)
	assert.False(t, s.Paused)
	assert.Empty(t, s.Mistakes)
	assert.Empty(t, s.Falling)
}

func TestSpawnGating(t *testing.T) {
	s := New(DefaultRules())
	require.True(t, s.Spawn(banana, "a", 10))
	assert.Equal(t, -100.0, s.Falling[0].Y)
	assert.False(t, s.Spawn(paper, "a", 20), "duplicate instance id")

	s.TogglePause()
	assert.False(t, s.Spawn(paper, "b", 20))
	s.TogglePause()
	assert.True(t, s.Spawn(paper, "b", 20))

	s.Over = true
	assert.False(t, s.Spawn(battery, "c", 30))
	assert.Len(t, s.Falling, 2)
}

func TestAdvanceMovesItems(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	out := s.Advance()
	assert.Empty(t, out.Removed)
	assert.InDelta(t, -98.4, s.Falling[0].Y, 1e-9)
}

func TestFalloutCostsOneLifeEach(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.Spawn(paper, "b", 0)
	s.Falling[0].Y = s.rules.Field.Height // out after this tick

	out := s.Advance()
	require.Len(t, out.Removed, 1)
	assert.Equal(t, "a", out.Removed[0].InstanceID)
	assert.Equal(t, 2, s.Lives)
	assert.Equal(t, 1, s.ItemsFallen)
	assert.Len(t, s.Falling, 1)
	assert.False(t, out.GameOver)

	// An item that ends the tick on the edge is still in play.
	s.Falling[0].Y = s.rules.Field.Height - 10
	out = s.Advance()
	assert.Empty(t, out.Removed)
	assert.Equal(t, 2, s.Lives)
}

func TestFalloutClearsDrag(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	require.True(t, s.BeginDrag("a"))
	dropOut(s)
	s.Advance()

	// The item fell out; it must not also be resolved as a drop.
	res, ok := s.Drop(string(catalog.Wet))
	assert.False(t, ok)
	assert.Equal(t, DropResult{}, res)
	assert.Equal(t, 0, s.Score)
	assert.Equal(t, 2, s.Lives)
}

func TestPausedAdvanceIsInert(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	dropOut(s)
	s.TogglePause()
	out := s.Advance()
	assert.Empty(t, out.Removed)
	assert.Equal(t, s.rules.Field.Height, s.Falling[0].Y)
	assert.Equal(t, 3, s.Lives)
}

func TestTogglePauseTwiceIsIdentity(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 42)
	s.Advance()
	before := *s
	beforeFalling := s.FallingCopy()

	assert.True(t, s.TogglePause())
	assert.False(t, s.TogglePause())

	assert.Equal(t, before.Paused, s.Paused)
	assert.Equal(t, before.Score, s.Score)
	assert.Equal(t, before.Level, s.Level)
	assert.Equal(t, before.Lives, s.Lives)
	assert.Empty(t, cmp.Diff(beforeFalling, s.Falling))
}

func TestCorrectDrop(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.Spawn(paper, "b", 0)
	require.True(t, s.BeginDrag("a"))

	res, ok := s.Drop("wet")
	require.True(t, ok)
	assert.True(t, res.Correct)
	assert.Equal(t, 5, res.Delta)
	assert.Equal(t, 5, s.Score)
	assert.Empty(t, s.Mistakes)
	assert.Len(t, s.Falling, 1)
	assert.Equal(t, "b", s.Falling[0].InstanceID)
	assert.Equal(t, 3, s.Lives)
	assert.Equal(t, 0, s.ItemsFallen)
	assert.Empty(t, s.Dragging)
}

func TestIncorrectDrop(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(battery, "a", 0)
	require.True(t, s.BeginDrag("a"))

	res, ok := s.Drop("dry")
	require.True(t, ok)
	assert.False(t, res.Correct)
	assert.Equal(t, catalog.Toxic, res.CorrectBin)
	assert.Equal(t, -5, s.Score)
	require.Len(t, s.Mistakes, 1)
	assert.Equal(t, Mistake{Item: battery, SelectedBin: "dry", CorrectBin: catalog.Toxic}, s.Mistakes[0])
	assert.NotEqual(t, string(s.Mistakes[0].CorrectBin), s.Mistakes[0].SelectedBin)
	assert.Empty(t, s.Falling)
	assert.Equal(t, 3, s.Lives)
	assert.Equal(t, 0, s.ItemsFallen)
}

func TestUnknownBinIsIncorrect(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.BeginDrag("a")
	res, ok := s.Drop("compost")
	require.True(t, ok)
	assert.False(t, res.Correct)
	assert.Equal(t, -5, s.Score)
	assert.Len(t, s.Mistakes, 1)
}

func TestDropWithoutDragIsNoop(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	_, ok := s.Drop("wet")
	assert.False(t, ok)
	assert.Len(t, s.Falling, 1)
	assert.Equal(t, 0, s.Score)

	assert.False(t, s.BeginDrag("missing"))
	_, ok = s.Drop("wet")
	assert.False(t, ok)
}

func TestDropWhilePausedIsNoop(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.BeginDrag("a")
	s.TogglePause()
	_, ok := s.Drop("wet")
	assert.False(t, ok)
	assert.Len(t, s.Falling, 1)
	assert.Equal(t, 0, s.Score)
	assert.False(t, s.BeginDrag("a"))
}

func TestDropRemovesOnlyThatInstance(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.Spawn(banana, "b", 0)
	s.BeginDrag("b")
	_, ok := s.Drop("wet")
	require.True(t, ok)
	require.Len(t, s.Falling, 1)
	assert.Equal(t, "a", s.Falling[0].InstanceID)
}

func TestLevelUpOncePerThreshold(t *testing.T) {
	r := DefaultRules()
	r.StartLives = 100
	s := New(r)

	levels := map[int]int{}
	for n := 1; n <= 25; n++ {
		s.Spawn(banana, fmt.Sprint(n), 0)
		dropOut(s)
		s.Advance()
		levels[s.ItemsFallen] = s.Level
		// A second evaluation for the same ItemsFallen must not fire again.
		assert.False(t, s.levelUp())
	}
	assert.Equal(t, 1, levels[9])
	assert.Equal(t, 2, levels[10])
	assert.Equal(t, 2, levels[19])
	assert.Equal(t, 3, levels[20])
	assert.Equal(t, 3, levels[25])
}

func TestLevelUpAcrossOneTick(t *testing.T) {
	r := DefaultRules()
	r.StartLives = 100
	s := New(r)
	for n := 0; n < 12; n++ {
		s.Spawn(paper, fmt.Sprint(n), 0)
	}
	dropOut(s)
	out := s.Advance()
	assert.Len(t, out.Removed, 12)
	assert.True(t, out.LevelUp)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, 12, s.ItemsFallen)
}

func TestCountDropsAdvancesLevel(t *testing.T) {
	r := DefaultRules()
	r.CountDrops = true
	s := New(r)
	for n := 0; n < 10; n++ {
		id := fmt.Sprint(n)
		s.Spawn(banana, id, 0)
		s.BeginDrag(id)
		_, ok := s.Drop("wet")
		require.True(t, ok)
	}
	assert.Equal(t, 10, s.ItemsFallen)
	assert.Equal(t, 2, s.Level)
	assert.Equal(t, 3, s.Lives)
	assert.Equal(t, 50, s.Score)
}

func TestGameOverIsTerminal(t *testing.T) {
	s := New(DefaultRules())
	for n := 0; n < 10; n++ {
		require.True(t, s.Spawn(banana, fmt.Sprint(n), 0))
	}
	dropOut(s)

	out := s.Advance()
	assert.True(t, out.GameOver)
	assert.Len(t, out.Removed, 3)
	assert.True(t, s.Over)
	assert.Equal(t, 0, s.Lives)
	assert.Equal(t, 3, s.ItemsFallen)
	assert.Equal(t, 0, s.Score)
	assert.Empty(t, s.Mistakes)

	frozen := s.Snapshot()
	frozenFalling := s.FallingCopy()

	again := s.Advance()
	assert.False(t, again.GameOver)
	assert.Empty(t, again.Removed)
	assert.False(t, s.Spawn(paper, "late", 0))
	assert.False(t, s.BeginDrag("5"))
	s.Dragging = "5"
	_, ok := s.Drop("wet")
	assert.False(t, ok)
	assert.False(t, s.TogglePause())

	assert.Empty(t, cmp.Diff(frozen, s.Snapshot()))
	assert.Empty(t, cmp.Diff(frozenFalling, s.Falling))
}

func TestCorrectThenIncorrectDrop(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(banana, "a", 0)
	s.Spawn(battery, "b", 0)

	s.BeginDrag("a")
	_, ok := s.Drop("wet")
	require.True(t, ok)
	s.BeginDrag("b")
	_, ok = s.Drop("wet")
	require.True(t, ok)

	assert.Equal(t, 0, s.Score)
	require.Len(t, s.Mistakes, 1)
	assert.Equal(t, battery, s.Mistakes[0].Item)
	assert.Equal(t, "wet", s.Mistakes[0].SelectedBin)
	assert.Equal(t, catalog.Toxic, s.Mistakes[0].CorrectBin)
	assert.Empty(t, s.Falling)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New(DefaultRules())
	s.Spawn(battery, "a", 0)
	s.BeginDrag("a")
	s.Drop("wet")

	snap := s.Snapshot()
	snap.Mistakes[0].SelectedBin = "changed"
	assert.Equal(t, "wet", s.Mistakes[0].SelectedBin)
}

func TestMistakeWireNames(t *testing.T) {
	b, err := json.Marshal(Mistake{Item: battery, SelectedBin: "dry", CorrectBin: catalog.Toxic})
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "dry", got["selectedCategory"])
	assert.Equal(t, "toxic", got["correctCategory"])
	assert.NotContains(t, got, "selectedBin")
}
