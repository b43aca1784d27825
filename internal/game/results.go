// internal/game/results.go
//
// End-of-game grading shown on the results screen.

package game

import "math"

// Rating buckets a game's accuracy.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGreat     Rating = "great"
	RatingGood      Rating = "good"
	RatingPractice  Rating = "keep-practicing"
)

// Accuracy is the percentage of fallen items not matched by a mistake,
// rounded to one decimal and floored at 0. A game where nothing fell scores
// 100.
func Accuracy(itemsFallen, mistakes int) float64 {
	if itemsFallen <= 0 {
		return 100
	}
	pct := float64(itemsFallen-mistakes) / float64(itemsFallen) * 100
	return math.Round(max(pct, 0)*10) / 10
}

// RatingFor maps an accuracy percentage onto its band.
func RatingFor(accuracy float64) Rating {
	switch {
	case accuracy >= 90:
		return RatingExcellent
	case accuracy >= 75:
		return RatingGreat
	case accuracy >= 60:
		return RatingGood
	default:
		return RatingPractice
	}
}

// Accuracy grades the snapshot.
func (s Snapshot) Accuracy() float64 { return Accuracy(s.ItemsFallen, len(s.Mistakes)) }
