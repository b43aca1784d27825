// internal/scores/localities.go
//
// Community rankings. Every recorded score counts towards the player's
// locality: their housing society, or their ward when no society was given.
// Players who gave neither are grouped under "Unknown".

package scores

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TopPlayersPerLocality caps Locality.TopPlayers.
const TopPlayersPerLocality = 5

const unknownLocality = "Unknown"

// Locality is one community's standing.
type Locality struct {
	Rank         int     `json:"rank"`
	Locality     string  `json:"locality"`
	Ward         string  `json:"ward,omitempty"`
	TotalScore   int     `json:"totalScore"`
	Players      int     `json:"totalPlayers"`
	Games        int     `json:"games"`
	AverageScore int     `json:"averageScore"`
	TopPlayers   []Score `json:"topPlayers"`
}

type localityRow struct {
	Score
	society string
	ward    string
}

func (r localityRow) locality() string {
	if s := strings.TrimSpace(r.society); s != "" {
		return s
	}
	if w := strings.TrimSpace(r.ward); w != "" {
		return w
	}
	return unknownLocality
}

// Localities ranks communities by their summed score, highest first. The
// average is per game, rounded to the nearest point.
func (s *Store) Localities(ctx context.Context) ([]Locality, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT s.id, s.user_id, s.name, s.score, s.level, s.game_type, s.date, u.society, u.ward
        FROM scores s
        JOIN users u ON u.id = s.user_id
        ORDER BY s.score DESC, s.date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []localityRow
	for rows.Next() {
		var r localityRow
		var date string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Score.Score, &r.Level, &r.GameType, &date, &r.society, &r.ward); err != nil {
			return nil, err
		}
		r.Date, _ = time.Parse(dateLayout, date)
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := []Locality{}
	for name, group := range lo.GroupBy(all, localityRow.locality) {
		total := lo.SumBy(group, func(r localityRow) int { return r.Score.Score })
		wards := lo.Compact(lo.Map(group, func(r localityRow, _ int) string { return strings.TrimSpace(r.ward) }))
		top := lo.Map(group, func(r localityRow, _ int) Score { return r.Score })
		out = append(out, Locality{
			Locality:     name,
			Ward:         lo.FirstOrEmpty(wards),
			TotalScore:   total,
			Players:      len(lo.UniqBy(group, func(r localityRow) string { return r.UserID })),
			Games:        len(group),
			AverageScore: int(math.Round(float64(total) / float64(len(group)))),
			TopPlayers:   top[:min(len(top), TopPlayersPerLocality)],
		})
	}
	slices.SortFunc(out, func(a, b Locality) int {
		if a.TotalScore != b.TotalScore {
			return b.TotalScore - a.TotalScore
		}
		return strings.Compare(a.Locality, b.Locality)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}
