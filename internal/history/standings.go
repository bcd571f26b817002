package history

import "sort"

// Row is one team's line in the league table.
type Row struct {
	Team         string `json:"team"`
	Played       int    `json:"played"`
	Wins         int    `json:"wins"`
	TimeWins     int    `json:"time_wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	Points       int    `json:"points"`
}

func (r Row) GoalDifference() int { return r.GoalsFor - r.GoalsAgainst }

// Standings folds records into a table ordered by points, goal difference,
// goals scored, then team name.
func Standings(records []MatchRecord) []Row {
	rows := map[string]*Row{}
	get := func(team string) *Row {
		r, ok := rows[team]
		if !ok {
			r = &Row{Team: team}
			rows[team] = r
		}
		return r
	}
	for _, rec := range records {
		a, b := get(rec.SlotA), get(rec.SlotB)
		if rec.Waiting != "" {
			get(rec.Waiting)
		}
		a.Played++
		b.Played++
		a.GoalsFor += rec.ScoreA
		a.GoalsAgainst += rec.ScoreB
		b.GoalsFor += rec.ScoreB
		b.GoalsAgainst += rec.ScoreA
		a.Points += rec.PointsA
		b.Points += rec.PointsB
		switch {
		case rec.Kind == KindDraw:
			a.Draws++
			b.Draws++
		case rec.Winner == rec.SlotA:
			tally(a, rec.Kind)
			b.Losses++
		case rec.Winner == rec.SlotB:
			tally(b, rec.Kind)
			a.Losses++
		}
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].GoalDifference() != out[j].GoalDifference() {
			return out[i].GoalDifference() > out[j].GoalDifference()
		}
		if out[i].GoalsFor != out[j].GoalsFor {
			return out[i].GoalsFor > out[j].GoalsFor
		}
		return out[i].Team < out[j].Team
	})
	return out
}

func tally(r *Row, kind string) {
	if kind == KindTimeWin {
		r.TimeWins++
		return
	}
	r.Wins++
}
