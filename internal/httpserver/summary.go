package httpserver

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/robalobadob/countryle/internal/controller"
)

// TargetSummary is the human-readable reveal shown when a game ends.
type TargetSummary struct {
	Country    string `json:"country"`
	Continent  string `json:"continent,omitempty"`
	Population string `json:"population,omitempty"`
	GDP        string `json:"gdp,omitempty"`
	MedianAge  string `json:"medianAge,omitempty"`
	Attempts   int    `json:"attempts"`
	Elapsed    string `json:"elapsed"`
	Closest    string `json:"closest,omitempty"` // nearest wrong guess
}

// summarize returns nil while the game is still running.
func summarize(v controller.View) *TargetSummary {
	if v.Target == nil {
		return nil
	}
	t := v.Target
	s := &TargetSummary{
		Country:  t.Name,
		Attempts: len(v.Guesses),
	}
	if t.Continent != nil {
		s.Continent = *t.Continent
	}
	if t.Population != nil {
		s.Population = compact(float64(*t.Population))
	}
	if t.GDP != nil {
		s.GDP = "$" + compact(*t.GDP)
	}
	if t.MedianAge != nil {
		s.MedianAge = humanize.FtoaWithDigits(*t.MedianAge, 1) + " years"
	}
	if v.FinishedAt != nil {
		s.Elapsed = v.FinishedAt.Sub(v.StartedAt).Round(time.Second).String()
	}

	best := -1
	for _, g := range v.Guesses {
		if g.IsCorrect || g.DistanceKm == nil {
			continue
		}
		if best < 0 || *g.DistanceKm < best {
			best = *g.DistanceKm
			s.Closest = g.Name + " (" + humanize.Comma(int64(best)) + " km)"
		}
	}
	return s
}

// compact renders large figures as 1.2B / 350.5M / 12.3K.
func compact(v float64) string {
	switch {
	case v >= 1e9:
		return humanize.CommafWithDigits(v/1e9, 1) + "B"
	case v >= 1e6:
		return humanize.CommafWithDigits(v/1e6, 1) + "M"
	case v >= 1e3:
		return humanize.CommafWithDigits(v/1e3, 1) + "K"
	}
	return humanize.CommafWithDigits(v, 1)
}
