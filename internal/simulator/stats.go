package simulator

import (
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/lox/fairpoker/internal/game"
)

// Stats accumulates per-hand results in big blinds.
type Stats struct {
	Hands  int
	SumBB  float64
	SumBB2 float64 // Sum of squares for variance calculation
}

// Add records one hand.
func (s *Stats) Add(netBB float64) {
	s.Hands++
	s.SumBB += netBB
	s.SumBB2 += netBB * netBB
}

// Merge folds another set of results into s.
func (s *Stats) Merge(o Stats) {
	s.Hands += o.Hands
	s.SumBB += o.SumBB
	s.SumBB2 += o.SumBB2
}

// Mean returns big blinds won per hand.
func (s *Stats) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance.
func (s *Stats) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumBB2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

func (s *Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *Stats) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Stats) ConfidenceInterval95() (float64, float64) {
	margin := 1.96 * s.StdError()
	return s.Mean() - margin, s.Mean() + margin
}

// Results is the outcome of a simulation across all tables.
type Results struct {
	Tables      int
	Hands       int
	Showdowns   int
	Uncontested int
	Voided      int
	Events      map[game.EventType]int
	Strategies  map[string]*Stats
	Duration    time.Duration
}

func newResults() *Results {
	return &Results{
		Events:     make(map[game.EventType]int),
		Strategies: make(map[string]*Stats),
	}
}

func (r *Results) merge(o *Results) {
	r.Tables += o.Tables
	r.Hands += o.Hands
	r.Showdowns += o.Showdowns
	r.Uncontested += o.Uncontested
	r.Voided += o.Voided
	for t, n := range o.Events {
		r.Events[t] += n
	}
	for name, st := range o.Strategies {
		r.strategy(name).Merge(*st)
	}
}

func (r *Results) strategy(name string) *Stats {
	st, ok := r.Strategies[name]
	if !ok {
		st = &Stats{}
		r.Strategies[name] = st
	}
	return st
}

// PrintSummary writes a human readable report.
func PrintSummary(w io.Writer, r *Results) {
	fmt.Fprintf(w, "\n=== SIMULATION RESULTS ===\n")
	fmt.Fprintf(w, "Tables: %d\n", r.Tables)
	fmt.Fprintf(w, "Hands played: %d\n", r.Hands)
	if r.Duration > 0 && r.Hands > 0 {
		fmt.Fprintf(w, "Duration: %s (%.0f hands/sec)\n", r.Duration.Round(time.Millisecond), float64(r.Hands)/r.Duration.Seconds())
	}
	if r.Hands > 0 {
		fmt.Fprintf(w, "Showdowns: %d (%.1f%%), uncontested: %d (%.1f%%), voided: %d\n",
			r.Showdowns, pct(r.Showdowns, r.Hands), r.Uncontested, pct(r.Uncontested, r.Hands), r.Voided)
	}

	fmt.Fprintf(w, "\n=== STRATEGY RESULTS ===\n")
	names := make([]string, 0, len(r.Strategies))
	for name := range r.Strategies {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		st := r.Strategies[name]
		low, high := st.ConfidenceInterval95()
		fmt.Fprintf(w, "%-8s %6d hands  %8.3f bb/hand  sd %7.3f  95%% CI [%.3f, %.3f]\n",
			name, st.Hands, st.Mean(), st.StdDev(), low, high)
	}

	fmt.Fprintf(w, "\n=== EVENTS ===\n")
	types := make([]game.EventType, 0, len(r.Events))
	for t := range r.Events {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(w, "%-18s %d\n", t, r.Events[t])
	}
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}
