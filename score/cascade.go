package score

import "github.com/frc5881/tba-slackbot/frc"

// Comparator decides between two alliances' breakdowns, returning frc.None on an exact tie.
type Comparator[T any] func(red, blue T) frc.Color

// Points builds a comparator where the alliance with more of the given points wins.
func Points[T any](points func(T) int) Comparator[T] {
	return func(red, blue T) frc.Color { return frc.Compare(points(red), points(blue)) }
}

// Cascade runs comparators in order and stops at the first decision.
// Exhausting every comparator yields frc.None.
func Cascade[T any](red, blue T, comparators ...Comparator[T]) frc.Color {
	for _, cmp := range comparators {
		if c := cmp(red, blue); c != frc.None {
			return c
		}
	}
	return frc.None
}

// Rules is a season's winner rule: total points first, then tie-breakers in
// elimination play only.
type Rules[T any] struct {
	Total       func(T) int
	TieBreakers []Comparator[T]
}

// Decide applies the rules to a pair of alliance breakdowns.
func (r Rules[T]) Decide(red, blue T, level frc.CompLevel) frc.Color {
	if w := frc.Compare(r.Total(red), r.Total(blue)); w != frc.None || !level.IsElimination() {
		return w
	}
	return Cascade(red, blue, r.TieBreakers...)
}
