// Package score decides which alliance won a match.
//
// Resolution order:
//   - an upstream winner label is authoritative;
//   - incomplete matches have no winner;
//   - a structured breakdown for a registered season is decided by that season's rules;
//   - everything else falls back to comparing the alliance scores.
//
// frc.None is returned for ties and for undetermined outcomes alike. Callers
// report it as "unknown" and never pick a side.
package score

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/frc5881/tba-slackbot/frc"
)

// Input is the subset of a match the resolver needs.
type Input struct {
	Key            string
	Year           int
	Level          frc.CompLevel
	DeclaredWinner string
	RedScore       *int
	BlueScore      *int
	Breakdown      json.RawMessage
}

// HasBreakdown reports whether a non-null score breakdown was supplied.
func (in Input) HasBreakdown() bool {
	b := bytes.TrimSpace(in.Breakdown)
	return len(b) > 0 && !bytes.Equal(b, []byte("null"))
}

// Complete reports whether the match has been played: a breakdown exists or
// either alliance has a non-negative score.
func (in Input) Complete() bool {
	if in.HasBreakdown() {
		return true
	}
	return (in.RedScore != nil && *in.RedScore >= 0) || (in.BlueScore != nil && *in.BlueScore >= 0)
}

// Season decides complete matches from a structured season breakdown.
type Season interface {
	Decide(breakdown json.RawMessage, level frc.CompLevel) (frc.Color, error)
}

// Registry maps a season year to its rules.
type Registry struct {
	mu      sync.RWMutex
	seasons map[int]Season
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{seasons: make(map[int]Season)} }

// DefaultRegistry returns a registry with every supported season.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(2016, Season2016{})
	return r
}

// Register adds or replaces the rules for a season.
func (r *Registry) Register(year int, s Season) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seasons[year] = s
}

// Lookup returns the rules for a season.
func (r *Registry) Lookup(year int) (Season, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.seasons[year]
	return s, ok
}

// Resolver computes match winners.
type Resolver struct {
	Registry *Registry
}

// NewResolver returns a resolver backed by reg, or by DefaultRegistry when reg is nil.
func NewResolver(reg *Registry) *Resolver {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Resolver{Registry: reg}
}

// WinningAlliance returns the winner of the match or frc.None.
func (r *Resolver) WinningAlliance(in Input) frc.Color {
	if c := frc.ParseColor(in.DeclaredWinner); c != frc.None {
		return c
	}
	if !in.Complete() {
		return frc.None
	}
	if !hasBothAlliances(in.Breakdown) {
		return numeric(in)
	}
	season, ok := r.Registry.Lookup(in.Year)
	if !ok {
		return numeric(in)
	}
	c, err := season.Decide(in.Breakdown, in.Level)
	if err != nil {
		slog.Debug("score breakdown undecodable, comparing scores", slog.String("match", in.Key), slog.Int("year", in.Year), slog.Any("err", err))
		return numeric(in)
	}
	return c
}

func numeric(in Input) frc.Color {
	if in.RedScore == nil || in.BlueScore == nil {
		return frc.None
	}
	return frc.Compare(*in.RedScore, *in.BlueScore)
}

func hasBothAlliances(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var halves struct {
		Red  json.RawMessage `json:"red"`
		Blue json.RawMessage `json:"blue"`
	}
	if err := json.Unmarshal(raw, &halves); err != nil {
		return false
	}
	isSet := func(b json.RawMessage) bool {
		b = bytes.TrimSpace(b)
		return len(b) > 0 && !bytes.Equal(b, []byte("null"))
	}
	return isSet(halves.Red) && isSet(halves.Blue)
}
