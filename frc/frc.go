// Package frc holds the small shared vocabulary of FIRST Robotics Competition data:
// alliance colors, competition levels and team keys.
package frc

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an alliance color. The zero value means no alliance (tie or unknown).
type Color string

const (
	None Color = ""
	Red  Color = "red"
	Blue Color = "blue"
)

// ParseColor maps an upstream alliance label to a Color. Anything else is None.
func ParseColor(s string) Color {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return Red
	case "blue":
		return Blue
	}
	return None
}

// Opponent returns the other alliance.
func (c Color) Opponent() Color {
	switch c {
	case Red:
		return Blue
	case Blue:
		return Red
	}
	return None
}

// Compare returns the color of the larger value, or None when equal.
func Compare[T int | float64](red, blue T) Color {
	switch {
	case red > blue:
		return Red
	case blue > red:
		return Blue
	}
	return None
}

// CompLevel is a competition level. Values are ordered qm < ef < qf < sf < f.
type CompLevel int

// UnknownLevel marks a comp_level code this package does not recognise. It
// orders below Qualification and is never an elimination level.
const UnknownLevel CompLevel = -1

const (
	Qualification CompLevel = iota
	Octofinal
	Quarterfinal
	Semifinal
	Final
)

var compLevelCodes = [...]string{"qm", "ef", "qf", "sf", "f"}

// ParseCompLevel parses an upstream comp_level code.
func ParseCompLevel(s string) (CompLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, code := range compLevelCodes {
		if code == s {
			return CompLevel(i), nil
		}
	}
	return Qualification, fmt.Errorf("unknown comp level %q", s)
}

func (l CompLevel) String() string {
	if l < 0 || int(l) >= len(compLevelCodes) {
		return "unknown"
	}
	return compLevelCodes[l]
}

// IsElimination reports whether ties are broken at this level.
func (l CompLevel) IsElimination() bool { return l > Qualification }

// MarshalText encodes the level as its upstream code.
func (l CompLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText decodes an upstream code. Unrecognised codes decode to
// UnknownLevel so one odd match does not fail a whole match list.
func (l *CompLevel) UnmarshalText(b []byte) error {
	v, err := ParseCompLevel(string(b))
	if err != nil {
		v = UnknownLevel
	}
	*l = v
	return nil
}

// TeamKey returns the upstream key for a team number, e.g. frc5881.
func TeamKey(number int) string { return "frc" + strconv.Itoa(number) }

// ParseTeamKey strips the frc prefix from a team key. Bare numbers are accepted.
func ParseTeamKey(key string) (int, error) {
	s := strings.TrimSpace(key)
	if len(s) > 3 && strings.EqualFold(s[:3], "frc") {
		s = s[3:]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid team key %q", key)
	}
	return n, nil
}

// ParseTeamKeys parses a list of keys, skipping entries that are not team keys.
func ParseTeamKeys(keys []string) []int {
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		if n, err := ParseTeamKey(k); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// SeasonFromKey returns the year prefix of an event or match key (2016nytr → 2016).
func SeasonFromKey(key string) int {
	if len(key) < 4 {
		return 0
	}
	y, err := strconv.Atoi(key[:4])
	if err != nil {
		return 0
	}
	return y
}

// EventKeyFromMatchKey returns the event portion of a match key (2016nytr_qm12 → 2016nytr).
func EventKeyFromMatchKey(key string) string {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return key
}
