// Package subscription resolves which chat channels follow the teams an
// upstream message is about, and how much they want to hear.
package subscription

import (
	"fmt"
	"strings"
)

// Level is a channel's notification verbosity for a followed team.
// Higher values are more verbose.
type Level int

const (
	LevelUnknown Level = iota
	LevelSummary
	LevelResult
	LevelAll
)

var levelNames = map[Level]string{
	LevelSummary: "summary",
	LevelResult:  "result",
	LevelAll:     "all",
}

// ParseLevel parses all, result or summary.
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return l, nil
		}
	}
	return LevelUnknown, fmt.Errorf("unknown subscription level %q", s)
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether l is one of the named levels.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// Merge returns the more verbose of two levels.
func (l Level) Merge(o Level) Level { return max(l, o) }

// Accepts reports whether a channel at this level wants notices of topic.
func (l Level) Accepts(t Topic) bool {
	switch t {
	case TopicAwards:
		return l.Valid()
	case TopicMatchScore:
		return l >= LevelResult
	default:
		return l == LevelAll
	}
}

func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid subscription level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Topic is the kind of notice a channel may receive.
type Topic string

const (
	TopicUpcomingMatch     Topic = "upcoming_match"
	TopicMatchScore        Topic = "match_score"
	TopicAllianceSelection Topic = "alliance_selection"
	TopicSchedule          Topic = "schedule"
	TopicAwards            Topic = "awards_posted"
)
