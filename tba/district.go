package tba

import "strconv"

// District is a district in a given season. Year is not part of the upstream
// payload and is set by the client.
type District struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Year int    `json:"-"`
}

// YearKey is the season-qualified key used by team district history (2016pnw).
func (d District) YearKey() string { return strconv.Itoa(d.Year) + d.Key }
