package tba

import (
	"encoding/json"
	"strconv"
	"strings"
)

const recordColumn = "Record (W-L-T)"

// Rankings is an event ranking table. The first upstream row is the header;
// column layout varies by season so cells are kept as strings.
type Rankings struct {
	Header []string
	Rows   []Ranking
}

// UnmarshalJSON decodes the upstream array-of-arrays table.
func (r *Rankings) UnmarshalJSON(b []byte) error {
	var table [][]any
	if err := json.Unmarshal(b, &table); err != nil {
		return err
	}
	r.Header, r.Rows = nil, nil
	if len(table) == 0 {
		return nil
	}
	r.Header = cells(table[0])
	for _, row := range table[1:] {
		r.Rows = append(r.Rows, Ranking{header: r.Header, cells: cells(row)})
	}
	return nil
}

// Count is the number of ranked teams.
func (r *Rankings) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// RankingForTeam returns the team's row, or nil.
func (r *Rankings) RankingForTeam(team int) *Ranking {
	if r == nil {
		return nil
	}
	for i := range r.Rows {
		if r.Rows[i].Team() == team {
			return &r.Rows[i]
		}
	}
	return nil
}

// Ranking is one row of a ranking table.
type Ranking struct {
	header []string
	cells  []string
}

// Rank is the first column.
func (r Ranking) Rank() int { return r.intAt(0) }

// Team is the second column.
func (r Ranking) Team() int { return r.intAt(1) }

// Column returns a cell by header name, case-insensitively.
func (r Ranking) Column(name string) (string, bool) {
	for i, h := range r.header {
		if strings.EqualFold(h, name) && i < len(r.cells) {
			return r.cells[i], true
		}
	}
	return "", false
}

// Record parses the "Record (W-L-T)" column when the season reports one.
func (r Ranking) Record() (Record, bool) {
	v, ok := r.Column(recordColumn)
	if !ok || v == "" {
		return Record{}, false
	}
	parts := strings.Split(v, "-")
	if len(parts) != 3 {
		return Record{}, false
	}
	var n [3]int
	for i, p := range parts {
		x, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Record{}, false
		}
		n[i] = x
	}
	return Record{Wins: n[0], Losses: n[1], Ties: n[2]}, true
}

func (r Ranking) intAt(i int) int {
	if i >= len(r.cells) {
		return 0
	}
	s := r.cells[i]
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	n, _ := strconv.Atoi(strings.TrimPrefix(s, "frc"))
	return n
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(x)
		default:
			b, _ := json.Marshal(x)
			out[i] = string(b)
		}
	}
	return out
}
