package matching

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/okian/rallyeval/internal/domain/model"
	"github.com/okian/rallyeval/internal/domain/types"
)

// Column is a contingency table column.
type Column int

// Table columns.
const (
	Correct Column = iota
	Incorrect
)

func (c Column) String() string {
	if c == Incorrect {
		return "Incorrect"
	}
	return "Correct"
}

// Table is the fixed-shape contingency table: rows Hit and Bounce,
// columns Correct and Incorrect. The zero value is an all-zero table.
type Table struct {
	counts [2][2]int
}

func (t *Table) add(et model.EventType, c Column, n int) {
	t.counts[et][c] += n
}

// Get returns the count in the given cell.
func (t Table) Get(et model.EventType, c Column) int {
	return t.counts[et][c]
}

// Total returns the number of ground-truth events of type et.
func (t Table) Total(et model.EventType) int {
	return t.counts[et][Correct] + t.counts[et][Incorrect]
}

// Recall returns Correct/Total for et, or 0 when there are no events.
func (t Table) Recall(et model.EventType) float64 {
	total := t.Total(et)
	if total == 0 {
		return 0
	}
	return float64(t.counts[et][Correct]) / float64(total)
}

// Rows returns the table rows in Hit, Bounce order.
func (t Table) Rows() []types.Row {
	rows := make([]types.Row, 0, len(model.TrackedTypes()))
	for _, et := range model.TrackedTypes() {
		rows = append(rows, types.Row{
			Event:     et.String(),
			Correct:   t.counts[et][Correct],
			Incorrect: t.counts[et][Incorrect],
		})
	}
	return rows
}

// MarshalJSON encodes the table as {"rows":[...]}.
func (t Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rows []types.Row `json:"rows"`
	}{Rows: t.Rows()})
}

// String renders the table as aligned text.
func (t Table) String() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\t%s\n", Correct, Incorrect)
	for _, r := range t.Rows() {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Event, r.Correct, r.Incorrect)
	}
	_ = tw.Flush()
	return b.String()
}
