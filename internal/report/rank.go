// Package report ranks gene-set results and writes them for downstream
// consumers.
package report

import (
	"math"
	"sort"

	"github.com/inodb/vibe-roc/internal/score"
)

// Table is an ordered, read-only snapshot of gene-set results.
type Table struct {
	rows []score.Result
}

// Rank orders results by descending |MCC|, then descending |AUC - 0.5|,
// then gene-set id. Degenerate gene sets follow all scored ones, ordered
// by id. The results are copied; later changes to them do not affect the
// table.
func Rank(results []*score.Result) *Table {
	rows := make([]score.Result, len(results))
	for i, r := range results {
		rows[i] = *r
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if a.Degenerate != b.Degenerate {
			return !a.Degenerate
		}
		if !a.Degenerate {
			if ma, mb := math.Abs(a.MCC), math.Abs(b.MCC); ma != mb {
				return ma > mb
			}
			if da, db := math.Abs(a.Deviation()), math.Abs(b.Deviation()); da != db {
				return da > db
			}
		}
		return a.GeneSet < b.GeneSet
	})

	return &Table{rows: rows}
}

// Len returns the number of gene sets in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th ranked result.
func (t *Table) Row(i int) score.Result {
	return t.rows[i]
}

// Rows returns a copy of all ranked results.
func (t *Table) Rows() []score.Result {
	return append([]score.Result(nil), t.rows...)
}

// Top returns up to n of the highest ranked non-degenerate results.
func (t *Table) Top(n int) []score.Result {
	var top []score.Result
	for _, r := range t.rows {
		if len(top) >= n {
			break
		}
		if r.Degenerate {
			break
		}
		top = append(top, r)
	}
	return top
}

// TopIDs returns the gene-set ids of Top(n).
func (t *Table) TopIDs(n int) []string {
	top := t.Top(n)
	ids := make([]string, len(top))
	for i, r := range top {
		ids[i] = r.GeneSet
	}
	return ids
}
