package report

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-roc/internal/score"
)

// NA marks values that are not available.
const NA = "NA"

// Columns are the results table columns.
var Columns = []string{
	"gene_set",
	"AUC",
	"direction",
	"threshold",
	"MCC",
	"sensitivity",
	"specificity",
	"wilcoxon_p",
	"wilcoxon_fdr",
	"NOM_p",
	"FDR",
	"NES",
	"degenerate",
}

// TabWriter writes gene-set results in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(Columns, "\t") + "\n")
	return err
}

// Write writes a single result.
func (tw *TabWriter) Write(r *score.Result) error {
	values := []string{
		r.GeneSet,
		FormatFloat(r.AUC),
		r.Direction,
		FormatFloat(r.Threshold),
		FormatFloat(r.MCC),
		FormatFloat(r.Sensitivity),
		FormatFloat(r.Specificity),
		FormatFloat(r.WilcoxonP),
		FormatFloat(r.WilcoxonFDR),
		FormatFloat(r.NomP),
		FormatFloat(r.FDR),
		FormatFloat(r.NES),
		strconv.FormatBool(r.Degenerate),
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteTable writes the header and every row of t.
func (tw *TabWriter) WriteTable(t *Table) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for i := range t.rows {
		if err := tw.Write(&t.rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatFloat renders v in shortest form, or NA when v is not finite.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NA
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
