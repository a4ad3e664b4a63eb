package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/shenwei356/xopen"

	"github.com/inodb/vibe-roc/internal/dataset"
	"github.com/inodb/vibe-roc/internal/roc"
	"github.com/inodb/vibe-roc/internal/score"
)

// Create opens path for writing. "-" is standard output and a .gz suffix
// selects gzip compression.
func Create(path string) (io.WriteCloser, error) {
	w, err := xopen.Wopen(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return w, nil
}

// PlotWriter writes the data the external plot renderer consumes for the
// top ranked gene sets.
type PlotWriter struct {
	ds *dataset.Dataset
	w  *bufio.Writer
}

// NewPlotWriter creates a plot writer over the dataset's scores and labels.
func NewPlotWriter(w io.Writer, ds *dataset.Dataset) *PlotWriter {
	return &PlotWriter{ds: ds, w: bufio.NewWriter(w)}
}

// WriteScores writes one line per (gene set, sample) in long format:
// rank, gene set, sample, class and score.
func (pw *PlotWriter) WriteScores(top []score.Result) error {
	if _, err := pw.w.WriteString("rank\tgene_set\tsample\tclass\tscore\n"); err != nil {
		return err
	}
	for rank, r := range top {
		row, err := pw.row(r.GeneSet)
		if err != nil {
			return err
		}
		for j, s := range pw.ds.Matrix.Samples {
			if _, err := fmt.Fprintf(pw.w, "%d\t%s\t%s\t%s\t%s\n",
				rank+1, r.GeneSet, s, pw.ds.Label(j), FormatFloat(row[j])); err != nil {
				return err
			}
		}
	}
	return pw.w.Flush()
}

// WriteROC writes the ROC curve vertices of each gene set, starting at
// (0,0), as rank, gene set, FPR and TPR.
func (pw *PlotWriter) WriteROC(top []score.Result) error {
	if _, err := pw.w.WriteString("rank\tgene_set\tFPR\tTPR\n"); err != nil {
		return err
	}
	for rank, r := range top {
		row, err := pw.row(r.GeneSet)
		if err != nil {
			return err
		}
		for _, p := range roc.NewCurve(row, pw.ds.Positive).Points() {
			if _, err := fmt.Fprintf(pw.w, "%d\t%s\t%s\t%s\n",
				rank+1, r.GeneSet, FormatFloat(p.FPR), FormatFloat(p.TPR)); err != nil {
				return err
			}
		}
	}
	return pw.w.Flush()
}

func (pw *PlotWriter) row(geneSet string) ([]float64, error) {
	i, ok := pw.ds.Matrix.GeneSetIndex(geneSet)
	if !ok {
		return nil, fmt.Errorf("gene set %s not in score matrix", geneSet)
	}
	return pw.ds.Matrix.Row(i), nil
}
