package dataset

import (
	"fmt"
	"strings"
)

// InputFormatError reports a structurally malformed input file.
type InputFormatError struct {
	Path string
	Err  error
}

func (e *InputFormatError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InputFormatError) Unwrap() error {
	return e.Err
}

// SampleMismatchError reports that the label file does not cover the
// score matrix samples.
type SampleMismatchError struct {
	// Missing lists matrix samples without a label (keyed labels only).
	Missing []string
	// LabelCount and SampleCount are set for order-aligned labels.
	LabelCount  int
	SampleCount int
}

func (e *SampleMismatchError) Error() string {
	if len(e.Missing) > 0 {
		shown := e.Missing
		if len(shown) > 5 {
			shown = shown[:5]
		}
		return fmt.Sprintf("%d matrix samples have no label (%s)", len(e.Missing), strings.Join(shown, ", "))
	}
	return fmt.Sprintf("label file has %d labels but score matrix has %d samples", e.LabelCount, e.SampleCount)
}

// InsufficientClassSizeError reports a phenotype class with fewer
// samples than an operation requires.
type InsufficientClassSizeError struct {
	Class string
	Size  int
	Min   int
}

func (e *InsufficientClassSizeError) Error() string {
	return fmt.Sprintf("class %q has %d samples, need at least %d", e.Class, e.Size, e.Min)
}
