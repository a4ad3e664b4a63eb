// Package dataset joins a score matrix with its phenotype labels and
// resolves which class is treated as positive.
package dataset

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-roc/internal/cls"
	"github.com/inodb/vibe-roc/internal/gct"
)

// MinClassSize is the smallest class that can be scored at all.
const MinClassSize = 2

// Dataset is a validated score matrix with one resolved label per column.
// It is read-only after construction.
type Dataset struct {
	Matrix *gct.Matrix

	// Positive[j] is true when sample j belongs to the positive class.
	Positive []bool

	PositiveClass string
	NegativeClass string
	NumPositive   int
	NumNegative   int
}

// Label returns the class name of sample j.
func (d *Dataset) Label(j int) string {
	if d.Positive[j] {
		return d.PositiveClass
	}
	return d.NegativeClass
}

// MinClass returns the name and size of the smaller class.
func (d *Dataset) MinClass() (string, int) {
	if d.NumPositive <= d.NumNegative {
		return d.PositiveClass, d.NumPositive
	}
	return d.NegativeClass, d.NumNegative
}

// Loader reads and validates input artifacts.
type Loader struct {
	reverse bool
	logger  *zap.Logger
}

// NewLoader creates a loader. Class 1 is the positive class unless
// reverse is set, in which case class 0 is.
func NewLoader(reverse bool) *Loader {
	return &Loader{
		reverse: reverse,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for warning messages.
func (l *Loader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load parses the score matrix and label files and joins them.
func (l *Loader) Load(matrixPath, labelsPath string) (*Dataset, error) {
	m, err := gct.Read(matrixPath)
	if err != nil {
		return nil, wrapFormat(matrixPath, err)
	}

	labels, err := cls.Read(labelsPath)
	if err != nil {
		return nil, wrapFormat(labelsPath, err)
	}

	return l.Build(m, labels)
}

// wrapFormat turns parser errors into InputFormatError; I/O errors pass through.
func wrapFormat(path string, err error) error {
	var gctErr *gct.ParseError
	var clsErr *cls.ParseError
	if errors.As(err, &gctErr) || errors.As(err, &clsErr) {
		return &InputFormatError{Path: path, Err: err}
	}
	return err
}

// Build joins an already parsed matrix and label set.
func (l *Loader) Build(m *gct.Matrix, labels *cls.Labels) (*Dataset, error) {
	classes, err := l.align(m, labels)
	if err != nil {
		return nil, err
	}

	// The positive class is resolved here and nowhere else.
	posClass := 1
	if l.reverse {
		posClass = 0
	}

	d := &Dataset{
		Matrix:        m,
		Positive:      make([]bool, len(classes)),
		PositiveClass: labels.ClassNames[posClass],
		NegativeClass: labels.ClassNames[1-posClass],
	}
	for j, c := range classes {
		if c == posClass {
			d.Positive[j] = true
			d.NumPositive++
		} else {
			d.NumNegative++
		}
	}

	if d.NumPositive < MinClassSize {
		return nil, &InsufficientClassSizeError{Class: d.PositiveClass, Size: d.NumPositive, Min: MinClassSize}
	}
	if d.NumNegative < MinClassSize {
		return nil, &InsufficientClassSizeError{Class: d.NegativeClass, Size: d.NumNegative, Min: MinClassSize}
	}

	return d, nil
}

// align returns the class of each matrix column.
func (l *Loader) align(m *gct.Matrix, labels *cls.Labels) ([]int, error) {
	if !labels.Keyed() {
		if labels.Len() != m.NumSamples() {
			return nil, &SampleMismatchError{LabelCount: labels.Len(), SampleCount: m.NumSamples()}
		}
		return append([]int(nil), labels.Classes...), nil
	}

	byID := make(map[string]int, labels.Len())
	for i, s := range labels.Samples {
		byID[s] = labels.Classes[i]
	}

	classes := make([]int, m.NumSamples())
	var missing []string
	for j, s := range m.Samples {
		c, ok := byID[s]
		if !ok {
			missing = append(missing, s)
			continue
		}
		classes[j] = c
		delete(byID, s)
	}
	if len(missing) > 0 {
		return nil, &SampleMismatchError{Missing: missing}
	}

	if len(byID) > 0 {
		l.logger.Warn("ignoring labeled samples not present in score matrix",
			zap.Int("count", len(byID)))
	}

	return classes, nil
}

// String summarizes the class split for log messages.
func (d *Dataset) String() string {
	return fmt.Sprintf("%d gene sets x %d samples (%s=%d positive, %s=%d negative)",
		d.Matrix.NumGeneSets(), d.Matrix.NumSamples(),
		d.PositiveClass, d.NumPositive, d.NegativeClass, d.NumNegative)
}
