// Package gct provides parsing of gene-set score matrices in plain
// tab-delimited or GCT (1.2/1.3) layout.
package gct

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Matrix holds a gene-set-by-sample score matrix.
// Values[i][j] is the score of GeneSets[i] in Samples[j].
type Matrix struct {
	GeneSets []string
	Samples  []string
	Values   [][]float64
}

// Row returns the scores for the gene set at row i.
func (m *Matrix) Row(i int) []float64 {
	return m.Values[i]
}

// NumGeneSets returns the number of rows.
func (m *Matrix) NumGeneSets() int {
	return len(m.GeneSets)
}

// NumSamples returns the number of columns.
func (m *Matrix) NumSamples() int {
	return len(m.Samples)
}

// SampleIndex returns the column of a sample id.
func (m *Matrix) SampleIndex(id string) (int, bool) {
	for i, s := range m.Samples {
		if s == id {
			return i, true
		}
	}
	return -1, false
}

// GeneSetIndex returns the row of a gene-set id.
func (m *Matrix) GeneSetIndex(id string) (int, bool) {
	for i, g := range m.GeneSets {
		if g == id {
			return i, true
		}
	}
	return -1, false
}

// Parser reads a score matrix from a file or stream.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int

	// GCT 1.3 metadata counts; zero for plain tables and GCT 1.2.
	rowMeta int
	colMeta int
	// expected dimensions from the GCT dimension line, -1 if absent.
	wantRows int
	wantCols int
	// descColumn is true when a GCT Description column follows the id.
	descColumn bool
}

// Read parses the score matrix at path. Gzipped files are detected
// by their magic bytes. Use "-" for stdin.
func Read(path string) (*Matrix, error) {
	p, err := NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Parse()
}

// NewParser opens path for parsing.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open score matrix: %w", err)
	}

	p := &Parser{file: file, wantRows: -1, wantCols: -1}

	buf := make([]byte, 2)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read score matrix: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek score matrix: %w", err)
	}

	// gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{
		reader:   bufio.NewReader(r),
		wantRows: -1,
		wantCols: -1,
	}
}

// Close releases the underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// LineNumber returns the number of lines consumed so far.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// readLine returns the next line without its terminator.
// ok is false at end of input.
func (p *Parser) readLine() (line string, ok bool, err error) {
	line, err = p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("read score matrix: %w", err)
	}
	if err == io.EOF && line == "" {
		return "", false, nil
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// Parse reads the whole matrix.
func (p *Parser) Parse() (*Matrix, error) {
	header, err := p.parsePreamble()
	if err != nil {
		return nil, err
	}

	skip := 1 + p.rowMeta
	if p.descColumn {
		skip = 2
	}
	if len(header) <= skip {
		return nil, p.errorf("header has no sample columns")
	}

	m := &Matrix{Samples: append([]string(nil), header[skip:]...)}
	seenSamples := make(map[string]bool, len(m.Samples))
	for _, s := range m.Samples {
		if s == "" {
			return nil, p.errorf("empty sample id in header")
		}
		if seenSamples[s] {
			return nil, p.errorf("duplicate sample id %q", s)
		}
		seenSamples[s] = true
	}

	// GCT 1.3 column metadata rows follow the header.
	for i := 0; i < p.colMeta; i++ {
		if _, ok, err := p.readLine(); err != nil {
			return nil, err
		} else if !ok {
			return nil, p.errorf("missing column metadata line")
		}
	}

	seenSets := make(map[string]bool)
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(header) {
			return nil, p.errorf("expected %d columns, got %d", len(header), len(fields))
		}

		id := fields[0]
		if id == "" {
			return nil, p.errorf("empty gene set id")
		}
		if seenSets[id] {
			return nil, p.errorf("duplicate gene set id %q", id)
		}
		seenSets[id] = true

		row := make([]float64, len(m.Samples))
		for j, cell := range fields[skip:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, p.errorf("gene set %q sample %q: invalid score %q", id, m.Samples[j], cell)
			}
			row[j] = v
		}

		m.GeneSets = append(m.GeneSets, id)
		m.Values = append(m.Values, row)
	}

	if len(m.GeneSets) == 0 {
		return nil, p.errorf("no gene set rows found")
	}
	if p.wantRows >= 0 && p.wantRows != len(m.GeneSets) {
		return nil, p.errorf("dimension line declares %d gene sets, found %d", p.wantRows, len(m.GeneSets))
	}
	if p.wantCols >= 0 && p.wantCols != len(m.Samples) {
		return nil, p.errorf("dimension line declares %d samples, found %d", p.wantCols, len(m.Samples))
	}

	return m, nil
}

// parsePreamble consumes any GCT version and dimension lines and
// returns the split header line.
func (p *Parser) parsePreamble() ([]string, error) {
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.errorf("no header line found")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#1.2"):
			if err := p.parseDimensions(false); err != nil {
				return nil, err
			}
			p.descColumn = true
		case strings.HasPrefix(line, "#1.3"):
			if err := p.parseDimensions(true); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "#") && !strings.Contains(line, "\t"):
			// comment; a tabbed line is a header such as "#gene_set\tS1"
			continue
		default:
			return strings.Split(line, "\t"), nil
		}

		line, ok, err = p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, p.errorf("no header line found")
		}
		return strings.Split(line, "\t"), nil
	}
}

// parseDimensions reads the GCT dimension line.
func (p *Parser) parseDimensions(v13 bool) error {
	line, ok, err := p.readLine()
	if err != nil {
		return err
	}
	if !ok {
		return p.errorf("missing GCT dimension line")
	}

	fields := strings.Fields(line)
	want := 2
	if v13 {
		want = 4
	}
	if len(fields) != want {
		return p.errorf("GCT dimension line: expected %d fields, got %d", want, len(fields))
	}

	dims := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return p.errorf("GCT dimension line: invalid count %q", f)
		}
		dims[i] = n
	}

	p.wantRows, p.wantCols = dims[0], dims[1]
	if v13 {
		p.rowMeta, p.colMeta = dims[2], dims[3]
	}
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents a malformed score matrix with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gct parse error at line %d: %s", e.Line, e.Message)
}
