// Package cls provides parsing of binary phenotype label files.
//
// Two layouts are accepted:
//
//	CLS (order-aligned with the score matrix columns):
//	    8 2 1
//	    # normal tumor
//	    0 0 0 0 1 1 1 1
//
//	Sample-keyed TSV (header line, then sample<TAB>class):
//	    sample	class
//	    S1	normal
//	    S2	tumor
//
// Keyed class names are numbered in sorted order, so class 1 is the name
// that sorts last no matter how the rows are ordered.
package cls

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Labels holds a two-class assignment.
type Labels struct {
	// ClassNames are the names of class 0 and class 1.
	ClassNames [2]string
	// Samples is nil for order-aligned CLS input; otherwise the sample
	// id of each entry in Classes.
	Samples []string
	// Classes holds 0 or 1 per entry.
	Classes []int
}

// Keyed reports whether labels are keyed by sample id.
func (l *Labels) Keyed() bool {
	return l.Samples != nil
}

// Len returns the number of labeled samples.
func (l *Labels) Len() int {
	return len(l.Classes)
}

// Read parses the label file at path. Use "-" for stdin.
func Read(path string) (*Labels, error) {
	if path == "-" {
		return Parse(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads labels from r, detecting the layout from the first line.
func Parse(r io.Reader) (*Labels, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan label file: %w", err)
	}

	first := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, &ParseError{Line: 0, Message: "empty label file"}
	}

	if isCLSHeader(lines[first]) {
		return parseCLS(lines, first)
	}
	return parseKeyed(lines, first)
}

// isCLSHeader reports whether line looks like "<samples> <classes> 1".
func isCLSHeader(line string) bool {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

func parseCLS(lines []string, start int) (*Labels, error) {
	header := strings.Fields(lines[start])
	n, _ := strconv.Atoi(header[0])
	k, _ := strconv.Atoi(header[1])
	if k != 2 {
		return nil, &ParseError{Line: start + 1, Message: fmt.Sprintf("expected 2 classes, got %d", k)}
	}
	if n <= 0 {
		return nil, &ParseError{Line: start + 1, Message: fmt.Sprintf("invalid sample count %d", n)}
	}

	namesAt := start + 1
	if namesAt >= len(lines) {
		return nil, &ParseError{Line: namesAt, Message: "missing class name line"}
	}
	nameLine := strings.TrimSpace(lines[namesAt])
	if !strings.HasPrefix(nameLine, "#") {
		return nil, &ParseError{Line: namesAt + 1, Message: "class name line must start with '#'"}
	}
	names := strings.Fields(strings.TrimPrefix(nameLine, "#"))
	if len(names) != 2 {
		return nil, &ParseError{Line: namesAt + 1, Message: fmt.Sprintf("expected 2 class names, got %d", len(names))}
	}
	if names[0] == names[1] {
		return nil, &ParseError{Line: namesAt + 1, Message: fmt.Sprintf("duplicate class name %q", names[0])}
	}

	var tokens []string
	labelLine := namesAt + 1
	for i := namesAt + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		labelLine = i + 1
		tokens = append(tokens, strings.Fields(lines[i])...)
	}
	if len(tokens) != n {
		return nil, &ParseError{Line: labelLine, Message: fmt.Sprintf("header declares %d samples, found %d labels", n, len(tokens))}
	}

	l := &Labels{ClassNames: [2]string{names[0], names[1]}, Classes: make([]int, n)}
	for i, tok := range tokens {
		c, ok := classIndex(tok, l.ClassNames)
		if !ok {
			return nil, &ParseError{Line: labelLine, Message: fmt.Sprintf("unknown label %q", tok)}
		}
		l.Classes[i] = c
	}
	return l, nil
}

// classIndex resolves a CLS token given as 0/1 or as a class name.
func classIndex(tok string, names [2]string) (int, bool) {
	switch tok {
	case names[0]:
		return 0, true
	case names[1]:
		return 1, true
	case "0":
		return 0, true
	case "1":
		return 1, true
	}
	return -1, false
}

func parseKeyed(lines []string, start int) (*Labels, error) {
	// First non-empty line is the header.
	l := &Labels{Samples: []string{}}
	seen := make(map[string]bool)
	classes := 0

	for i := start + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, &ParseError{Line: i + 1, Message: fmt.Sprintf("expected 2 columns, got %d", len(fields))}
		}
		sample, class := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		if sample == "" || class == "" {
			return nil, &ParseError{Line: i + 1, Message: "empty sample or class"}
		}
		if seen[sample] {
			return nil, &ParseError{Line: i + 1, Message: fmt.Sprintf("duplicate sample %q", sample)}
		}
		seen[sample] = true

		c := -1
		for j := 0; j < classes; j++ {
			if l.ClassNames[j] == class {
				c = j
			}
		}
		if c < 0 {
			if classes == 2 {
				return nil, &ParseError{Line: i + 1, Message: fmt.Sprintf("more than 2 classes (%q)", class)}
			}
			l.ClassNames[classes] = class
			c = classes
			classes++
		}

		l.Samples = append(l.Samples, sample)
		l.Classes = append(l.Classes, c)
	}

	if classes != 2 {
		return nil, &ParseError{Line: len(lines), Message: fmt.Sprintf("expected 2 classes, got %d", classes)}
	}

	if l.ClassNames[0] > l.ClassNames[1] {
		l.ClassNames[0], l.ClassNames[1] = l.ClassNames[1], l.ClassNames[0]
		for i := range l.Classes {
			l.Classes[i] = 1 - l.Classes[i]
		}
	}
	return l, nil
}

// ParseError represents a malformed label file with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cls parse error at line %d: %s", e.Line, e.Message)
}
