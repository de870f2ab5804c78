package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructural marks a fatal parse error. Every *ParseError matches it with
// errors.Is.
var ErrStructural = errors.New("structural parse error")

// Block names the part of a PZ file being parsed when an error occurred.
type Block string

const (
	BlockHeader      Block = "header"
	BlockPoles       Block = "poles"
	BlockZeros       Block = "zeros"
	BlockConstant    Block = "constant"
	BlockOrientation Block = "orientation"
)

// ParseError describes a fatal problem in one PZ file.
type ParseError struct {
	File   string // set once the file name is known
	Block  Block
	Line   int    // 1-based; 0 when the problem is not tied to a line
	Input  string // the literal offending fragment
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.File != "" {
		fmt.Fprintf(&b, "%s: ", e.File)
	}
	fmt.Fprintf(&b, "parse %s", e.Block)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	}
	fmt.Fprintf(&b, ": %s: %q", e.Reason, e.Input)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports ErrStructural so callers can classify without errors.As.
func (e *ParseError) Is(target error) bool { return target == ErrStructural }

func newParseError(block Block, line int, input, reason string, err error) *ParseError {
	return &ParseError{Block: block, Line: line, Input: input, Reason: reason, Err: err}
}

// withFile stamps the file name onto a ParseError, leaving other errors as is.
func withFile(err error, file string) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.File == "" {
		cp := *pe
		cp.File = file
		return &cp
	}
	return err
}
