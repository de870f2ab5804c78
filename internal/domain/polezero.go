package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	markerPoles    = "POLES"
	markerZeros    = "ZEROS"
	markerConstant = "CONSTANT"
)

// ParsePolesZeros reads the POLES, ZEROS and CONSTANT blocks. Markers may come
// in any order, each at most once. The n lines following "POLES n" or
// "ZEROS n" are the block, with no gaps allowed.
func ParsePolesZeros(text string) (TransferFunction, error) {
	lines := strings.Split(text, "\n")

	var (
		tf                            TransferFunction
		seenPoles, seenZeros, seenCst bool
	)
	tf.Poles = []Coefficient{}
	tf.Zeros = []Coefficient{}

	for i := 0; i < len(lines); i++ {
		tokens := strings.Fields(lines[i])
		if len(tokens) == 0 {
			continue
		}

		switch tokens[0] {
		case markerPoles:
			if seenPoles {
				return TransferFunction{}, newParseError(BlockPoles, i+1, lines[i], "duplicate POLES block", nil)
			}
			seenPoles = true
			poles, err := parseCoefficientBlock(lines, i, BlockPoles)
			if err != nil {
				return TransferFunction{}, err
			}
			tf.Poles = poles
			i += len(poles)

		case markerZeros:
			if seenZeros {
				return TransferFunction{}, newParseError(BlockZeros, i+1, lines[i], "duplicate ZEROS block", nil)
			}
			seenZeros = true
			zeros, err := parseCoefficientBlock(lines, i, BlockZeros)
			if err != nil {
				return TransferFunction{}, err
			}
			tf.Zeros = zeros
			i += len(zeros)

		case markerConstant:
			if seenCst {
				return TransferFunction{}, newParseError(BlockConstant, i+1, lines[i], "duplicate CONSTANT line", nil)
			}
			seenCst = true
			if len(tokens) < 2 {
				return TransferFunction{}, newParseError(BlockConstant, i+1, lines[i], "missing constant value", nil)
			}
			c, err := parseFinite(tokens[1])
			if err != nil {
				return TransferFunction{}, newParseError(BlockConstant, i+1, lines[i], "invalid constant", err)
			}
			tf.Constant = c
		}
	}

	if !seenCst {
		return TransferFunction{}, newParseError(BlockConstant, 0, "", "no CONSTANT line found", nil)
	}
	return tf, nil
}

// parseCoefficientBlock reads the count on lines[at] and the coefficient
// lines that follow it.
func parseCoefficientBlock(lines []string, at int, block Block) ([]Coefficient, error) {
	header := lines[at]
	tokens := strings.Fields(header)
	if len(tokens) < 2 {
		return nil, newParseError(block, at+1, header, "missing count", nil)
	}
	n, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, newParseError(block, at+1, header, "invalid count", err)
	}
	if n < 0 {
		return nil, newParseError(block, at+1, header, "negative count", nil)
	}

	coeffs := make([]Coefficient, 0, n)
	for j := 1; j <= n; j++ {
		idx := at + j
		if idx >= len(lines) {
			return nil, newParseError(block, at+1, header,
				fmt.Sprintf("expected %d lines, file ends after %d", n, j-1), nil)
		}
		c, err := parseCoefficient(lines[idx])
		if err != nil {
			return nil, newParseError(block, idx+1, lines[idx], "expected two numeric values", err)
		}
		coeffs = append(coeffs, c)
	}
	return coeffs, nil
}

func parseCoefficient(line string) (Coefficient, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return Coefficient{}, fmt.Errorf("found %d tokens", len(tokens))
	}
	re, err := parseFinite(tokens[0])
	if err != nil {
		return Coefficient{}, err
	}
	im, err := parseFinite(tokens[1])
	if err != nil {
		return Coefficient{}, err
	}
	return Coefficient{Real: re, Imag: im}, nil
}
