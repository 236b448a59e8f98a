// Package rangecheck parses and evaluates the numeric constraint used by
// rule options to bound an unsigned field: N, <N, >N and N1<>N2.
package rangecheck

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for any expression that is not one of the
	// accepted shapes or whose numbers do not fit in 32 bits.
	ErrMalformed = errors.New("malformed range")

	// ErrInvertedRange is returned for N1<>N2 when N1 > N2.
	ErrInvertedRange = errors.New("inverted range")
)

// Op is the comparison operator of a RangeCheck.
type Op uint8

const (
	OpEqual Op = iota
	OpLess
	OpGreater
	OpBetween
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpBetween:
		return "<>"
	default:
		return "?"
	}
}

// RangeCheck is an immutable numeric constraint. Equal stores its value in
// Min, Less its bound in Max and Greater its bound in Min; the unused field
// is always zero so that == is an exact structural comparison.
type RangeCheck struct {
	Op  Op
	Min uint32
	Max uint32
}

// Parse converts a textual expression into a RangeCheck.
func Parse(text string) (RangeCheck, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return RangeCheck{}, fmt.Errorf("%w: empty expression", ErrMalformed)
	}

	if loTok, hiTok, ok := strings.Cut(s, "<>"); ok {
		lo, err := parseBound(loTok, text)
		if err != nil {
			return RangeCheck{}, err
		}
		hi, err := parseBound(hiTok, text)
		if err != nil {
			return RangeCheck{}, err
		}
		if lo > hi {
			return RangeCheck{}, fmt.Errorf("%w: %q (%d > %d)", ErrInvertedRange, text, lo, hi)
		}
		return RangeCheck{Op: OpBetween, Min: lo, Max: hi}, nil
	}

	switch s[0] {
	case '<':
		bound, err := parseBound(s[1:], text)
		if err != nil {
			return RangeCheck{}, err
		}
		return RangeCheck{Op: OpLess, Max: bound}, nil

	case '>':
		bound, err := parseBound(s[1:], text)
		if err != nil {
			return RangeCheck{}, err
		}
		return RangeCheck{Op: OpGreater, Min: bound}, nil
	}

	v, err := parseBound(s, text)
	if err != nil {
		return RangeCheck{}, err
	}
	return RangeCheck{Op: OpEqual, Min: v}, nil
}

// parseBound accepts only plain decimal digits; signs, hex and embedded
// operators are malformed.
func parseBound(tok, text string) (uint32, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, fmt.Errorf("%w: %q: missing number", ErrMalformed, text)
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, fmt.Errorf("%w: %q: invalid number %q", ErrMalformed, text, tok)
		}
	}
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformed, text, err)
	}
	return uint32(v), nil
}

// Eval reports whether v satisfies the constraint.
func (r RangeCheck) Eval(v uint32) bool {
	switch r.Op {
	case OpEqual:
		return v == r.Min
	case OpLess:
		return v < r.Max
	case OpGreater:
		return v > r.Min
	case OpBetween:
		return r.Min <= v && v <= r.Max
	}
	return false
}

func (r RangeCheck) String() string {
	switch r.Op {
	case OpEqual:
		return strconv.FormatUint(uint64(r.Min), 10)
	case OpLess:
		return "<" + strconv.FormatUint(uint64(r.Max), 10)
	case OpGreater:
		return ">" + strconv.FormatUint(uint64(r.Min), 10)
	case OpBetween:
		return fmt.Sprintf("%d<>%d", r.Min, r.Max)
	}
	return "?"
}
