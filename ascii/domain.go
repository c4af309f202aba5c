package ascii

import (
	"fmt"
	"strconv"
	"strings"
)

// Domain is the accepted-value set of a writable register.
//
// Containment is an exact membership test on the string form sent on the
// wire; no coercion is performed beyond parsing numeric domains.
type Domain interface {
	// Contains reports whether value is a member of the domain.
	Contains(value string) bool
	// String describes the domain for error messages.
	String() string
}

// Range is a numeric domain covering [Low, High): inclusive low bound,
// exclusive high bound.
type Range struct {
	Low  float64
	High float64
}

var _ Domain = Range{}

// NewRange creates a numeric [low, high) domain.
func NewRange(low, high float64) Range {
	return Range{Low: low, High: high}
}

func (r Range) Contains(value string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}

	return f >= r.Low && f < r.High
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g)", r.Low, r.High)
}

// Set is an enumerated domain of exact string values.
type Set []string

var _ Domain = Set{}

func (s Set) Contains(value string) bool {
	for _, member := range s {
		if member == value {
			return true
		}
	}

	return false
}

func (s Set) String() string {
	return "{" + strings.Join(s, ", ") + "}"
}

// IntSet is an enumerated domain of integers, matched after parsing the
// wire string as a base-10 integer.
type IntSet []int

var _ Domain = IntSet{}

func (s IntSet) Contains(value string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return false
	}

	for _, member := range s {
		if member == n {
			return true
		}
	}

	return false
}

func (s IntSet) String() string {
	members := make([]string, len(s))
	for i, member := range s {
		members[i] = strconv.Itoa(member)
	}

	return "{" + strings.Join(members, ", ") + "}"
}
