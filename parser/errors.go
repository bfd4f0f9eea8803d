package parser

import "fmt"

// ParseError reports a malformed query, per spec.md §7.
type ParseError struct {
	Position int
	Expected string
	Got      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: expected %s, got %s", e.Position, e.Expected, e.Got)
}

// PureNumericMask is raised by static validation (§7) when both sides of a
// comparison are pure-numeric scalars, which can never vary per atom.
type PureNumericMask struct {
	Position int
}

func (e *PureNumericMask) Error() string {
	return fmt.Sprintf("comparison at %d has no field or variable on either side; it cannot produce a mask", e.Position)
}
