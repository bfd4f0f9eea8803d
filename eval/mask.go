// Package eval walks a macro-expanded IR tree against a molctx.Context and
// produces a boolean Mask, per spec.md §4.5. The evaluator is single-
// threaded per call: Evaluate runs synchronously to completion with no
// suspension points, so the Registry and Evaluator may be shared across
// concurrent goroutines evaluating distinct queries (spec.md §5).
package eval

// Mask is a per-atom boolean selection, always of length ctx.NumAtoms().
type Mask []bool

// NewMask returns an all-false mask of length n.
func NewMask(n int) Mask {
	return make(Mask, n)
}

// AllMask returns an all-true mask of length n.
func AllMask(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// And returns the bitwise AND of m and o.
func (m Mask) And(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] && o[i]
	}
	return out
}

// Or returns the bitwise OR of m and o.
func (m Mask) Or(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] || o[i]
	}
	return out
}

// Xor returns the bitwise XOR of m and o.
func (m Mask) Xor(o Mask) Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = m[i] != o[i]
	}
	return out
}

// Not returns the bitwise complement of m.
func (m Mask) Not() Mask {
	out := make(Mask, len(m))
	for i := range m {
		out[i] = !m[i]
	}
	return out
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Indices returns the atom indices set in m, in ascending order.
func (m Mask) Indices() []int {
	var out []int
	for i, v := range m {
		if v {
			out = append(out, i)
		}
	}
	return out
}
