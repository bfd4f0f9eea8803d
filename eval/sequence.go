package eval

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
)

// evalSequenceSel matches a one-letter residue-sequence pattern per chain
// (spec.md §4.5): a regex if the pattern carries any metacharacter,
// otherwise a literal substring search, mirroring how the source user guide
// distinguishes a plain motif from a pattern.
func (e *Evaluator) evalSequenceSel(n *ast.SequenceSel, ctx *molctx.Context) (Mask, error) {
	mask := NewMask(ctx.NumAtoms())

	isRegex := n.Pattern != regexp.QuoteMeta(n.Pattern)
	var re *regexp.Regexp
	if isRegex {
		var err error
		re, err = regexp.Compile(n.Pattern)
		if err != nil {
			return nil, errors.WithStack(&PatternError{Pattern: n.Pattern, Cause: err, Position: n.Position})
		}
	}

	for _, chain := range ctx.Chains() {
		residues, _ := ctx.Sequence(chain)
		codes := make([]byte, len(residues))
		for i, r := range residues {
			codes[i] = r.Code
		}
		seq := string(codes)

		for _, span := range matchSpans(seq, n.Pattern, isRegex, re) {
			for ri := span[0]; ri < span[1]; ri++ {
				for _, atomIdx := range residues[ri].AtomIndices {
					mask[atomIdx] = true
				}
			}
		}
	}
	return mask, nil
}

func matchSpans(seq, pattern string, isRegex bool, re *regexp.Regexp) [][2]int {
	if isRegex {
		return re.FindAllStringIndex(seq, -1)
	}
	var spans [][2]int
	start := 0
	for {
		idx := strings.Index(seq[start:], pattern)
		if idx < 0 {
			break
		}
		from := start + idx
		spans = append(spans, [2]int{from, from + len(pattern)})
		start = from + 1
	}
	return spans
}
