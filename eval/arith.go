package eval

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/molctx"
	"github.com/cabb99/molselect/registry"
)

// numVec is the runtime value of a Scalar- or Vector-kind IR node: either a
// single number (Scalar true) or one number per atom.
type numVec struct {
	Scalar bool
	S      float64
	V      []float64
}

func (v numVec) at(i int) float64 {
	if v.Scalar {
		return v.S
	}
	return v.V[i]
}

// evalNum evaluates a Scalar- or Vector-kind expression node.
func (e *Evaluator) evalNum(node ast.Node, ctx *molctx.Context) (numVec, error) {
	switch n := node.(type) {
	case *ast.NumLit:
		return numVec{Scalar: true, S: n.Value}, nil
	case *ast.Const:
		switch n.ConstKind {
		case ast.ConstPi:
			return numVec{Scalar: true, S: math.Pi}, nil
		case ast.ConstE:
			return numVec{Scalar: true, S: math.E}, nil
		}
		return numVec{}, errors.Errorf("unknown constant at %d", n.Position)
	case *ast.Neg:
		v, err := e.evalNum(n.Inner, ctx)
		if err != nil {
			return numVec{}, err
		}
		if v.Scalar {
			return numVec{Scalar: true, S: -v.S}, nil
		}
		out := make([]float64, len(v.V))
		for i, x := range v.V {
			out[i] = -x
		}
		return numVec{V: out}, nil
	case *ast.Binop:
		left, err := e.evalNum(n.Left, ctx)
		if err != nil {
			return numVec{}, err
		}
		right, err := e.evalNum(n.Right, ctx)
		if err != nil {
			return numVec{}, err
		}
		return applyBinop(ctx.NumAtoms(), n.Op, left, right, n.Position)
	case *ast.Func:
		arg, err := e.evalNum(n.Arg, ctx)
		if err != nil {
			return numVec{}, err
		}
		return applyFunc(n.Name, arg, n.Position)
	case *ast.FieldRef:
		return e.numericField(n.Field, ctx, n.Position)
	case *ast.VarRef:
		return e.numericVar(n.Name, ctx, n.Position)
	default:
		return numVec{}, errors.Errorf("not a numeric expression: %T", node)
	}
}

func (e *Evaluator) numericField(field string, ctx *molctx.Context, pos int) (numVec, error) {
	kw := e.reg.Keyword(field)
	if kw == nil {
		return numVec{}, errors.WithStack(&UnknownField{Field: field, Position: pos})
	}
	switch kw.Type {
	case registry.TypeInt:
		ints, ok := ctx.IntColumn(kw.Name)
		if !ok {
			return numVec{}, errors.WithStack(&UnknownField{Field: kw.Name, Position: pos})
		}
		out := make([]float64, len(ints))
		for i, v := range ints {
			out[i] = float64(v)
		}
		return numVec{V: out}, nil
	case registry.TypeFloat:
		floats, ok := ctx.FloatColumn(kw.Name)
		if !ok {
			return numVec{}, errors.WithStack(&UnknownField{Field: kw.Name, Position: pos})
		}
		return numVec{V: floats}, nil
	default:
		return numVec{}, errors.WithStack(&TypeError{Message: "arithmetic on string field " + kw.Name, Position: pos})
	}
}

func (e *Evaluator) numericVar(name string, ctx *molctx.Context, pos int) (numVec, error) {
	v, ok := ctx.Variable(name)
	if !ok {
		return numVec{}, errors.WithStack(&UnknownVariable{Name: name, Position: pos})
	}
	if v.IsVec {
		return numVec{V: v.Vector}, nil
	}
	return numVec{Scalar: true, S: v.Scalar}, nil
}

// applyBinop broadcasts a scalar operand against a vector one and computes
// the elementwise result, or a single scalar result when both sides are
// scalar.
func applyBinop(n int, op ast.BinOp, l, r numVec, pos int) (numVec, error) {
	f := binopFunc(op, pos)
	if l.Scalar && r.Scalar {
		v, err := f(l.S, r.S)
		if err != nil {
			return numVec{}, err
		}
		return numVec{Scalar: true, S: v}, nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := f(l.at(i), r.at(i))
		if err != nil {
			return numVec{}, err
		}
		out[i] = v
	}
	return numVec{V: out}, nil
}

func binopFunc(op ast.BinOp, pos int) func(a, b float64) (float64, error) {
	return func(a, b float64) (float64, error) {
		switch op {
		case ast.OpAdd:
			return a + b, nil
		case ast.OpSub:
			return a - b, nil
		case ast.OpMul:
			return a * b, nil
		case ast.OpDiv:
			if b == 0 {
				return math.NaN(), nil
			}
			return a / b, nil
		case ast.OpFloor:
			if b == 0 {
				return 0, errors.WithStack(&DivByZero{Position: pos})
			}
			return math.Floor(a / b), nil
		case ast.OpMod:
			if b == 0 {
				return 0, errors.WithStack(&DivByZero{Position: pos})
			}
			return math.Mod(a, b), nil
		case ast.OpPow:
			return math.Pow(a, b), nil
		default:
			return 0, errors.Errorf("unknown binary operator %v", op)
		}
	}
}

// applyFunc applies a named math function elementwise (or to the one
// scalar value).
func applyFunc(name string, arg numVec, pos int) (numVec, error) {
	if arg.Scalar {
		v, err := applyFuncScalar(name, arg.S, pos)
		if err != nil {
			return numVec{}, err
		}
		return numVec{Scalar: true, S: v}, nil
	}
	out := make([]float64, len(arg.V))
	for i, x := range arg.V {
		v, err := applyFuncScalar(name, x, pos)
		if err != nil {
			return numVec{}, err
		}
		out[i] = v
	}
	return numVec{V: out}, nil
}

func applyFuncScalar(name string, x float64, pos int) (float64, error) {
	switch name {
	case "sin":
		return math.Sin(x), nil
	case "cos":
		return math.Cos(x), nil
	case "tan":
		return math.Tan(x), nil
	case "asin":
		if x < -1 || x > 1 {
			return 0, errors.WithStack(&DomainError{Message: fmt.Sprintf("asin(%v)", x), Position: pos})
		}
		return math.Asin(x), nil
	case "acos":
		if x < -1 || x > 1 {
			return 0, errors.WithStack(&DomainError{Message: fmt.Sprintf("acos(%v)", x), Position: pos})
		}
		return math.Acos(x), nil
	case "atan":
		return math.Atan(x), nil
	case "sinh":
		return math.Sinh(x), nil
	case "cosh":
		return math.Cosh(x), nil
	case "tanh":
		return math.Tanh(x), nil
	case "exp":
		return math.Exp(x), nil
	case "log":
		if x <= 0 {
			return 0, errors.WithStack(&DomainError{Message: fmt.Sprintf("log(%v)", x), Position: pos})
		}
		return math.Log(x), nil
	case "log10":
		if x <= 0 {
			return 0, errors.WithStack(&DomainError{Message: fmt.Sprintf("log10(%v)", x), Position: pos})
		}
		return math.Log10(x), nil
	case "sqrt":
		if x < 0 {
			return 0, errors.WithStack(&DomainError{Message: fmt.Sprintf("sqrt(%v)", x), Position: pos})
		}
		return math.Sqrt(x), nil
	case "square":
		return x * x, nil
	case "abs":
		return math.Abs(x), nil
	case "floor":
		return math.Floor(x), nil
	case "ceil":
		return math.Ceil(x), nil
	default:
		return 0, errors.Errorf("unknown function %q at %d", name, pos)
	}
}
