// Package parser turns a tokenized query into the typed IR defined in
// package ast, following the grammar layers of spec.md §4.3: logical,
// predicate, and math. A single math grammar serves both pure-numeric and
// field/variable-touching expressions; each node's Kind tells them apart.
// The parser never evaluates a query — it only validates structure and the
// scalar/vector static typing rule that rejects a pure-numeric comparison
// as a mask (§7 PureNumericMask).
package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/cabb99/molselect/ast"
	"github.com/cabb99/molselect/grammar"
	"github.com/cabb99/molselect/lexer"
)

// Parse parses query against the assembled grammar g and returns its IR.
func Parse(g *grammar.Grammar, query string) (ast.Node, error) {
	toks, err := lexer.Tokenize(query)
	if err != nil {
		return nil, errors.Wrap(err, "tokenize")
	}
	p := &parser{toks: toks, gram: g}
	node, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.EOF, "") {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "end of query", Got: p.peek().Text})
	}
	return node, nil
}

type parser struct {
	toks []lexer.Token
	pos  int
	gram *grammar.Grammar
}

func (p *parser) peek() lexer.Token { return p.toks[p.pos] }

func (p *parser) save() int { return p.pos }

func (p *parser) restore(mark int) { p.pos = mark }

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// at reports whether the current token matches kind (and, if text != "",
// also matches text exactly).
func (p *parser) at(kind lexer.Kind, text string) bool {
	t := p.peek()
	if t.Kind != kind {
		return false
	}
	return text == "" || t.Text == text
}

// atWord reports whether the current token is an identifier spelled exactly
// as one of words.
func (p *parser) atWord(words ...string) bool {
	if p.peek().Kind != lexer.Ident {
		return false
	}
	for _, w := range words {
		if p.peek().Text == w {
			return true
		}
	}
	return false
}

func (p *parser) expectPunct(text string) (lexer.Token, error) {
	if !p.at(lexer.Punct, text) {
		return lexer.Token{}, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "'" + text + "'", Got: p.peek().Text})
	}
	return p.advance(), nil
}

// --- Logical layer -------------------------------------------------------

func (p *parser) parseLogicalOr() (ast.Node, error) {
	left, err := p.parseLogicalXor()
	if err != nil {
		return nil, err
	}
	for p.atWord("or") || p.at(lexer.Punct, "|||") {
		pos := p.advance().Pos
		right, err := p.parseLogicalXor()
		if err != nil {
			return nil, err
		}
		left = &ast.Or{Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseLogicalXor() (ast.Node, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.atWord("xor") {
		pos := p.advance().Pos
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Xor{Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func (p *parser) parseLogicalAnd() (ast.Node, error) {
	left, err := p.parseLogicalNot()
	if err != nil {
		return nil, err
	}
	for {
		if p.atWord("and") || p.at(lexer.Punct, "&&") || p.at(lexer.Punct, "&") {
			pos := p.advance().Pos
			right, err := p.parseLogicalNot()
			if err != nil {
				return nil, err
			}
			left = &ast.And{Left: left, Right: right, Position: pos}
			continue
		}
		if p.canStartPredicate() {
			// Implicit AND: "A B" means "A and B".
			pos := p.peek().Pos
			right, err := p.parseLogicalNot()
			if err != nil {
				return nil, err
			}
			left = &ast.And{Left: left, Right: right, Position: pos}
			continue
		}
		return left, nil
	}
}

// canStartPredicate reports whether the current token could begin a new
// predicate, which is how the parser recognizes implicit-AND juxtaposition
// and knows when to stop (e.g. at a closing paren or a lower-precedence
// logical operator).
func (p *parser) canStartPredicate() bool {
	t := p.peek()
	switch t.Kind {
	case lexer.EOF:
		return false
	case lexer.Punct:
		switch t.Text {
		case "(", "-", "$":
			return true
		default:
			return false
		}
	case lexer.Number, lexer.SingleQuoted, lexer.DoubleQuoted, lexer.Backtick:
		return true
	case lexer.Ident:
		switch t.Text {
		case "or", "xor", "and", "as", "of", "to":
			return false
		default:
			return true
		}
	default:
		return false
	}
}

func (p *parser) parseLogicalNot() (ast.Node, error) {
	if p.atWord("not") || p.at(lexer.Punct, "!") {
		pos := p.advance().Pos
		inner, err := p.parseLogicalNot()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Inner: inner, Position: pos}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Node, error) {
	if p.at(lexer.Punct, "(") {
		return p.parseParenPrimary()
	}
	return p.parsePredicate()
}

// parseParenPrimary resolves the "(" ambiguity between a grouped logical
// expression and a parenthesized math expression: the parenthesized content is first tried as a full logical expression; if
// what follows the closing paren shows it was actually meant as a
// parenthesized math expression (items, a comparison operator, or =~), it
// is re-parsed as math_expr and folded into the appropriate predicate.
func (p *parser) parseParenPrimary() (ast.Node, error) {
	mark := p.save()
	open := p.advance() // consume "("
	inner, err := p.parseLogicalOr()
	if err == nil && p.at(lexer.Punct, ")") {
		p.advance()
		if !p.isItemStart() && !p.atCompareOp() && !p.at(lexer.Punct, "=~") {
			return inner, nil
		}
		// Fall through: reinterpret as a parenthesized math expression.
	}
	p.restore(mark)
	p.advance() // consume "(" again
	expr, err := p.parseMathExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	_ = open
	if p.isItemStart() {
		items, err := p.parseItems()
		if err != nil {
			return nil, err
		}
		return &ast.PropertySel{FieldExpr: expr, Items: items, Position: expr.Pos()}, nil
	}
	return p.continuePredicateFromExpr(expr)
}

// --- Predicate layer -------------------------------------------------------

func (p *parser) parsePredicate() (ast.Node, error) {
	switch {
	case p.atWord("all", "everything"):
		pos := p.advance().Pos
		return &ast.BoolFlag{FlagKind: ast.FlagAll, Position: pos}, nil
	case p.atWord("none", "nothing"):
		pos := p.advance().Pos
		return &ast.BoolFlag{FlagKind: ast.FlagNone, Position: pos}, nil
	case p.at(lexer.Punct, "@"):
		pos := p.advance().Pos
		if p.peek().Kind != lexer.Ident {
			return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "macro name", Got: p.peek().Text})
		}
		name := p.advance().Text
		mac, ok := p.gram.Macros[name]
		if !ok {
			return nil, errors.WithStack(&ParseError{Position: pos, Expected: "registered macro", Got: name})
		}
		return &ast.BoolFlag{FlagKind: ast.FlagMacro, Name: mac.Name, Explicit: true, Position: pos}, nil
	case p.atWord("within", "exwithin"):
		return p.parseWithin()
	case p.atWord("bonded", "exbonded"):
		return p.parseBonded()
	case p.atWord("sequence"):
		return p.parseSequence()
	case p.atWord("same"):
		return p.parseSameAs()
	}

	if p.peek().Kind == lexer.Ident {
		// Hidden macros ("_" prefix) are only reachable through "@".
		if mac, ok := p.gram.Macros[p.peek().Text]; ok && !mac.Hidden() {
			pos := p.advance().Pos
			return &ast.BoolFlag{FlagKind: ast.FlagMacro, Name: mac.Name, Position: pos}, nil
		}
		if kw, ok := p.gram.Keywords[p.peek().Text]; ok {
			next := p.toks[p.pos+1]
			if p.tokenStartsItem(next) {
				return p.parsePropertySel(kw.Name)
			}
		}
	}

	expr, err := p.parseMathExpr()
	if err != nil {
		return nil, err
	}
	return p.continuePredicateFromExpr(expr)
}

// continuePredicateFromExpr decides, after parsing a math expression at
// predicate level, whether it stands alone as a keyword-derived boolean
// flag or feeds a comparison/regex chain.
func (p *parser) continuePredicateFromExpr(expr ast.Node) (ast.Node, error) {
	if p.atCompareOp() {
		return p.parseCompareSel(expr)
	}
	if p.at(lexer.Punct, "=~") {
		return p.parseRegexSel(expr)
	}
	if fr, ok := expr.(*ast.FieldRef); ok {
		return &ast.BoolFlag{FlagKind: ast.FlagKeyword, Name: fr.Field, Position: fr.Position}, nil
	}
	return nil, errors.WithStack(&ParseError{Position: expr.Pos(), Expected: "comparison, =~, or end of predicate", Got: p.peek().Text})
}

func (p *parser) parsePropertySel(field string) (ast.Node, error) {
	pos := p.advance().Pos // consume the keyword token
	items, err := p.parseItems()
	if err != nil {
		return nil, err
	}
	return &ast.PropertySel{Field: field, Items: items, Position: pos}, nil
}

func (p *parser) isItemStart() bool {
	return p.tokenStartsItem(p.peek())
}

func (p *parser) tokenStartsItem(t lexer.Token) bool {
	switch t.Kind {
	case lexer.Number, lexer.SingleQuoted, lexer.DoubleQuoted, lexer.Backtick:
		return true
	case lexer.Ident:
		if _, ok := p.gram.Keywords[t.Text]; ok {
			return false
		}
		if _, ok := p.gram.Macros[t.Text]; ok {
			return false
		}
		switch t.Text {
		case "and", "or", "xor", "not", "to", "as", "of":
			return false
		case "le", "ge", "eq", "ne", "lt", "gt":
			// Word spellings of comparison operators (see tryCompareOp).
			return false
		}
		return true
	default:
		return false
	}
}

func (p *parser) parseItems() ([]ast.Item, error) {
	var items []ast.Item
	for p.isItemStart() {
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "at least one value, range, regex, or raw string", Got: p.peek().Text})
	}
	return items, nil
}

func (p *parser) parseItem() (ast.Item, error) {
	t := p.peek()
	switch t.Kind {
	case lexer.DoubleQuoted:
		p.advance()
		return ast.RegexItem{Pattern: t.Value, Position: t.Pos}, nil
	case lexer.SingleQuoted:
		p.advance()
		return ast.StringItem{Value: t.Value, Position: t.Pos}, nil
	case lexer.Backtick:
		p.advance()
		return ast.StringItem{Value: t.Value, Position: t.Pos}, nil
	case lexer.Number:
		return p.parseNumberOrRangeItem()
	case lexer.Ident:
		p.advance()
		return ast.StringItem{Value: t.Text, Position: t.Pos}, nil
	default:
		return nil, errors.WithStack(&ParseError{Position: t.Pos, Expected: "item", Got: t.Text})
	}
}

func (p *parser) parseNumberOrRangeItem() (ast.Item, error) {
	lo, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	pos := lo.Pos()
	if p.atWord("to") {
		p.advance()
		hi, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.RangeItem{Lo: lo, Hi: hi, Position: pos}, nil
	}
	if p.at(lexer.Punct, ":") {
		p.advance()
		hi, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		var step *ast.Node
		if p.at(lexer.Punct, ":") {
			p.advance()
			s, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			step = &s
		}
		return ast.RangeItem{Lo: lo, Hi: hi, Step: step, Position: pos}, nil
	}
	return ast.NumberItem{Expr: lo, Position: pos}, nil
}

func (p *parser) atCompareOp() bool {
	_, ok := p.tryCompareOp()
	return ok
}

func (p *parser) tryCompareOp() (ast.CompareOp, bool) {
	t := p.peek()
	if t.Kind == lexer.Punct {
		switch t.Text {
		case "<=":
			return ast.OpLE, true
		case ">=":
			return ast.OpGE, true
		case "==", "=":
			return ast.OpEQ, true
		case "!=":
			return ast.OpNE, true
		case "<":
			return ast.OpLT, true
		case ">":
			return ast.OpGT, true
		}
	}
	if t.Kind == lexer.Ident {
		switch t.Text {
		case "le":
			return ast.OpLE, true
		case "ge":
			return ast.OpGE, true
		case "eq":
			return ast.OpEQ, true
		case "ne":
			return ast.OpNE, true
		case "lt":
			return ast.OpLT, true
		case "gt":
			return ast.OpGT, true
		}
	}
	return 0, false
}

func (p *parser) parseCompareSel(first ast.Node) (ast.Node, error) {
	pos := first.Pos()
	comparands := []ast.Node{first}
	var ops []ast.CompareOp
	for {
		op, ok := p.tryCompareOp()
		if !ok {
			break
		}
		p.advance()
		next, err := p.parseMathExpr()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		comparands = append(comparands, next)
	}
	allScalar := true
	for _, c := range comparands {
		if c.Kind() != ast.Scalar {
			allScalar = false
			break
		}
	}
	if allScalar {
		return nil, errors.WithStack(&PureNumericMask{Position: pos})
	}
	return &ast.CompareSel{Comparands: comparands, Ops: ops, Position: pos}, nil
}

func (p *parser) parseRegexSel(expr ast.Node) (ast.Node, error) {
	pos := p.advance().Pos // consume "=~"
	if p.peek().Kind != lexer.DoubleQuoted {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "regex literal", Got: p.peek().Text})
	}
	pattern := p.advance().Value
	return &ast.RegexSel{Expr: expr, Pattern: pattern, Position: pos}, nil
}

func (p *parser) parseWithin() (ast.Node, error) {
	opTok := p.advance()
	op := ast.OpWithin
	if opTok.Text == "exwithin" {
		op = ast.OpExwithin
	}
	dist, err := p.parseMathExpr()
	if err != nil {
		return nil, err
	}
	if !p.atWord("of") {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "'of'", Got: p.peek().Text})
	}
	p.advance()
	inner, err := p.parseLogicalNot()
	if err != nil {
		return nil, err
	}
	return &ast.WithinSel{Op: op, Distance: dist, Inner: inner, Position: opTok.Pos}, nil
}

func (p *parser) parseBonded() (ast.Node, error) {
	opTok := p.advance()
	op := ast.OpBonded
	if opTok.Text == "exbonded" {
		op = ast.OpExbonded
	}
	hops, err := p.parseMathExpr()
	if err != nil {
		return nil, err
	}
	if !p.atWord("to") {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "'to'", Got: p.peek().Text})
	}
	p.advance()
	inner, err := p.parseLogicalNot()
	if err != nil {
		return nil, err
	}
	return &ast.BondedSel{Op: op, Hops: hops, Inner: inner, Position: opTok.Pos}, nil
}

func (p *parser) parseSequence() (ast.Node, error) {
	pos := p.advance().Pos
	t := p.peek()
	var pattern string
	switch t.Kind {
	case lexer.Backtick, lexer.SingleQuoted:
		pattern = t.Value
	case lexer.DoubleQuoted:
		pattern = t.Value
	case lexer.Ident:
		pattern = t.Text
	default:
		return nil, errors.WithStack(&ParseError{Position: t.Pos, Expected: "sequence pattern", Got: t.Text})
	}
	p.advance()
	return &ast.SequenceSel{Pattern: pattern, Position: pos}, nil
}

func (p *parser) parseSameAs() (ast.Node, error) {
	pos := p.advance().Pos
	if p.peek().Kind != lexer.Ident {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "grouping keyword", Got: p.peek().Text})
	}
	kw, ok := p.gram.Keywords[p.peek().Text]
	if !ok {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "grouping keyword", Got: p.peek().Text})
	}
	p.advance()
	if !p.atWord("as") {
		return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "'as'", Got: p.peek().Text})
	}
	p.advance()
	inner, err := p.parseLogicalNot()
	if err != nil {
		return nil, err
	}
	return &ast.SameAsSel{Grouping: kw.Name, Inner: inner, Position: pos}, nil
}

// --- Math expressions ------------------------------------------------------

var funcNames = map[string]bool{
	"sin": true, "cos": true, "tan": true, "asin": true, "acos": true, "atan": true,
	"sinh": true, "cosh": true, "tanh": true, "exp": true, "log": true, "log10": true,
	"sqrt": true, "sq": true, "sqr": true, "square": true, "abs": true, "floor": true, "ceil": true,
}

func (p *parser) parseMathExpr() (ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Punct, "+") || p.at(lexer.Punct, "-") {
		opTok := p.advance()
		op := ast.OpAdd
		if opTok.Text == "-" {
			op = ast.OpSub
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.Binop{Op: op, Left: left, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

func (p *parser) parseTerm() (ast.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Punct, "*") || p.at(lexer.Punct, "/") || p.at(lexer.Punct, "//") || p.at(lexer.Punct, "%") {
		opTok := p.advance()
		var op ast.BinOp
		switch opTok.Text {
		case "*":
			op = ast.OpMul
		case "/":
			op = ast.OpDiv
		case "//":
			op = ast.OpFloor
		case "%":
			op = ast.OpMod
		}
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &ast.Binop{Op: op, Left: left, Right: right, Position: opTok.Pos}
	}
	return left, nil
}

func (p *parser) parseFactor() (ast.Node, error) {
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Punct, "**") {
		pos := p.advance().Pos
		exp, err := p.parseFactor() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.Binop{Op: ast.OpPow, Left: base, Right: exp, Position: pos}, nil
	}
	return base, nil
}

func (p *parser) parseUnary() (ast.Node, error) {
	if p.at(lexer.Punct, "-") {
		pos := p.advance().Pos
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Neg{Inner: inner, Position: pos}, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (ast.Node, error) {
	t := p.peek()
	switch {
	case t.Kind == lexer.Number:
		p.advance()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, errors.WithStack(&ParseError{Position: t.Pos, Expected: "number", Got: t.Text})
		}
		return &ast.NumLit{Value: v, Position: t.Pos}, nil
	case t.Kind == lexer.Punct && t.Text == "(":
		p.advance()
		inner, err := p.parseMathExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case t.Kind == lexer.Punct && t.Text == "$":
		p.advance()
		if p.peek().Kind != lexer.Ident {
			return nil, errors.WithStack(&ParseError{Position: p.peek().Pos, Expected: "variable name", Got: p.peek().Text})
		}
		name := p.advance().Text
		return &ast.VarRef{Name: name, Position: t.Pos}, nil
	case t.Kind == lexer.Ident && t.Text == "pi":
		p.advance()
		return &ast.Const{ConstKind: ast.ConstPi, Position: t.Pos}, nil
	case t.Kind == lexer.Ident && t.Text == "e":
		p.advance()
		return &ast.Const{ConstKind: ast.ConstE, Position: t.Pos}, nil
	case t.Kind == lexer.Ident && funcNames[t.Text]:
		name := t.Text
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		arg, err := p.parseMathExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.Func{Name: canonicalFuncName(name), Arg: arg, Position: t.Pos}, nil
	case t.Kind == lexer.Ident:
		if kw, ok := p.gram.Keywords[t.Text]; ok {
			p.advance()
			return &ast.FieldRef{Field: kw.Name, Position: t.Pos}, nil
		}
		return nil, errors.WithStack(&ParseError{Position: t.Pos, Expected: "number, field, variable, or function", Got: t.Text})
	default:
		return nil, errors.WithStack(&ParseError{Position: t.Pos, Expected: "math expression", Got: t.Text})
	}
}

func canonicalFuncName(name string) string {
	switch name {
	case "sq", "sqr", "square":
		return "square"
	default:
		return strings.ToLower(name)
	}
}
