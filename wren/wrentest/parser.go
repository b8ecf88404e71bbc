package wrentest

import (
	"fmt"
	"strings"
)

type (
	stmt any
	expr any
)

type importName struct {
	name  string
	alias string
}

type importStmt struct {
	module string
	names  []importName
	line   int
}

type varStmt struct {
	value expr
	name  string
	line  int
}

type assignStmt struct {
	value expr
	name  string
	line  int
}

type exprStmt struct {
	value expr
	line  int
}

type member struct {
	signature string
	static    bool
	line      int
}

type classStmt struct {
	name    string
	parent  string
	members []member
	foreign bool
	line    int
}

type literal struct {
	v value
}

type varRef struct {
	name string
	line int
}

// callExpr covers method calls, getters, setters, subscripts and operators,
// all of which dispatch by binding signature.
type callExpr struct {
	recv      expr
	signature string
	args      []expr
	line      int
}

type listExpr struct {
	items []expr
}

type parseError struct {
	msg  string
	line int
}

func (e *parseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

type parser struct {
	toks []token
	pos  int
}

func parse(src string) ([]stmt, error) {
	toks, err := lex(src)
	if err != nil {
		if le, ok := err.(*lexError); ok {
			return nil, &parseError{le.msg, le.line}
		}
		return nil, err
	}
	p := &parser{toks: toks}
	return p.program()
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) match(text string) bool {
	if p.peek().is(text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) (token, error) {
	t := p.next()
	if !t.is(text) {
		return t, &parseError{fmt.Sprintf("expected '%s', found %s", text, t), t.line}
	}
	return t, nil
}

func (p *parser) ident() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, &parseError{fmt.Sprintf("expected identifier, found %s", t), t.line}
	}
	return t, nil
}

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.pos++
	}
}

func (p *parser) endStatement() error {
	t := p.peek()
	if t.kind == tokNewline || t.kind == tokEOF || t.is("}") {
		return nil
	}
	return &parseError{fmt.Sprintf("expected end of statement, found %s", t), t.line}
}

func (p *parser) program() ([]stmt, error) {
	var out []stmt
	for {
		p.skipNewlines()
		if p.peek().kind == tokEOF {
			return out, nil
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
}

func (p *parser) statement() (stmt, error) {
	t := p.peek()
	switch {
	case t.is("#"):
		return nil, p.skipAttribute()
	case t.is("import"):
		return p.importStatement()
	case t.is("var"):
		return p.varStatement()
	case t.is("class"), t.is("foreign"):
		return p.classStatement()
	}

	if t.kind == tokIdent && p.toks[p.pos+1].is("=") {
		p.pos += 2
		v, err := p.expression()
		if err != nil {
			return nil, err
		}
		return &assignStmt{name: t.text, value: v, line: t.line}, p.endStatement()
	}

	v, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &exprStmt{value: v, line: t.line}, p.endStatement()
}

// skipAttribute consumes "#key = value", "#!key" or a "#group(...)" block.
func (p *parser) skipAttribute() error {
	p.next()
	p.match("!")
	if _, err := p.ident(); err != nil {
		return err
	}
	if p.peek().is("(") {
		depth := 0
		for {
			t := p.next()
			switch {
			case t.kind == tokEOF:
				return &parseError{"unterminated attribute group", t.line}
			case t.is("("):
				depth++
			case t.is(")"):
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
	}
	for p.peek().kind != tokNewline && p.peek().kind != tokEOF {
		p.next()
	}
	return nil
}

func (p *parser) importStatement() (stmt, error) {
	kw := p.next()
	t := p.next()
	if t.kind != tokString {
		return nil, &parseError{"expected module name string after import", t.line}
	}
	s := &importStmt{module: t.text, line: kw.line}
	if p.match("for") {
		for {
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			in := importName{name: name.text, alias: name.text}
			if p.match("as") {
				alias, err := p.ident()
				if err != nil {
					return nil, err
				}
				in.alias = alias.text
			}
			s.names = append(s.names, in)
			if !p.match(",") {
				break
			}
		}
	}
	return s, p.endStatement()
}

func (p *parser) varStatement() (stmt, error) {
	kw := p.next()
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s := &varStmt{name: name.text, line: kw.line}
	if p.match("=") {
		if s.value, err = p.expression(); err != nil {
			return nil, err
		}
	} else {
		s.value = &literal{v: nil}
	}
	return s, p.endStatement()
}

func (p *parser) classStatement() (stmt, error) {
	start := p.peek()
	s := &classStmt{line: start.line}
	if p.match("foreign") {
		s.foreign = true
	}
	if _, err := p.expect("class"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s.name = name.text
	if p.match("is") {
		parent, err := p.ident()
		if err != nil {
			return nil, err
		}
		s.parent = parent.text
	}
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}

	for {
		p.skipNewlines()
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return nil, &parseError{"unterminated class body", t.line}
		case t.is("}"):
			p.next()
			return s, p.endStatement()
		case t.is("#"):
			if err := p.skipAttribute(); err != nil {
				return nil, err
			}
		case t.is("foreign"):
			p.next()
			m, err := p.memberSignature()
			if err != nil {
				return nil, err
			}
			s.members = append(s.members, m)
		default:
			// Script-defined members are outside this engine's subset; skip
			// the declaration and its body.
			if err := p.skipMember(); err != nil {
				return nil, err
			}
		}
	}
}

func (p *parser) skipMember() error {
	for {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return &parseError{"unterminated member", t.line}
		case t.kind == tokNewline:
			return nil
		case t.is("{"):
			depth := 1
			for depth > 0 {
				t = p.next()
				switch {
				case t.kind == tokEOF:
					return &parseError{"unterminated method body", t.line}
				case t.is("{"):
					depth++
				case t.is("}"):
					depth--
				}
			}
			return nil
		}
	}
}

var operatorSymbols = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "<": true, ">": true,
	"<=": true, ">=": true, "==": true, "!=": true, "..": true, "...": true,
	"<<": true, ">>": true, "^": true, "|": true, "&": true, "!": true, "~": true,
}

// memberSignature parses a foreign member declaration and renders it as a
// binding signature.
func (p *parser) memberSignature() (member, error) {
	m := member{line: p.peek().line}
	prefix := ""
	if p.match("static") {
		m.static = true
	} else if p.match("construct") {
		prefix = "init "
	}

	t := p.next()
	var b strings.Builder
	b.WriteString(prefix)

	switch {
	case t.is("["):
		n, err := p.params("]")
		if err != nil {
			return m, err
		}
		b.WriteString(placeholders('[', ']', n))
	case t.kind == tokIdent && t.text == "is":
		b.WriteString("is")
		if p.peek().is("(") {
			p.next()
			n, err := p.params(")")
			if err != nil {
				return m, err
			}
			b.WriteString(placeholders('(', ')', n))
		}
	case t.kind == tokIdent:
		b.WriteString(t.text)
		if p.peek().is("(") {
			p.next()
			n, err := p.params(")")
			if err != nil {
				return m, err
			}
			b.WriteString(placeholders('(', ')', n))
		}
	case t.kind == tokPunct && operatorSymbols[t.text]:
		b.WriteString(t.text)
		if p.peek().is("(") {
			p.next()
			n, err := p.params(")")
			if err != nil {
				return m, err
			}
			b.WriteString(placeholders('(', ')', n))
		}
	default:
		return m, &parseError{fmt.Sprintf("expected member signature, found %s", t), t.line}
	}

	if p.peek().is("=") {
		p.next()
		if _, err := p.expect("("); err != nil {
			return m, err
		}
		n, err := p.params(")")
		if err != nil {
			return m, err
		}
		b.WriteByte('=')
		b.WriteString(placeholders('(', ')', n))
	}

	m.signature = b.String()
	return m, p.endStatement()
}

func (p *parser) params(closing string) (int, error) {
	n := 0
	if p.match(closing) {
		return 0, nil
	}
	for {
		if _, err := p.ident(); err != nil {
			return 0, err
		}
		n++
		if p.match(closing) {
			return n, nil
		}
		if _, err := p.expect(","); err != nil {
			return 0, err
		}
	}
}

func placeholders(open, close byte, n int) string {
	var b strings.Builder
	b.WriteByte(open)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('_')
	}
	b.WriteByte(close)
	return b.String()
}

// Expressions, lowest precedence first.

var binaryLevels = [][]string{
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"..", "..."},
	{"|"},
	{"^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) expression() (expr, error) {
	return p.binary(0)
}

func (p *parser) binary(level int) (expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		op := ""
		for _, candidate := range binaryLevels[level] {
			if t.is(candidate) {
				op = candidate
				break
			}
		}
		if op == "" {
			return left, nil
		}
		p.next()
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &callExpr{recv: left, signature: op + "(_)", args: []expr{right}, line: t.line}
	}
}

func (p *parser) unary() (expr, error) {
	t := p.peek()
	if t.is("-") || t.is("!") || t.is("~") {
		p.next()
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &callExpr{recv: operand, signature: t.text, line: t.line}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.is("."):
			p.next()
			name, err := p.ident()
			if err != nil {
				return nil, err
			}
			call := &callExpr{recv: e, signature: name.text, line: name.line}
			if p.peek().is("(") {
				p.next()
				if call.args, err = p.arguments(")"); err != nil {
					return nil, err
				}
				call.signature += placeholders('(', ')', len(call.args))
			} else if p.peek().is("=") {
				p.next()
				v, err := p.expression()
				if err != nil {
					return nil, err
				}
				call.signature += "=(_)"
				call.args = []expr{v}
			}
			e = call
		case t.is("["):
			p.next()
			args, err := p.arguments("]")
			if err != nil {
				return nil, err
			}
			if len(args) == 0 {
				return nil, &parseError{"empty subscript", t.line}
			}
			call := &callExpr{recv: e, signature: placeholders('[', ']', len(args)), args: args, line: t.line}
			if p.peek().is("=") {
				p.next()
				v, err := p.expression()
				if err != nil {
					return nil, err
				}
				call.signature += "=(_)"
				call.args = append(call.args, v)
			}
			e = call
		default:
			return e, nil
		}
	}
}

func (p *parser) arguments(closing string) ([]expr, error) {
	var args []expr
	if p.match(closing) {
		return args, nil
	}
	for {
		a, err := p.expression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.match(closing) {
			return args, nil
		}
		if _, err := p.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) primary() (expr, error) {
	t := p.next()
	switch {
	case t.kind == tokNumber:
		return &literal{v: t.num}, nil
	case t.kind == tokString:
		return &literal{v: t.text}, nil
	case t.is("true"):
		return &literal{v: true}, nil
	case t.is("false"):
		return &literal{v: false}, nil
	case t.is("null"):
		return &literal{v: nil}, nil
	case t.is("("):
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		_, err = p.expect(")")
		return e, err
	case t.is("["):
		items, err := p.arguments("]")
		if err != nil {
			return nil, err
		}
		return &listExpr{items: items}, nil
	case t.kind == tokIdent:
		return &varRef{name: t.text, line: t.line}, nil
	}
	return nil, &parseError{fmt.Sprintf("unexpected %s", t), t.line}
}
