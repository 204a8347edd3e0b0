package pyast

import (
	"errors"
	"fmt"
	"strings"

	"pyloc/internal/pytoken"
)

// SyntaxError 表示源码无法构建为语法树。
// 由词法错误导致时 Err 保存原始的 *pytoken.LexError。
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d:%d: %s", e.Line, e.Col, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// hardCompound 是不能出现在简单语句开头的关键字。
var hardCompound = map[string]struct{}{
	"def": {}, "class": {}, "if": {}, "elif": {}, "else": {}, "while": {},
	"for": {}, "try": {}, "except": {}, "finally": {}, "with": {},
}

// softStarters 是软关键字 match/case 后允许紧跟的运算符。
var softStarters = map[string]struct{}{
	"(": {}, "[": {}, "{": {}, "-": {}, "+": {}, "~": {}, "*": {},
}

// parser 在解析单个文件期间保存临时状态。
type parser struct {
	tokens  []pytoken.Token
	current int
}

// Parse 对源码做词法扫描并构建语法树。
func Parse(src string) (*Module, error) {
	tokens, err := pytoken.Tokenize(src)
	if err != nil {
		var lexErr *pytoken.LexError
		if errors.As(err, &lexErr) {
			return nil, &SyntaxError{Line: lexErr.Line, Col: lexErr.Col, Msg: lexErr.Msg, Err: err}
		}
		return nil, &SyntaxError{Msg: err.Error(), Err: err}
	}
	return ParseTokens(tokens)
}

// ParseTokens 从完整的 token 序列构建语法树，注释与 NL 会被忽略。
func ParseTokens(tokens []pytoken.Token) (*Module, error) {
	significant := make([]pytoken.Token, 0, len(tokens)+1)
	for _, tok := range tokens {
		if tok.Kind == pytoken.Comment || tok.Kind == pytoken.NL {
			continue
		}
		significant = append(significant, tok)
	}
	if len(significant) == 0 || significant[len(significant)-1].Kind != pytoken.EndMarker {
		significant = append(significant, pytoken.Token{Kind: pytoken.EndMarker})
	}

	p := &parser{tokens: significant}
	body, err := p.parseBody(pytoken.EndMarker)
	if err != nil {
		return nil, err
	}
	return &Module{Body: body}, nil
}

func (p *parser) peek() pytoken.Token {
	return p.tokens[p.current]
}

func (p *parser) peekAt(offset int) pytoken.Token {
	idx := p.current + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

// advance 返回当前 token 并前移；停在 ENDMARKER 上不再前进。
func (p *parser) advance() pytoken.Token {
	tok := p.peek()
	if tok.Kind != pytoken.EndMarker {
		p.current++
	}
	return tok
}

func (p *parser) errorAt(tok pytoken.Token, msg string) error {
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: msg}
}

// parseBody 解析语句序列直到遇到 terminal（DEDENT 或 ENDMARKER）。
func (p *parser) parseBody(terminal pytoken.Kind) ([]Stmt, error) {
	body := make([]Stmt, 0)
	for {
		tok := p.peek()
		switch {
		case tok.Kind == terminal:
			p.advance()
			return body, nil
		case tok.Kind == pytoken.EndMarker:
			return nil, p.errorAt(tok, "unexpected EOF while parsing")
		case tok.Kind == pytoken.Newline:
			p.advance()
			continue
		case tok.Kind == pytoken.Indent:
			return nil, p.errorAt(tok, "unexpected indent")
		case tok.Kind == pytoken.Dedent:
			return nil, p.errorAt(tok, "unexpected dedent")
		case tok.IsName("elif") || tok.IsName("else") || tok.IsName("except") || tok.IsName("finally"):
			if err := p.parseClause(body); err != nil {
				return nil, err
			}
			continue
		}

		stmts, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmts...)
	}
}

func one(stmt Stmt, err error) ([]Stmt, error) {
	if err != nil {
		return nil, err
	}
	return []Stmt{stmt}, nil
}

func (p *parser) parseStatement() ([]Stmt, error) {
	tok := p.peek()
	if tok.IsOp("@") {
		return one(p.parseDecorated())
	}

	if tok.Kind == pytoken.Name {
		switch tok.Value {
		case "def":
			return one(p.parseFunction(tok, false))
		case "class":
			return one(p.parseClass())
		case "async":
			next := p.peekAt(1)
			switch {
			case next.IsName("def"):
				p.advance()
				return one(p.parseFunction(tok, true))
			case next.IsName("for"), next.IsName("with"):
				p.advance()
				return one(p.parseCompound(tok, next.Value))
			}
		case "if", "while", "for", "try", "with":
			return one(p.parseCompound(tok, tok.Value))
		case "match", "case":
			if p.startsSoftCompound() {
				return one(p.parseCompound(tok, tok.Value))
			}
		}
	}

	return p.parseSimpleLine()
}

// parseDecorated 跳过装饰器行，随后必须是函数或类定义。
func (p *parser) parseDecorated() (Stmt, error) {
	for p.peek().IsOp("@") {
		at := p.advance()
		var expr []pytoken.Token
		for p.peek().Kind != pytoken.Newline && p.peek().Kind != pytoken.EndMarker {
			expr = append(expr, p.advance())
		}
		if err := requireExpression(at, expr, exprOptions{}); err != nil {
			return nil, err
		}
		p.advance()
	}

	tok := p.peek()
	switch {
	case tok.IsName("def"):
		return p.parseFunction(tok, false)
	case tok.IsName("class"):
		return p.parseClass()
	case tok.IsName("async") && p.peekAt(1).IsName("def"):
		p.advance()
		return p.parseFunction(tok, true)
	}
	return nil, p.errorAt(tok, "invalid syntax")
}

// parseFunction 解析 def；start 是 def 或 async 所在的 token。
func (p *parser) parseFunction(start pytoken.Token, async bool) (*FunctionDef, error) {
	p.advance()
	name := p.peek()
	if name.Kind != pytoken.Name {
		return nil, p.errorAt(name, "invalid syntax")
	}
	p.advance()
	header, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	if err := checkFunctionHeader(name, header); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &FunctionDef{
		Name:     name.Value,
		Async:    async,
		Position: Position{Line: start.Line, Col: start.Col},
		Body:     body,
	}, nil
}

func (p *parser) parseClass() (*ClassDef, error) {
	start := p.advance()
	name := p.peek()
	if name.Kind != pytoken.Name {
		return nil, p.errorAt(name, "invalid syntax")
	}
	p.advance()
	header, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		if err := checkExpression(append([]pytoken.Token{name}, header...), exprOptions{}); err != nil {
			return nil, err
		}
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &ClassDef{
		Name:     name.Value,
		Position: Position{Line: start.Line, Col: start.Col},
		Body:     body,
	}, nil
}

func (p *parser) parseCompound(start pytoken.Token, keyword string) (*Compound, error) {
	kw := p.advance()
	header, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	if err := checkHeader(kw, keyword, header); err != nil {
		return nil, err
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	return &Compound{
		Keyword:  keyword,
		Position: Position{Line: start.Line, Col: start.Col},
		Clauses:  []string{keyword},
		Bodies:   [][]Stmt{body},
	}, nil
}

// parseClause 把 elif/else/except/finally 子句并入前一个复合语句。
func (p *parser) parseClause(body []Stmt) error {
	tok := p.peek()
	var last *Compound
	if len(body) > 0 {
		last, _ = body[len(body)-1].(*Compound)
	}
	if last == nil || !clauseAllowed(last, tok.Value) {
		return p.errorAt(tok, "invalid syntax")
	}

	p.advance()
	header, err := p.parseHeader()
	if err != nil {
		return err
	}
	if err := checkHeader(tok, tok.Value, header); err != nil {
		return err
	}
	suite, err := p.parseSuite()
	if err != nil {
		return err
	}
	last.Clauses = append(last.Clauses, tok.Value)
	last.Bodies = append(last.Bodies, suite)
	return nil
}

func clauseAllowed(c *Compound, keyword string) bool {
	switch keyword {
	case "elif":
		return c.Keyword == "if" && !c.hasClause("else")
	case "else":
		switch c.Keyword {
		case "if", "for", "while":
			return !c.hasClause("else")
		case "try":
			return c.hasClause("except") && !c.hasClause("else") && !c.hasClause("finally")
		}
	case "except":
		return c.Keyword == "try" && !c.hasClause("else") && !c.hasClause("finally")
	case "finally":
		return c.Keyword == "try" && !c.hasClause("finally")
	}
	return false
}

// checkHeader 校验子句头部：try/else/finally 必须为空，其余子句的头部按表达式校验。
// case 的模式语法与表达式不同，只要求非空。
func checkHeader(tok pytoken.Token, keyword string, header []pytoken.Token) error {
	switch keyword {
	case "try", "else", "finally":
		if len(header) != 0 {
			return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "expected ':'"}
		}
	case "if", "elif", "while", "match":
		return requireExpression(tok, header, exprOptions{})
	case "for":
		if !topLevel(header, func(t pytoken.Token) bool { return t.IsName("in") }) {
			return invalidAt(tok)
		}
		return checkExpression(header, exprOptions{})
	case "with":
		return requireExpression(tok, header, exprOptions{allowAs: true})
	case "except":
		if topLevel(header, isComma) {
			return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "multiple exception types must be parenthesized"}
		}
		return checkExpression(header, exprOptions{allowAs: true})
	case "case":
		if len(header) == 0 {
			return invalidAt(tok)
		}
	}
	return nil
}

// parseHeader 消费到顶层 ':' 为止，返回冒号之前的 token。
// lambda 自带的冒号不会结束头部。
func (p *parser) parseHeader() ([]pytoken.Token, error) {
	depth := 0
	lambdas := 0
	var header []pytoken.Token
	for {
		tok := p.peek()
		switch {
		case tok.Kind == pytoken.Newline || tok.Kind == pytoken.EndMarker:
			return nil, p.errorAt(tok, "expected ':'")
		case tok.IsName("lambda") && depth == 0:
			lambdas++
		case tok.Kind == pytoken.Op:
			switch tok.Value {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			case ":":
				if depth == 0 {
					if lambdas == 0 {
						p.advance()
						return header, nil
					}
					lambdas--
				}
			}
		}
		header = append(header, p.advance())
	}
}

// parseSuite 解析冒号之后的语句块：缩进块或同一行的简单语句。
func (p *parser) parseSuite() ([]Stmt, error) {
	if p.peek().Kind != pytoken.Newline {
		return p.parseSimpleLine()
	}

	p.advance()
	if p.peek().Kind != pytoken.Indent {
		return nil, p.errorAt(p.peek(), "expected an indented block")
	}
	p.advance()
	return p.parseBody(pytoken.Dedent)
}

// startsSoftCompound 判断 match/case 开头的逻辑行是否为复合语句。
func (p *parser) startsSoftCompound() bool {
	next := p.peekAt(1)
	switch next.Kind {
	case pytoken.Newline, pytoken.EndMarker:
		return false
	case pytoken.Op:
		if _, ok := softStarters[next.Value]; !ok {
			return false
		}
	}

	depth := 0
	for offset := 1; ; offset++ {
		tok := p.peekAt(offset)
		if tok.Kind == pytoken.Newline || tok.Kind == pytoken.EndMarker {
			return false
		}
		if tok.Kind != pytoken.Op {
			continue
		}
		switch tok.Value {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 0 {
				return true
			}
		}
	}
}

// parseSimpleLine 解析以 ';' 分隔的简单语句直到 NEWLINE。
func (p *parser) parseSimpleLine() ([]Stmt, error) {
	stmts := make([]Stmt, 0, 1)
	segment := make([]pytoken.Token, 0, 8)
	depth := 0

	flush := func() error {
		stmt, err := simpleStatement(segment)
		if err != nil {
			return err
		}
		stmts = append(stmts, stmt)
		segment = nil
		return nil
	}

	for {
		tok := p.peek()
		switch {
		case tok.Kind == pytoken.Newline || tok.Kind == pytoken.EndMarker:
			p.advance()
			if len(segment) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			if len(stmts) == 0 {
				return nil, p.errorAt(tok, "invalid syntax")
			}
			return stmts, nil
		case tok.Kind == pytoken.Indent || tok.Kind == pytoken.Dedent:
			return nil, p.errorAt(tok, "invalid syntax")
		case tok.IsOp(";") && depth == 0:
			if len(segment) == 0 {
				return nil, p.errorAt(tok, "invalid syntax")
			}
			p.advance()
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case tok.Kind == pytoken.Op:
			switch tok.Value {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			}
		}
		segment = append(segment, tok)
		p.advance()
	}
}

func simpleStatement(segment []pytoken.Token) (Stmt, error) {
	first := segment[0]
	pos := Position{Line: first.Line, Col: first.Col}
	if first.Kind == pytoken.Name {
		if _, ok := hardCompound[first.Value]; ok {
			return nil, &SyntaxError{Line: first.Line, Col: first.Col, Msg: "invalid syntax"}
		}
	}
	if err := checkSimpleStatement(segment); err != nil {
		return nil, err
	}

	lit, ok, err := stringExpression(segment)
	if err != nil {
		return nil, &SyntaxError{Line: first.Line, Col: first.Col, Msg: err.Error()}
	}
	if ok {
		return &ExprStmt{Position: pos, Value: lit}, nil
	}
	return &SimpleStmt{Position: pos}, nil
}

// stringExpression 判断语句是否只由字符串字面量构成（允许外层括号与隐式拼接）。
func stringExpression(tokens []pytoken.Token) (*StringLit, bool, error) {
	inner := stripParens(tokens)
	if len(inner) == 0 {
		return nil, false, nil
	}
	for _, tok := range inner {
		if tok.Kind != pytoken.String {
			return nil, false, nil
		}
	}

	lit := &StringLit{}
	var value strings.Builder
	bytesCount := 0
	for _, tok := range inner {
		decoded, err := DecodeLiteral(tok.Value)
		if err != nil {
			return nil, false, err
		}
		if decoded.Bytes {
			bytesCount++
		}
		if decoded.Formatted {
			lit.Formatted = true
		}
		value.WriteString(decoded.Value)
	}
	if bytesCount > 0 && bytesCount < len(inner) {
		return nil, false, errors.New("cannot mix bytes and nonbytes literals")
	}

	lit.Value = value.String()
	lit.Bytes = bytesCount > 0
	return lit, true, nil
}

// stripParens 去掉包裹整个表达式的成对括号。
func stripParens(tokens []pytoken.Token) []pytoken.Token {
	for len(tokens) >= 2 && tokens[0].IsOp("(") && tokens[len(tokens)-1].IsOp(")") {
		depth := 0
		wraps := true
		for idx, tok := range tokens {
			switch {
			case tok.IsOp("(") || tok.IsOp("[") || tok.IsOp("{"):
				depth++
			case tok.IsOp(")") || tok.IsOp("]") || tok.IsOp("}"):
				depth--
			}
			if depth == 0 && idx < len(tokens)-1 {
				wraps = false
				break
			}
		}
		if !wraps {
			break
		}
		tokens = tokens[1 : len(tokens)-1]
	}
	return tokens
}
