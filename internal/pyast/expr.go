package pyast

import (
	"strings"

	"pyloc/internal/pytoken"
)

// keywords 是不能作为操作数出现的保留字；True/False/None 除外。
var keywords = map[string]struct{}{
	"and": {}, "as": {}, "assert": {}, "async": {}, "await": {}, "break": {},
	"class": {}, "continue": {}, "def": {}, "del": {}, "elif": {}, "else": {},
	"except": {}, "finally": {}, "for": {}, "from": {}, "global": {}, "if": {},
	"import": {}, "in": {}, "is": {}, "lambda": {}, "nonlocal": {}, "not": {},
	"or": {}, "pass": {}, "raise": {}, "return": {}, "try": {}, "while": {},
	"with": {}, "yield": {},
}

var binaryOps = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "//": {}, "%": {}, "**": {}, "@": {},
	"<<": {}, ">>": {}, "&": {}, "|": {}, "^": {},
	"<": {}, ">": {}, "<=": {}, ">=": {}, "==": {}, "!=": {},
	"=": {}, "+=": {}, "-=": {}, "*=": {}, "/=": {}, "//=": {}, "%=": {},
	"**=": {}, "@=": {}, "&=": {}, "|=": {}, "^=": {}, ">>=": {}, "<<=": {},
	":=": {},
}

var unaryOps = map[string]struct{}{
	"+": {}, "-": {}, "~": {}, "*": {}, "**": {},
}

type exprState int

const (
	wantOperand exprState = iota
	wantOperator
	// maybeOperand 出现在 ',' 、开括号或切片冒号之后，可以省略后续操作数。
	maybeOperand
)

// exprLevel 记录一层括号内的状态；下标 0 是语句顶层。
type exprLevel struct {
	opener        string
	pendingIf     int
	comprehension bool
}

type exprOptions struct {
	allowAs   bool // with/except 中的 "as"
	allowFrom bool // raise ... from ...
}

// checkExpression 按操作数与运算符交替的规则校验 token 序列。
// 覆盖赋值、元组、切片、推导式、条件表达式与 lambda，不区分赋值目标是否合法。
func checkExpression(tokens []pytoken.Token, opts exprOptions) error {
	state := wantOperand
	levels := []exprLevel{{}}
	var prev pytoken.Token

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		top := &levels[len(levels)-1]

		switch {
		case tok.Kind == pytoken.Op && isOpener(tok.Value):
			if state == wantOperator && tok.Value == "{" {
				return invalidAt(tok)
			}
			levels = append(levels, exprLevel{opener: tok.Value})
			state = maybeOperand

		case tok.Kind == pytoken.Op && isCloser(tok.Value):
			if len(levels) == 1 || state == wantOperand || top.pendingIf > 0 {
				return invalidAt(tok)
			}
			levels = levels[:len(levels)-1]
			state = wantOperator

		case tok.IsName("lambda"):
			if state == wantOperator {
				return invalidAt(tok)
			}
			end := lambdaColon(tokens, i)
			if end < 0 {
				return invalidAt(tok)
			}
			i = end
			state = wantOperand

		case tok.IsName("yield"):
			if state == wantOperator {
				return invalidAt(tok)
			}
			state = maybeOperand
			if i+1 < len(tokens) && tokens[i+1].IsName("from") {
				i++
				state = wantOperand
			}

		case state != wantOperator && isOperandStart(tok):
			if tok.Kind == pytoken.Number && leadingZeros(tok.Value) {
				return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "leading zeros in decimal integer literals are not permitted"}
			}
			state = wantOperator

		case state == wantOperator && tok.Kind == pytoken.String && prev.Kind == pytoken.String:
			// 相邻字符串字面量隐式拼接。

		case state != wantOperator && isUnary(tok):
			state = wantOperand

		case tok.IsOp("."):
			if state != wantOperator || i+1 >= len(tokens) || !isPlainName(tokens[i+1]) {
				return invalidAt(tok)
			}
			i++
			tok = tokens[i]

		case tok.IsOp(","):
			if state == wantOperand || (state == maybeOperand && !prev.IsOp(":")) {
				return invalidAt(tok)
			}
			state = maybeOperand

		case tok.IsOp(":"):
			inSubscript := top.opener == "["
			if state != wantOperator && !(inSubscript && state == maybeOperand) {
				return invalidAt(tok)
			}
			state = wantOperand
			if inSubscript {
				state = maybeOperand
			}

		case state == maybeOperand && prev.IsOp(",") && (tok.IsOp("=") || tok.IsName("in")):
			// 带尾逗号的元组目标：a, = b / for x, in y
			state = wantOperand

		case state == wantOperator && tok.Kind == pytoken.Op:
			if _, ok := binaryOps[tok.Value]; !ok {
				return invalidAt(tok)
			}
			state = wantOperand

		case state == wantOperator && tok.Kind == pytoken.Name:
			switch tok.Value {
			case "and", "or", "in", "is":
			case "not":
				if i+1 >= len(tokens) || !tokens[i+1].IsName("in") {
					return invalidAt(tok)
				}
				i++
			case "if":
				if !top.comprehension {
					top.pendingIf++
				}
			case "else":
				if top.pendingIf == 0 {
					return invalidAt(tok)
				}
				top.pendingIf--
			case "async", "for":
				if tok.Value == "async" {
					if i+1 >= len(tokens) || !tokens[i+1].IsName("for") {
						return invalidAt(tok)
					}
					i++
				}
				if len(levels) == 1 {
					return invalidAt(tok)
				}
				top.comprehension = true
			case "as":
				if !opts.allowAs {
					return invalidAt(tok)
				}
			case "from":
				if !opts.allowFrom {
					return invalidAt(tok)
				}
			default:
				return invalidAt(tok)
			}
			state = wantOperand

		default:
			return invalidAt(tok)
		}
		prev = tok
	}

	if len(tokens) == 0 {
		return nil
	}
	last := tokens[len(tokens)-1]
	if state == wantOperand || len(levels) != 1 || levels[0].pendingIf > 0 {
		return invalidAt(last)
	}
	return nil
}

// lambdaColon 返回 lambda 参数表结束处同层冒号的下标，找不到时返回 -1。
func lambdaColon(tokens []pytoken.Token, start int) int {
	depth := 0
	nested := 0
	for i := start + 1; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.Kind == pytoken.Op && isOpener(tok.Value):
			depth++
		case tok.Kind == pytoken.Op && isCloser(tok.Value):
			if depth == 0 {
				return -1
			}
			depth--
		case tok.IsName("lambda") && depth == 0:
			nested++
		case tok.IsOp(":") && depth == 0:
			if nested == 0 {
				return i
			}
			nested--
		}
	}
	return -1
}

func isOpener(v string) bool { return v == "(" || v == "[" || v == "{" }

func isCloser(v string) bool { return v == ")" || v == "]" || v == "}" }

func isPlainName(tok pytoken.Token) bool {
	if tok.Kind != pytoken.Name {
		return false
	}
	_, reserved := keywords[tok.Value]
	return !reserved
}

func isOperandStart(tok pytoken.Token) bool {
	switch tok.Kind {
	case pytoken.Number, pytoken.String:
		return true
	case pytoken.Name:
		return isPlainName(tok)
	case pytoken.Op:
		return tok.Value == "..."
	}
	return false
}

func isUnary(tok pytoken.Token) bool {
	if tok.Kind == pytoken.Name {
		return tok.Value == "not" || tok.Value == "await"
	}
	if tok.Kind != pytoken.Op {
		return false
	}
	_, ok := unaryOps[tok.Value]
	return ok
}

// leadingZeros 识别 0777 这类旧式八进制写法。
func leadingZeros(number string) bool {
	if len(number) < 2 || number[0] != '0' {
		return false
	}
	for _, c := range number {
		if (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return strings.Trim(number, "0_") != ""
}

func invalidAt(tok pytoken.Token) error {
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: "invalid syntax"}
}

// topLevel 判断 tokens 在括号外是否含有满足 match 的 token。
func topLevel(tokens []pytoken.Token, match func(pytoken.Token) bool) bool {
	depth := 0
	for _, tok := range tokens {
		switch {
		case tok.Kind == pytoken.Op && isOpener(tok.Value):
			depth++
		case tok.Kind == pytoken.Op && isCloser(tok.Value):
			depth--
		case depth == 0 && match(tok):
			return true
		}
	}
	return false
}

func isComma(tok pytoken.Token) bool { return tok.IsOp(",") }

// checkSimpleStatement 按语句关键字校验一条简单语句。
func checkSimpleStatement(segment []pytoken.Token) error {
	first := segment[0]
	rest := segment[1:]
	if first.Kind != pytoken.Name {
		return checkExpression(segment, exprOptions{})
	}

	switch first.Value {
	case "pass", "break", "continue":
		if len(rest) > 0 {
			return invalidAt(rest[0])
		}
		return nil
	case "return":
		return checkExpression(rest, exprOptions{})
	case "raise":
		if topLevel(rest, isComma) {
			return invalidAt(first)
		}
		return checkExpression(rest, exprOptions{allowFrom: true})
	case "global", "nonlocal", "del", "assert":
		return requireExpression(first, rest, exprOptions{})
	case "import":
		return checkImportList(first, rest, true, false)
	case "from":
		return checkFromImport(first, rest)
	case "type":
		// type X = ... 形式的类型别名
		if len(rest) >= 2 && isPlainName(rest[0]) && (rest[1].IsOp("=") || rest[1].IsOp("[")) {
			return checkExpression(rest, exprOptions{})
		}
	}
	return checkExpression(segment, exprOptions{})
}

func requireExpression(at pytoken.Token, tokens []pytoken.Token, opts exprOptions) error {
	if len(tokens) == 0 {
		return invalidAt(at)
	}
	return checkExpression(tokens, opts)
}

// checkImportList 校验 "name [as alias], ..." 列表；dotted 允许 a.b.c 形式的模块名。
func checkImportList(at pytoken.Token, tokens []pytoken.Token, dotted, trailingComma bool) error {
	if len(tokens) == 0 {
		return invalidAt(at)
	}
	i := 0
	name := func() error {
		if i >= len(tokens) {
			return invalidAt(tokens[len(tokens)-1])
		}
		if !isPlainName(tokens[i]) {
			return invalidAt(tokens[i])
		}
		i++
		return nil
	}

	for i < len(tokens) {
		if err := name(); err != nil {
			return err
		}
		for dotted && i < len(tokens) && tokens[i].IsOp(".") {
			i++
			if err := name(); err != nil {
				return err
			}
		}
		if i < len(tokens) && tokens[i].IsName("as") {
			i++
			if err := name(); err != nil {
				return err
			}
		}
		if i == len(tokens) {
			return nil
		}
		if !tokens[i].IsOp(",") {
			return invalidAt(tokens[i])
		}
		i++
		if i == len(tokens) && !trailingComma {
			return invalidAt(tokens[i-1])
		}
	}
	return nil
}

// checkFromImport 校验 from <模块> import <名称列表>。
func checkFromImport(at pytoken.Token, tokens []pytoken.Token) error {
	i := 0
	relative := false
	for i < len(tokens) && (tokens[i].IsOp(".") || tokens[i].IsOp("...")) {
		relative = true
		i++
	}
	module := i
	for i < len(tokens) && !tokens[i].IsName("import") {
		i++
	}
	if i == len(tokens) {
		return invalidAt(at)
	}
	if module == i && !relative {
		return invalidAt(tokens[i])
	}
	if module < i {
		if err := checkImportList(at, tokens[module:i], true, false); err != nil {
			return err
		}
		if topLevel(tokens[module:i], func(t pytoken.Token) bool { return t.IsName("as") || isComma(t) }) {
			return invalidAt(tokens[module])
		}
	}

	kw := tokens[i]
	names := tokens[i+1:]
	switch {
	case len(names) == 1 && names[0].IsOp("*"):
		return nil
	case len(names) >= 2 && names[0].IsOp("(") && names[len(names)-1].IsOp(")"):
		return checkImportList(kw, names[1:len(names)-1], false, true)
	}
	return checkImportList(kw, names, false, false)
}

// checkFunctionHeader 校验 def 名称之后、冒号之前的部分：
// 可选的类型参数、参数表以及 "->" 返回注解。
func checkFunctionHeader(name pytoken.Token, header []pytoken.Token) error {
	i := 0
	if i < len(header) && header[i].IsOp("[") {
		end := matchingClose(header, i)
		if end < 0 {
			return invalidAt(header[i])
		}
		if err := checkExpression(header[i+1:end], exprOptions{}); err != nil {
			return err
		}
		i = end + 1
	}
	if i >= len(header) || !header[i].IsOp("(") {
		at := name
		if i < len(header) {
			at = header[i]
		}
		return &SyntaxError{Line: at.Line, Col: at.Col, Msg: "expected '('"}
	}
	end := matchingClose(header, i)
	if end < 0 {
		return invalidAt(header[i])
	}
	if err := checkParameters(header[i+1 : end]); err != nil {
		return err
	}

	rest := header[end+1:]
	if len(rest) == 0 {
		return nil
	}
	if !rest[0].IsOp("->") {
		return invalidAt(rest[0])
	}
	return requireExpression(rest[0], rest[1:], exprOptions{})
}

// checkParameters 逐个校验形参；单独的 "*" 与 "/" 是分隔符。
func checkParameters(params []pytoken.Token) error {
	start := 0
	depth := 0
	for i := 0; i <= len(params); i++ {
		if i < len(params) {
			tok := params[i]
			switch {
			case tok.Kind == pytoken.Op && isOpener(tok.Value):
				depth++
				continue
			case tok.Kind == pytoken.Op && isCloser(tok.Value):
				depth--
				continue
			case !tok.IsOp(",") || depth > 0:
				continue
			}
		}

		param := params[start:i]
		switch {
		case len(param) == 0:
			if i < len(params) {
				return invalidAt(params[i])
			}
		case len(param) == 1 && (param[0].IsOp("*") || param[0].IsOp("/")):
		default:
			if param[0].IsOp("*") || param[0].IsOp("**") {
				param = param[1:]
			}
			if len(param) == 0 || !isPlainName(param[0]) {
				return invalidAt(params[start])
			}
			if err := checkExpression(param, exprOptions{}); err != nil {
				return err
			}
		}
		start = i + 1
	}
	return nil
}

// matchingClose 返回与 tokens[open] 配对的闭括号下标。
func matchingClose(tokens []pytoken.Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].Kind == pytoken.Op && isOpener(tokens[i].Value):
			depth++
		case tokens[i].Kind == pytoken.Op && isCloser(tokens[i].Value):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
