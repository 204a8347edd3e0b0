package pytoken

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"pyloc/internal/textutil"
)

const tabSize = 8

// operators 按长度降序排列，保证最长匹配。
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", ":=", "==", "!=", "<=", ">=", "<<", ">>", "**", "//",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
	"+", "-", "*", "/", "%", "&", "|", "^", "~", "<", ">",
	"(", ")", "[", "]", "{", "}", ",", ":", ";", ".", "=", "@",
}

var closerFor = map[byte]byte{')': '(', ']': '[', '}': '{'}

// stringPrefixes 是合法的字符串前缀（小写比较）。
var stringPrefixes = map[string]struct{}{
	"r": {}, "u": {}, "b": {}, "f": {},
	"br": {}, "rb": {}, "fr": {}, "rf": {},
}

type bracket struct {
	char byte
	line int
	col  int
}

// pendingString 保存尚未闭合的跨行字符串。
type pendingString struct {
	quote  byte
	triple bool
	line   int
	col    int
	text   strings.Builder
}

type stringStatus int

const (
	stringClosed stringStatus = iota
	stringContinues
	stringUnterminated
)

// lexer 保存一次扫描的全部状态，只在 Tokenize 内部使用。
type lexer struct {
	lines     []string
	tokens    []Token
	indents   []int
	brackets  []bracket
	continued bool
	lineOpen  bool
	str       *pendingString
}

// Tokenize 把源码切分为 token 序列，末尾总是 ENDMARKER。
//
// 遇到词法错误时返回错误之前已经产生的 token 以及 *LexError，
// 调用方可以据此做部分降级处理。
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{
		lines:   splitLines(textutil.NormalizeNewlines(src)),
		indents: []int{0},
	}

	for idx, line := range lx.lines {
		if err := lx.scanLine(idx+1, line); err != nil {
			return lx.tokens, err
		}
	}
	if err := lx.finish(len(lx.lines) + 1); err != nil {
		return lx.tokens, err
	}
	return lx.tokens, nil
}

// splitLines 按 \n 切分并保留换行符，最后一行可能没有换行符。
func splitLines(src string) []string {
	lines := make([]string, 0, strings.Count(src, "\n")+1)
	for len(src) > 0 {
		idx := strings.IndexByte(src, '\n')
		if idx < 0 {
			lines = append(lines, src)
			break
		}
		lines = append(lines, src[:idx+1])
		src = src[idx+1:]
	}
	return lines
}

func (lx *lexer) emit(kind Kind, value string, line int, col int) {
	lx.emitSpan(kind, value, line, col, line)
}

func (lx *lexer) emitSpan(kind Kind, value string, line int, col int, endLine int) {
	lx.tokens = append(lx.tokens, Token{Kind: kind, Value: value, Line: line, Col: col, EndLine: endLine})
	switch kind {
	case Name, Number, String, Op:
		lx.lineOpen = true
	case Newline:
		lx.lineOpen = false
	}
}

func (lx *lexer) fail(line int, col int, msg string) error {
	return &LexError{Line: line, Col: col, Msg: msg}
}

// scanLine 处理一个物理行。
func (lx *lexer) scanLine(lineno int, line string) error {
	pos := 0

	switch {
	case lx.str != nil:
		// 续接上一行未闭合的字符串。
		end, status := findStringEnd(line, 0, lx.str.quote, lx.str.triple)
		switch status {
		case stringClosed:
			lx.str.text.WriteString(line[:end])
			lx.emitSpan(String, lx.str.text.String(), lx.str.line, lx.str.col, lineno)
			lx.str = nil
			pos = end
		case stringContinues:
			lx.str.text.WriteString(line)
			return nil
		default:
			return lx.fail(lx.str.line, lx.str.col, "unterminated string literal")
		}
	case len(lx.brackets) == 0 && !lx.continued:
		// 新逻辑行的起点：先计算缩进列。
		column := 0
	indentLoop:
		for pos < len(line) {
			switch line[pos] {
			case ' ':
				column++
			case '\t':
				column = (column/tabSize + 1) * tabSize
			case '\f':
				column = 0
			default:
				break indentLoop
			}
			pos++
		}
		if pos == len(line) {
			return nil
		}

		// 空行与纯注释行不参与缩进计算。
		if line[pos] == '#' {
			end := lineContentEnd(line)
			lx.emit(Comment, line[pos:end], lineno, pos)
			if end < len(line) {
				lx.emit(NL, "\n", lineno, end)
			}
			return nil
		}
		if line[pos] == '\n' {
			lx.emit(NL, "\n", lineno, pos)
			return nil
		}

		if err := lx.indent(lineno, pos, column); err != nil {
			return err
		}
	default:
		lx.continued = false
	}

	return lx.scanTokens(lineno, line, pos)
}

// indent 根据缩进列生成 INDENT/DEDENT。
func (lx *lexer) indent(lineno int, pos int, column int) error {
	top := lx.indents[len(lx.indents)-1]
	if column > top {
		lx.indents = append(lx.indents, column)
		lx.emit(Indent, "", lineno, 0)
		return nil
	}
	for column < lx.indents[len(lx.indents)-1] {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(Dedent, "", lineno, pos)
	}
	if column != lx.indents[len(lx.indents)-1] {
		return lx.fail(lineno, pos, "unindent does not match any outer indentation level")
	}
	return nil
}

// scanTokens 从 pos 开始扫描一行中剩余的 token。
func (lx *lexer) scanTokens(lineno int, line string, pos int) error {
	for pos < len(line) {
		c := line[pos]

		switch {
		case c == ' ' || c == '\t' || c == '\f':
			pos++
		case c == '#':
			end := lineContentEnd(line)
			lx.emit(Comment, line[pos:end], lineno, pos)
			pos = end
		case c == '\n':
			if len(lx.brackets) > 0 || !lx.lineOpen {
				lx.emit(NL, "\n", lineno, pos)
			} else {
				lx.emit(Newline, "\n", lineno, pos)
			}
			pos++
		case c == '\\':
			if pos+1 == len(line) || line[pos+1] == '\n' {
				lx.continued = true
				return nil
			}
			return lx.fail(lineno, pos, "unexpected character after line continuation character")
		case isDigit(c) || (c == '.' && pos+1 < len(line) && isDigit(line[pos+1])):
			end := scanNumber(line, pos)
			lx.emit(Number, line[pos:end], lineno, pos)
			pos = end
		case c == '\'' || c == '"':
			next, err := lx.scanString(lineno, line, pos, pos)
			if err != nil {
				return err
			}
			pos = next
		default:
			r, size := utf8.DecodeRuneInString(line[pos:])
			if isIdentStart(r) {
				end := scanIdent(line, pos+size)
				word := line[pos:end]
				if end < len(line) && (line[end] == '\'' || line[end] == '"') {
					if _, ok := stringPrefixes[strings.ToLower(word)]; ok {
						next, err := lx.scanString(lineno, line, pos, end)
						if err != nil {
							return err
						}
						pos = next
						continue
					}
				}
				lx.emit(Name, word, lineno, pos)
				pos = end
				continue
			}

			next, err := lx.scanOperator(lineno, line, pos)
			if err != nil {
				return err
			}
			pos = next
		}
	}
	return nil
}

// scanString 扫描以 start 开始（含前缀）、引号位于 quotePos 的字符串。
// 未闭合且可以跨行时转入 pendingString 状态，返回值指向行尾。
func (lx *lexer) scanString(lineno int, line string, start int, quotePos int) (int, error) {
	quote := line[quotePos]
	triple := strings.HasPrefix(line[quotePos:], strings.Repeat(string(quote), 3))
	bodyStart := quotePos + 1
	if triple {
		bodyStart = quotePos + 3
	}

	end, status := findStringEnd(line, bodyStart, quote, triple)
	switch status {
	case stringClosed:
		lx.emit(String, line[start:end], lineno, start)
		return end, nil
	case stringContinues:
		pending := &pendingString{quote: quote, triple: triple, line: lineno, col: start}
		pending.text.WriteString(line[start:])
		lx.str = pending
		lx.lineOpen = true
		return len(line), nil
	default:
		return 0, lx.fail(lineno, start, "unterminated string literal")
	}
}

// findStringEnd 在 s[i:] 中寻找字符串结束位置（返回闭合引号之后的下标）。
func findStringEnd(s string, i int, quote byte, triple bool) (int, stringStatus) {
	terminator := string(quote)
	if triple {
		terminator = strings.Repeat(terminator, 3)
	}

	escapedNewline := false
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			escapedNewline = i+1 < len(s) && s[i+1] == '\n'
			i += 2
			continue
		}
		escapedNewline = false
		if strings.HasPrefix(s[i:], terminator) {
			return i + len(terminator), stringClosed
		}
		if c == '\n' && !triple {
			return 0, stringUnterminated
		}
		i++
	}

	if triple || escapedNewline {
		return 0, stringContinues
	}
	return 0, stringUnterminated
}

func (lx *lexer) scanOperator(lineno int, line string, pos int) (int, error) {
	for _, op := range operators {
		if !strings.HasPrefix(line[pos:], op) {
			continue
		}

		switch op {
		case "(", "[", "{":
			lx.brackets = append(lx.brackets, bracket{char: op[0], line: lineno, col: pos})
		case ")", "]", "}":
			if len(lx.brackets) == 0 {
				return 0, lx.fail(lineno, pos, "unmatched '"+op+"'")
			}
			open := lx.brackets[len(lx.brackets)-1]
			if open.char != closerFor[op[0]] {
				return 0, lx.fail(lineno, pos, "closing parenthesis '"+op+"' does not match opening parenthesis '"+string(open.char)+"'")
			}
			lx.brackets = lx.brackets[:len(lx.brackets)-1]
		}

		lx.emit(Op, op, lineno, pos)
		return pos + len(op), nil
	}

	r, _ := utf8.DecodeRuneInString(line[pos:])
	return 0, lx.fail(lineno, pos, "invalid character '"+string(r)+"'")
}

// finish 在输入结束时校验状态并补齐 NEWLINE/DEDENT/ENDMARKER。
func (lx *lexer) finish(lineno int) error {
	if lx.str != nil {
		if lx.str.triple {
			return lx.fail(lx.str.line, lx.str.col, "unterminated triple-quoted string literal")
		}
		return lx.fail(lx.str.line, lx.str.col, "unterminated string literal")
	}
	if len(lx.brackets) > 0 {
		open := lx.brackets[len(lx.brackets)-1]
		return lx.fail(open.line, open.col, "'"+string(open.char)+"' was never closed")
	}
	if lx.continued {
		return lx.fail(lineno-1, 0, "unexpected EOF while parsing")
	}

	if lx.lineOpen {
		lx.emit(Newline, "", lineno-1, 0)
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.emit(Dedent, "", lineno, 0)
	}
	lx.emit(EndMarker, "", lineno, 0)
	return nil
}

func lineContentEnd(line string) int {
	return len(strings.TrimSuffix(line, "\n"))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)
}

func scanIdent(line string, pos int) int {
	for pos < len(line) {
		r, size := utf8.DecodeRuneInString(line[pos:])
		if !isIdentContinue(r) {
			break
		}
		pos += size
	}
	return pos
}

// scanNumber 宽松识别数字字面量：整数、浮点、虚数以及 0x/0o/0b 前缀形式。
func scanNumber(line string, pos int) int {
	if line[pos] == '0' && pos+1 < len(line) && strings.ContainsRune("xXoObB", rune(line[pos+1])) {
		pos += 2
		for pos < len(line) && (isHexDigit(line[pos]) || line[pos] == '_') {
			pos++
		}
		return pos
	}

	digits := func() {
		for pos < len(line) && (isDigit(line[pos]) || line[pos] == '_') {
			pos++
		}
	}

	digits()
	if pos < len(line) && line[pos] == '.' {
		pos++
		digits()
	}
	if pos < len(line) && (line[pos] == 'e' || line[pos] == 'E') {
		next := pos + 1
		if next < len(line) && (line[next] == '+' || line[next] == '-') {
			next++
		}
		if next < len(line) && isDigit(line[next]) {
			pos = next
			digits()
		}
	}
	if pos < len(line) && (line[pos] == 'j' || line[pos] == 'J') {
		pos++
	}
	return pos
}
