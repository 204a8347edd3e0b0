package pyast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Literal 是单个字符串 token 的解码结果。
type Literal struct {
	Value     string
	Raw       bool
	Bytes     bool
	Formatted bool
}

// unicodeNames 覆盖 \N{...} 中常见的控制字符名称，未收录的名称解码为 U+FFFD。
var unicodeNames = map[string]rune{
	"LINE FEED":             '\n',
	"LF":                    '\n',
	"NEW LINE":              '\n',
	"END OF LINE":           '\n',
	"EOL":                   '\n',
	"NL":                    '\n',
	"CARRIAGE RETURN":       '\r',
	"CR":                    '\r',
	"CHARACTER TABULATION":  '\t',
	"HORIZONTAL TABULATION": '\t',
	"TAB":                   '\t',
	"HT":                    '\t',
	"SPACE":                 ' ',
	"NO-BREAK SPACE":        '\u00a0',
	"NULL":                  0,
}

// DecodeLiteral 解码一个带前缀与引号的字符串 token。
func DecodeLiteral(token string) (Literal, error) {
	var lit Literal

	quoteAt := strings.IndexAny(token, `'"`)
	if quoteAt < 0 {
		return lit, fmt.Errorf("not a string literal: %s", token)
	}
	for _, c := range strings.ToLower(token[:quoteAt]) {
		switch c {
		case 'r':
			lit.Raw = true
		case 'b':
			lit.Bytes = true
		case 'f':
			lit.Formatted = true
		case 'u':
		default:
			return lit, fmt.Errorf("invalid string prefix %q", token[:quoteAt])
		}
	}

	body := token[quoteAt:]
	quoteLen := 1
	if len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)) {
		quoteLen = 3
	}
	if len(body) < 2*quoteLen {
		return lit, fmt.Errorf("malformed string literal: %s", token)
	}
	body = body[quoteLen : len(body)-quoteLen]

	if lit.Raw {
		lit.Value = body
		return lit, nil
	}

	value, err := unescape(body, lit.Bytes)
	if err != nil {
		return lit, err
	}
	lit.Value = value
	return lit, nil
}

// unescape 展开反斜杠转义；无法识别的转义按原样保留。
func unescape(body string, bytesLiteral bool) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}

	var out strings.Builder
	out.Grow(len(body))

	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			out.WriteByte(c)
			i++
			continue
		}

		next := body[i+1]
		i += 2
		switch next {
		case '\n':
		case '\\', '\'', '"':
			out.WriteByte(next)
		case 'a':
			out.WriteByte('\a')
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'v':
			out.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i - 1
			for end < len(body) && end < i+2 && body[end] >= '0' && body[end] <= '7' {
				end++
			}
			code, _ := strconv.ParseUint(body[i-1:end], 8, 32)
			writeCode(&out, rune(code), bytesLiteral)
			i = end
		case 'x':
			code, err := parseHexEscape(body, i, 2, `\x`)
			if err != nil {
				return "", err
			}
			writeCode(&out, rune(code), bytesLiteral)
			i += 2
		case 'u', 'U', 'N':
			if bytesLiteral {
				out.WriteByte('\\')
				out.WriteByte(next)
				continue
			}
			if next == 'N' {
				end := strings.IndexByte(body[i:], '}')
				if i >= len(body) || body[i] != '{' || end < 0 {
					return "", fmt.Errorf(`malformed \N character escape`)
				}
				name := strings.ToUpper(body[i+1 : i+end])
				if r, ok := unicodeNames[name]; ok {
					out.WriteRune(r)
				} else {
					out.WriteRune(utf8.RuneError)
				}
				i += end + 1
				continue
			}
			width := 4
			if next == 'U' {
				width = 8
			}
			code, err := parseHexEscape(body, i, width, `\`+string(next))
			if err != nil {
				return "", err
			}
			if code > utf8.MaxRune {
				return "", fmt.Errorf(`illegal Unicode character in \U escape`)
			}
			out.WriteRune(rune(code))
			i += width
		default:
			out.WriteByte('\\')
			out.WriteByte(next)
		}
	}

	return out.String(), nil
}

func parseHexEscape(body string, at int, width int, name string) (uint64, error) {
	if at+width > len(body) {
		return 0, fmt.Errorf("truncated %s escape", name)
	}
	code, err := strconv.ParseUint(body[at:at+width], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("truncated %s escape", name)
	}
	return code, nil
}

func writeCode(out *strings.Builder, code rune, bytesLiteral bool) {
	if bytesLiteral {
		out.WriteByte(byte(code))
		return
	}
	out.WriteRune(code)
}
