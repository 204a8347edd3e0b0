// Package textutil 提供文本解码、换行归一化与显示宽度等通用工具。
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	xunicode "golang.org/x/text/encoding/unicode"
)

// DefaultEncoding 是唯一默认启用的编码。
const DefaultEncoding = "utf-8"

// Decoded 是解码后的文本以及实际命中的编码。
type Decoded struct {
	Text     string
	Encoding string
}

// fallbackEncodings 是 UTF-8 校验失败后可以按配置尝试的编码。
var fallbackEncodings = map[string]encoding.Encoding{
	"gbk":     simplifiedchinese.GBK,
	"gb18030": simplifiedchinese.GB18030,
	"latin-1": charmap.ISO8859_1,
	"cp1252":  charmap.Windows1252,
}

// Decoder 按顺序尝试配置的编码。
type Decoder struct {
	encodings []string
}

// NewDecoder 校验编码名称并创建解码器；列表为空时只接受 UTF-8。
func NewDecoder(encodings []string) (*Decoder, error) {
	normalized := make([]string, 0, len(encodings)+1)
	seen := make(map[string]struct{})
	for _, name := range append([]string{DefaultEncoding}, encodings...) {
		key := NormalizeEncodingName(name)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if key != DefaultEncoding {
			if _, ok := fallbackEncodings[key]; !ok {
				return nil, fmt.Errorf("unsupported encoding: %s", name)
			}
		}
		seen[key] = struct{}{}
		normalized = append(normalized, key)
	}
	return &Decoder{encodings: normalized}, nil
}

// NormalizeEncodingName 统一编码名称的大小写与别名。
func NormalizeEncodingName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "utf8", "utf-8-sig", "utf_8":
		return DefaultEncoding
	case "latin1", "iso-8859-1", "iso8859-1":
		return "latin-1"
	case "windows-1252":
		return "cp1252"
	}
	return key
}

// Encodings 返回启用的编码列表（UTF-8 总在首位）。
func (d *Decoder) Encodings() []string {
	return append([]string(nil), d.encodings...)
}

// Decode 把原始字节解码为文本；UTF-8 BOM 会被去掉。
func (d *Decoder) Decode(data []byte) (Decoded, error) {
	if utf8.Valid(data) {
		out, err := xunicode.UTF8BOM.NewDecoder().Bytes(data)
		if err != nil {
			return Decoded{}, fmt.Errorf("decode utf-8: %w", err)
		}
		return Decoded{Text: string(out), Encoding: DefaultEncoding}, nil
	}

	for _, name := range d.encodings[1:] {
		out, err := fallbackEncodings[name].NewDecoder().Bytes(data)
		if err == nil && utf8.Valid(out) {
			return Decoded{Text: string(out), Encoding: name}, nil
		}
	}
	return Decoded{}, fmt.Errorf("cannot decode text (tried %s)", strings.Join(d.encodings, ", "))
}

// DetectBinary 根据 NUL 字节和控制字符比例判断内容是否为二进制。
func DetectBinary(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	ctl := 0
	for _, b := range sample {
		if b == 0 {
			return true
		}
		if b == '\t' || b == '\n' || b == '\r' || b == '\f' {
			continue
		}
		if b < 32 || b == 127 {
			ctl++
		}
	}
	return float64(ctl)/float64(len(sample)) > 0.30
}

// NormalizeNewlines 把 \r\n 与单独的 \r 统一为 \n。
func NormalizeNewlines(text string) string {
	if !strings.Contains(text, "\r") {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// isLineBoundary 判断字符是否为行边界，与 Python str.splitlines 使用的集合一致。
func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

// SplitLines 按行切分文本，末尾换行不会产生额外的空行，空文本返回零行。
// 除 \n、\r\n 与 \r 外，\v、\f、\x1c-\x1e、U+0085、U+2028、U+2029 同样结束一行。
func SplitLines(text string) []string {
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i, r := range text {
		if !isLineBoundary(r) {
			continue
		}
		if i < start {
			// \r\n 中的 \n 已随 \r 一起消费
			continue
		}
		lines = append(lines, text[start:i])
		start = i + utf8.RuneLen(r)
		if r == '\r' && strings.HasPrefix(text[start:], "\n") {
			start++
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// IsBlank 判断一行去掉空白后是否为空；空白集合包含 \x1c-\x1f，与 Python str.strip 一致。
func IsBlank(line string) bool {
	return strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
	}) == ""
}

// DisplayWidth 返回字符串在终端中的显示宽度（东亚宽字符计 2）。
func DisplayWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight 用空格把字符串补齐到指定显示宽度。
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// HashSHA256 返回十六进制 SHA-256 摘要。
func HashSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
