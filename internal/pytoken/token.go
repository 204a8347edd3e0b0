// Package pytoken 实现 Python 源码的词法扫描。
// 扫描结果既用于识别注释行，也作为 pyast 构建语法树的输入。
package pytoken

import "fmt"

// Kind 表示 token 类型。
type Kind int

const (
	EndMarker Kind = iota
	Name
	Number
	String
	Op
	Comment
	// Newline 结束一个逻辑行。
	Newline
	// NL 是不结束逻辑行的换行（空行、纯注释行、括号内换行）。
	NL
	Indent
	Dedent
)

var kindNames = map[Kind]string{
	EndMarker: "ENDMARKER",
	Name:      "NAME",
	Number:    "NUMBER",
	String:    "STRING",
	Op:        "OP",
	Comment:   "COMMENT",
	Newline:   "NEWLINE",
	NL:        "NL",
	Indent:    "INDENT",
	Dedent:    "DEDENT",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token 是一个词法单元。
// Line 为 1-based 起始行，Col 为 0-based 字节列；
// 跨行字符串的 EndLine 大于 Line。
type Token struct {
	Kind    Kind
	Value   string
	Line    int
	Col     int
	EndLine int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d:%d", t.Kind, t.Value, t.Line, t.Col)
}

// IsOp 判断 token 是否为指定运算符或分隔符。
func (t Token) IsOp(value string) bool {
	return t.Kind == Op && t.Value == value
}

// IsName 判断 token 是否为指定标识符或关键字。
func (t Token) IsName(value string) bool {
	return t.Kind == Name && t.Value == value
}

// LexError 描述扫描中断的位置与原因。
type LexError struct {
	Line int
	Col  int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
}
