package languages

import (
	"strings"

	"pyloc/internal/pyast"
	"pyloc/internal/pytoken"
)

// PythonAnalyzer 是 Python 源码分析器。
// 注释行来自词法扫描，文档字符串行来自语法树，两者独立计算后在分类时合并。
type PythonAnalyzer struct {
	extensions []string
}

// NewPythonAnalyzer 创建分析器；未指定后缀时使用 .py。
func NewPythonAnalyzer(extensions ...string) *PythonAnalyzer {
	normalized := make([]string, 0, len(extensions))
	seen := make(map[string]struct{})
	for _, ext := range extensions {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	if len(normalized) == 0 {
		normalized = []string{".py"}
	}
	return &PythonAnalyzer{extensions: normalized}
}

// Name 返回语言名称。
func (a *PythonAnalyzer) Name() string {
	return "Python"
}

// Extensions 返回 Python 后缀。
func (a *PythonAnalyzer) Extensions() []string {
	return append([]string(nil), a.extensions...)
}

// Analyze 计算注释行、文档字符串行并完成分类。
// 词法或语法错误只会让对应集合不完整，统计结果仍然满足总数不变式。
func (a *PythonAnalyzer) Analyze(source string) Analysis {
	var analysis Analysis

	comments, err := scanComments(source)
	if err != nil {
		analysis.Degraded = append(analysis.Degraded, err)
	}
	docs, err := scanDocstrings(source)
	if err != nil {
		analysis.Degraded = append(analysis.Degraded, err)
	}

	analysis.Stats = Classify(source, comments, docs)
	return analysis
}

// CommentLines 返回出现注释 token 的全部行号。
// 扫描遇到词法错误时返回错误之前已识别的行。
func CommentLines(source string) LineSet {
	lines, _ := scanComments(source)
	return lines
}

// DocstringLines 返回模块、函数、类文档字符串覆盖的全部行号。
// 源码无法解析时返回空集合。
func DocstringLines(source string) LineSet {
	lines, _ := scanDocstrings(source)
	return lines
}

func scanComments(source string) (LineSet, error) {
	lines := NewLineSet()
	tokens, err := pytoken.Tokenize(source)
	for _, tok := range tokens {
		if tok.Kind == pytoken.Comment {
			lines.Add(tok.Line)
		}
	}
	return lines, err
}

func scanDocstrings(source string) (LineSet, error) {
	module, err := pyast.Parse(source)
	if err != nil {
		return NewLineSet(), err
	}

	collector := &docstringCollector{lines: NewLineSet()}
	pyast.Walk(collector, module)
	return collector.lines, nil
}

// docstringCollector 只检查模块、函数、类语句块的第一条语句。
type docstringCollector struct {
	lines LineSet
}

func (c *docstringCollector) VisitModule(m *pyast.Module) {
	c.inspect(m.Body)
}

func (c *docstringCollector) VisitFunction(f *pyast.FunctionDef) {
	c.inspect(f.Body)
}

func (c *docstringCollector) VisitClass(cls *pyast.ClassDef) {
	c.inspect(cls.Body)
}

// inspect 在首条语句是纯字符串常量时，按 1 + 值中换行符个数标记行区间。
func (c *docstringCollector) inspect(body []pyast.Stmt) {
	if len(body) == 0 {
		return
	}
	expr, ok := body[0].(*pyast.ExprStmt)
	if !ok || !expr.Value.IsConstant() {
		return
	}
	span := 1 + strings.Count(expr.Value.Value, "\n")
	c.lines.AddSpan(expr.Pos().Line, span)
}
