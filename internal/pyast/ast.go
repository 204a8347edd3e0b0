// Package pyast 把 Python token 流解析为语句级语法树。
//
// 语法树只覆盖统计所需的结构：模块、函数、类、其他复合语句以及简单语句。
// 表达式不展开，只在语句完全由字符串字面量构成时记录其解码后的值。
package pyast

// Position 是节点起始位置（1-based 行，0-based 列）。
type Position struct {
	Line int
	Col  int
}

// Node 是语法树节点的公共接口。
// accept 不导出，节点种类是封闭集合。
type Node interface {
	Pos() Position
	accept(v Visitor)
}

// Stmt 是语句节点的标记接口。
type Stmt interface {
	Node
	stmtNode()
}

// Module 是整个源文件。
type Module struct {
	Body []Stmt
}

func (m *Module) Pos() Position    { return Position{Line: 1} }
func (m *Module) accept(v Visitor) { v.VisitModule(m); walkBody(v, m.Body) }

// FunctionDef 对应 def 与 async def。
type FunctionDef struct {
	Name     string
	Async    bool
	Position Position
	Body     []Stmt
}

func (f *FunctionDef) Pos() Position    { return f.Position }
func (f *FunctionDef) stmtNode()        {}
func (f *FunctionDef) accept(v Visitor) { v.VisitFunction(f); walkBody(v, f.Body) }

// ClassDef 对应 class 定义。
type ClassDef struct {
	Name     string
	Position Position
	Body     []Stmt
}

func (c *ClassDef) Pos() Position    { return c.Position }
func (c *ClassDef) stmtNode()        {}
func (c *ClassDef) accept(v Visitor) { v.VisitClass(c); walkBody(v, c.Body) }

// Compound 表示其余带语句块的复合语句（if/for/while/try/with/match/case）。
// Clauses 与 Bodies 一一对应，例如 if/elif/else 会合并为同一个节点。
type Compound struct {
	Keyword  string
	Position Position
	Clauses  []string
	Bodies   [][]Stmt
}

func (c *Compound) Pos() Position { return c.Position }
func (c *Compound) stmtNode()     {}
func (c *Compound) accept(v Visitor) {
	for _, body := range c.Bodies {
		walkBody(v, body)
	}
}

// hasClause 判断复合语句是否已经出现过某个子句。
func (c *Compound) hasClause(keyword string) bool {
	for _, clause := range c.Clauses {
		if clause == keyword {
			return true
		}
	}
	return false
}

// ExprStmt 是只包含字符串字面量（可带括号、可隐式拼接）的表达式语句。
type ExprStmt struct {
	Position Position
	Value    *StringLit
}

func (e *ExprStmt) Pos() Position  { return e.Position }
func (e *ExprStmt) stmtNode()      {}
func (e *ExprStmt) accept(Visitor) {}

// SimpleStmt 是其余简单语句，内容不展开。
type SimpleStmt struct {
	Position Position
}

func (s *SimpleStmt) Pos() Position  { return s.Position }
func (s *SimpleStmt) stmtNode()      {}
func (s *SimpleStmt) accept(Visitor) {}

// StringLit 是一个或多个相邻字符串字面量拼接后的值。
type StringLit struct {
	Value     string
	Bytes     bool
	Formatted bool
}

// IsConstant 判断字面量是否为纯 str 常量（非 bytes、非 f-string）。
func (s *StringLit) IsConstant() bool {
	return s != nil && !s.Bytes && !s.Formatted
}

// Visitor 只关心可以携带文档字符串的节点。
// Walk 会自动深入所有语句块，包括嵌套在 if/for 等语句中的定义。
type Visitor interface {
	VisitModule(m *Module)
	VisitFunction(f *FunctionDef)
	VisitClass(c *ClassDef)
}

// Walk 以先序遍历方式访问 node 及其全部子节点。
func Walk(v Visitor, node Node) {
	if node == nil {
		return
	}
	node.accept(v)
}

func walkBody(v Visitor, body []Stmt) {
	for _, stmt := range body {
		stmt.accept(v)
	}
}
