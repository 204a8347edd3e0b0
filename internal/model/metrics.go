// Package model 定义 pyloc 的核心数据模型。
// 这些结构会被分析器、扫描器、输出层和命令层共同使用。
package model

// FileStats 表示单个文件的四分类统计。
//
// 注意：
// - 每一行只归入 Code/Comments/Blanks 中的一类
// - 因此始终满足 Total == Code + Comments + Blanks
type FileStats struct {
	Total    int64 `json:"total"`
	Code     int64 `json:"code"`
	Comments int64 `json:"comments"`
	Blanks   int64 `json:"blanks"`
}

// Add 将另一个统计结果叠加到当前对象。
func (m *FileStats) Add(other FileStats) {
	m.Total += other.Total
	m.Code += other.Code
	m.Comments += other.Comments
	m.Blanks += other.Blanks
}

// Consistent 校验分类之和与总行数一致且没有负数。
func (m FileStats) Consistent() bool {
	if m.Total < 0 || m.Code < 0 || m.Comments < 0 || m.Blanks < 0 {
		return false
	}
	return m.Total == m.Code+m.Comments+m.Blanks
}

// AggregateStats 表示一次分析的总计。
// 在 FileStats 基础上额外增加 Files 字段，表示成功处理的文件数。
type AggregateStats struct {
	Files int64 `json:"files"`
	FileStats
}

// AddFile 累加一个文件的统计值到总计中。
func (m *AggregateStats) AddFile(other FileStats) {
	m.Files++
	m.FileStats.Add(other)
}

// SkippedFile 记录被跳过的文件及原因。
// 单个文件失败不会阻断整体分析，也不会计入总计。
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// AnalysisResult 是一次分析的完整输出。
// Files 以绝对路径为键；Root 只用于文本输出，不参与 JSON 序列化。
type AnalysisResult struct {
	Root      string               `json:"-"`
	Files     map[string]FileStats `json:"files"`
	Aggregate AggregateStats       `json:"aggregate"`
	Skipped   []SkippedFile        `json:"skipped,omitempty"`
}

// NewAnalysisResult 创建空结果，保证 Files 序列化为 {} 而不是 null。
func NewAnalysisResult(root string) AnalysisResult {
	return AnalysisResult{
		Root:    root,
		Files:   make(map[string]FileStats),
		Skipped: make([]SkippedFile, 0),
	}
}

// Record 把一个文件的统计写入结果并同步更新总计。
// 调用方需保证同一路径只记录一次。
func (r *AnalysisResult) Record(path string, stats FileStats) {
	r.Files[path] = stats
	r.Aggregate.AddFile(stats)
}

// Skip 记录一个被跳过的文件。
func (r *AnalysisResult) Skip(path string, reason string) {
	r.Skipped = append(r.Skipped, SkippedFile{Path: path, Reason: reason})
}
