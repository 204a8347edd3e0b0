package languages

import (
	"path/filepath"
	"sort"
	"strings"

	"pyloc/internal/model"
)

// Analyzer 定义单语言分析器接口。
type Analyzer interface {
	// Name 返回语言名称。
	Name() string
	// Extensions 返回该语言支持的后缀列表（包含点号，如 .py）。
	Extensions() []string
	// Analyze 对完整源码做行分类。
	Analyze(source string) Analysis
}

// Analysis 是单文件分析的产物。
// Degraded 记录被容忍的词法/语法错误，出现时注释或文档字符串行可能不完整。
type Analysis struct {
	Stats    model.FileStats
	Degraded []error
}

// LanguageDescriptor 用于对外展示语言及后缀信息。
type LanguageDescriptor struct {
	Name       string
	Extensions []string
}

// Registry 管理分析器注册与后缀映射。
type Registry struct {
	analyzers     []Analyzer
	analyzerByExt map[string]Analyzer
}

// NewRegistry 创建注册表并注册 Python 分析器。
// extensions 为空时只识别 .py。
func NewRegistry(extensions ...string) *Registry {
	return NewRegistryWith(NewPythonAnalyzer(extensions...))
}

// NewRegistryWith 使用指定分析器创建注册表，后注册的分析器覆盖相同后缀。
func NewRegistryWith(analyzers ...Analyzer) *Registry {
	registry := &Registry{
		analyzers:     analyzers,
		analyzerByExt: make(map[string]Analyzer),
	}

	for _, analyzer := range analyzers {
		for _, ext := range analyzer.Extensions() {
			registry.analyzerByExt[normalizeExtension(ext)] = analyzer
		}
	}

	return registry
}

// AnalyzerForFile 根据文件后缀查找分析器。
func (r *Registry) AnalyzerForFile(path string) (Analyzer, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	analyzer, ok := r.analyzerByExt[ext]
	return analyzer, ok
}

// Languages 返回已注册语言清单。
func (r *Registry) Languages() []LanguageDescriptor {
	result := make([]LanguageDescriptor, 0, len(r.analyzers))
	for _, analyzer := range r.analyzers {
		extensions := append([]string(nil), analyzer.Extensions()...)
		sort.Strings(extensions)
		result = append(result, LanguageDescriptor{
			Name:       analyzer.Name(),
			Extensions: extensions,
		})
	}

	sort.Slice(result, func(i int, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// normalizeExtension 统一为小写并补齐前导点号。
func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
