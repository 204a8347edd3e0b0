package languages

import (
	"pyloc/internal/model"
	"pyloc/internal/textutil"
)

// Classify 对每一行做一次且仅一次分类并返回统计值。
//
// 优先级：
// - 去掉首尾空白后为空 → blank（即使探测器误把该行标为注释）
// - 行号在注释集合或文档字符串集合中 → comment
// - 其余 → code
func Classify(text string, comments LineSet, docs LineSet) model.FileStats {
	var stats model.FileStats
	for idx, line := range textutil.SplitLines(text) {
		applyLineClassification(&stats, idx+1, line, comments, docs)
	}
	return stats
}

// applyLineClassification 根据行内容与行号集合更新统计值。
// 每次调用都代表处理完一整行，因此 Total 固定 +1。
func applyLineClassification(stats *model.FileStats, lineno int, line string, comments LineSet, docs LineSet) {
	stats.Total++

	if textutil.IsBlank(line) {
		stats.Blanks++
		return
	}

	if comments.Has(lineno) || docs.Has(lineno) {
		stats.Comments++
		return
	}

	stats.Code++
}
