// Package report 提供 pyloc 的输出能力。
// 当前实现支持 table 控制台格式和 JSON 格式（含文件导出）。
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pyloc/internal/model"
	"pyloc/internal/textutil"
)

const (
	columnGap   = 2
	numberWidth = 8
)

var numberHeaders = []string{"TOTAL", "CODE", "COMMENTS", "BLANKS"}

// PrintTable 使用表格展示分析结果。
// 表头样式只在 writer 为终端时生效，路径列按显示宽度补齐以兼容宽字符。
func PrintTable(writer io.Writer, result model.AnalysisResult) error {
	renderer := lipgloss.NewRenderer(writer)
	headerStyle := renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle := renderer.NewStyle().Foreground(lipgloss.Color("241"))

	paths := sortedPaths(result.Files)
	display := make([]string, len(paths))
	pathWidth := textutil.DisplayWidth("FILE")
	for i, path := range paths {
		display[i] = displayPath(result.Root, path)
		if w := textutil.DisplayWidth(display[i]); w > pathWidth {
			pathWidth = w
		}
	}

	if result.Root != "" {
		if _, err := fmt.Fprintf(writer, "%s %s\n\n", headerStyle.Render("ANALYZED PATH"), result.Root); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(writer, headerStyle.Render(row("FILE", pathWidth, numberHeaders))); err != nil {
		return err
	}
	for i, path := range paths {
		stats := result.Files[path]
		if _, err := fmt.Fprintln(writer, row(display[i], pathWidth, statsColumns(stats))); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(writer, dimStyle.Render(strings.Repeat("-", pathWidth+len(numberHeaders)*(numberWidth+columnGap)))); err != nil {
		return err
	}
	total := row(fmt.Sprintf("TOTAL (%d files)", result.Aggregate.Files), pathWidth, statsColumns(result.Aggregate.FileStats))
	if _, err := fmt.Fprintln(writer, headerStyle.Render(total)); err != nil {
		return err
	}

	if len(result.Skipped) > 0 {
		if _, err := fmt.Fprintf(writer, "\n%s\n", headerStyle.Render("SKIPPED FILE")); err != nil {
			return err
		}
		for _, item := range result.Skipped {
			if _, err := fmt.Fprintf(writer, "%s  %s\n", displayPath(result.Root, item.Path), dimStyle.Render(item.Reason)); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintJSON 把分析结果按易读 JSON 输出到任意 writer。
func PrintJSON(writer io.Writer, result model.AnalysisResult) error {
	content, err := marshal(result)
	if err != nil {
		return err
	}
	if _, err := writer.Write(content); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteJSONFile 将 JSON 结果导出到指定路径。
// 如果目录不存在会自动创建。
func WriteJSONFile(path string, result model.AnalysisResult) error {
	content, err := marshal(result)
	if err != nil {
		return err
	}

	directory := filepath.Dir(path)
	if directory != "." && directory != "" {
		if mkErr := os.MkdirAll(directory, 0o755); mkErr != nil {
			return fmt.Errorf("create output directory: %w", mkErr)
		}
	}

	if writeErr := os.WriteFile(path, content, 0o644); writeErr != nil {
		return fmt.Errorf("write output file: %w", writeErr)
	}
	return nil
}

// marshal 生成两空格缩进的 JSON，路径中的 <>& 等字符不做 HTML 转义，末尾带换行。
func marshal(result model.AnalysisResult) ([]byte, error) {
	if result.Files == nil {
		result.Files = make(map[string]model.FileStats)
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return buf.Bytes(), nil
}

func row(label string, labelWidth int, numbers []string) string {
	var b strings.Builder
	b.WriteString(textutil.PadRight(label, labelWidth))
	for _, n := range numbers {
		b.WriteString(strings.Repeat(" ", columnGap))
		b.WriteString(fmt.Sprintf("%*s", numberWidth, n))
	}
	return b.String()
}

func statsColumns(stats model.FileStats) []string {
	return []string{
		fmt.Sprint(stats.Total),
		fmt.Sprint(stats.Code),
		fmt.Sprint(stats.Comments),
		fmt.Sprint(stats.Blanks),
	}
}

// displayPath 在路径位于 root 之下时显示相对路径。
func displayPath(root string, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func sortedPaths(files map[string]model.FileStats) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
