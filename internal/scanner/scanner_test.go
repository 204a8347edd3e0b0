package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"pyloc/internal/languages"
	"pyloc/internal/model"
)

// writeFixtureFile 是测试辅助函数，用于在临时目录快速落地测试文件。
func writeFixtureFile(t *testing.T, path string, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir fixture dir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture file failed: %v", err)
	}
}

// newTestService 创建默认配置的扫描服务。
func newTestService(t *testing.T, options Options) *Service {
	t.Helper()

	service, err := NewService(languages.NewRegistry(), options)
	if err != nil {
		t.Fatalf("create service failed: %v", err)
	}
	return service
}

// assertAggregateMatchesFiles 校验总计等于各文件之和。
func assertAggregateMatchesFiles(t *testing.T, result model.AnalysisResult) {
	t.Helper()

	var sum model.AggregateStats
	for _, stats := range result.Files {
		if !stats.Consistent() {
			t.Fatalf("inconsistent file stats: %+v", stats)
		}
		sum.AddFile(stats)
	}
	if sum != result.Aggregate {
		t.Fatalf("aggregate mismatch: sum %+v, aggregate %+v", sum, result.Aggregate)
	}
}

// TestScanSingleFile 验证 scan 支持“直接传单文件路径”。
func TestScanSingleFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "single.py")

	writeFixtureFile(t, filePath, strings.Join([]string{
		"\"\"\"Module doc.\"\"\"",
		"",
		"def main():  # entry",
		"    return 1",
	}, "\n"))

	service := newTestService(t, Options{Workers: 2})
	result, err := service.ScanPath(filePath)
	if err != nil {
		t.Fatalf("scan single file failed: %v", err)
	}

	if len(result.Files) != 1 {
		t.Fatalf("expected 1 scanned file, got %d", len(result.Files))
	}
	stats, ok := result.Files[filePath]
	if !ok {
		t.Fatalf("expected absolute path key %s, got %v", filePath, result.Files)
	}
	want := model.FileStats{Total: 4, Code: 1, Comments: 2, Blanks: 1}
	if stats != want {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if result.Aggregate.Files != 1 {
		t.Fatalf("expected aggregate.files=1, got %d", result.Aggregate.Files)
	}
	assertAggregateMatchesFiles(t, result)
}

// TestScanDirectoryTotalFiles 验证目录扫描时 aggregate.files 与文件数一致，并跳过配置的目录。
func TestScanDirectoryTotalFiles(t *testing.T) {
	tempDir := t.TempDir()

	writeFixtureFile(t, filepath.Join(tempDir, "main.py"), "import pkg\n")
	writeFixtureFile(t, filepath.Join(tempDir, "pkg", "util.py"), "# helper\nVALUE = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "README.txt"), "not a source file")
	writeFixtureFile(t, filepath.Join(tempDir, "__pycache__", "main.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, ".venv", "lib", "site.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, ".git", "hooks", "hook.py"), "x = 1\n")

	service := newTestService(t, Options{Workers: 4, IgnoreDirs: []string{"__pycache__", ".venv/", " .git "}})
	result, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan directory failed: %v", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("expected 2 scanned files, got %v", result.Files)
	}
	if result.Aggregate.Files != 2 {
		t.Fatalf("expected aggregate.files=2, got %d", result.Aggregate.Files)
	}
	if result.Root != tempDir {
		t.Fatalf("unexpected root: %s", result.Root)
	}
	assertAggregateMatchesFiles(t, result)
}

// TestScanSkipsUndecodableFile 验证无法解码的文件被跳过且不影响其他文件。
func TestScanSkipsUndecodableFile(t *testing.T) {
	tempDir := t.TempDir()
	good := filepath.Join(tempDir, "a.py")
	bad := filepath.Join(tempDir, "b.py")

	writeFixtureFile(t, good, "# hello")
	writeFixtureFile(t, bad, "x = '\xff\xfe\xfa'\n")

	service := newTestService(t, Options{Workers: 2})
	result, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := model.AggregateStats{Files: 1, FileStats: model.FileStats{Total: 1, Comments: 1}}
	if result.Aggregate != want {
		t.Fatalf("unexpected aggregate: %+v", result.Aggregate)
	}
	if _, ok := result.Files[bad]; ok {
		t.Fatalf("undecodable file should be absent from files")
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Path != bad {
		t.Fatalf("unexpected skipped list: %+v", result.Skipped)
	}
}

// TestScanSkipsUnreadableFile 验证没有读权限的文件被跳过。
func TestScanSkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	tempDir := t.TempDir()
	writeFixtureFile(t, filepath.Join(tempDir, "a.py"), "# hello")
	locked := filepath.Join(tempDir, "b.py")
	writeFixtureFile(t, locked, "x = 1\n")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	service := newTestService(t, Options{Workers: 2})
	result, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := model.AggregateStats{Files: 1, FileStats: model.FileStats{Total: 1, Comments: 1}}
	if result.Aggregate != want {
		t.Fatalf("unexpected aggregate: %+v", result.Aggregate)
	}
	if _, ok := result.Files[locked]; ok {
		t.Fatalf("unreadable file should be absent from files")
	}
}

// TestScanSkipsDanglingSymlinkAndDirectory 验证与权限无关的读取失败：悬空链接与名为 x.py 的目录。
func TestScanSkipsDanglingSymlinkAndDirectory(t *testing.T) {
	tempDir := t.TempDir()
	writeFixtureFile(t, filepath.Join(tempDir, "a.py"), "# hello")
	dangling := filepath.Join(tempDir, "x.py")
	if err := os.Symlink(filepath.Join(tempDir, "missing.py"), dangling); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	service := newTestService(t, Options{Workers: 2})
	result, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := model.AggregateStats{Files: 1, FileStats: model.FileStats{Total: 1, Comments: 1}}
	if result.Aggregate != want {
		t.Fatalf("unexpected aggregate: %+v", result.Aggregate)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Path != dangling {
		t.Fatalf("unexpected skipped list: %+v", result.Skipped)
	}
	if !strings.Contains(result.Skipped[0].Reason, "stat file") {
		t.Fatalf("unexpected reason: %q", result.Skipped[0].Reason)
	}

	dir := filepath.Join(tempDir, "pkg.py")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	result = service.AnalyzeFiles([]string{dir})
	if len(result.Files) != 0 || len(result.Skipped) != 1 {
		t.Fatalf("directory should be skipped: %+v", result)
	}
	if !strings.Contains(result.Skipped[0].Reason, "read file") {
		t.Fatalf("unexpected reason: %q", result.Skipped[0].Reason)
	}
}

// TestScanLegacyEncoding 验证配置了 GBK 后可以解码非 UTF-8 文件。
func TestScanLegacyEncoding(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "legacy.py")

	encoded, err := simplifiedchinese.GBK.NewEncoder().String("# 中文注释\nx = '值'\n")
	if err != nil {
		t.Fatalf("encode fixture failed: %v", err)
	}
	writeFixtureFile(t, filePath, encoded)

	strict := newTestService(t, Options{Workers: 1})
	result, err := strict.ScanPath(filePath)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.Files) != 0 || len(result.Skipped) != 1 {
		t.Fatalf("utf-8 only service should skip gbk file: %+v", result)
	}

	lenient := newTestService(t, Options{Workers: 1, Encodings: []string{"gbk"}})
	result, err = lenient.ScanPath(filePath)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	want := model.FileStats{Total: 2, Code: 1, Comments: 1}
	if result.Files[filePath] != want {
		t.Fatalf("unexpected stats: %+v", result.Files)
	}
}

// TestNewServiceRejectsUnknownEncoding 验证未知编码在创建服务时报错。
func TestNewServiceRejectsUnknownEncoding(t *testing.T) {
	if _, err := NewService(languages.NewRegistry(), Options{Encodings: []string{"klingon"}}); err == nil {
		t.Fatalf("expected unsupported encoding error")
	}
}

// TestScanPathNotFound 验证路径不存在时返回 ErrPathNotFound。
func TestScanPathNotFound(t *testing.T) {
	service := newTestService(t, Options{})
	_, err := service.ScanPath(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}

	if _, err := service.ScanPath("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

// TestScanUnsupportedSingleFile 验证单文件模式下不支持的后缀得到空结果。
func TestScanUnsupportedSingleFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "demo.txt")
	writeFixtureFile(t, filePath, "# plain text")

	service := newTestService(t, Options{Workers: 1})
	result, err := service.ScanPath(filePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 0 || result.Aggregate.Files != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

// TestScanExcludeAndGitignore 验证 --exclude 模式与根目录 .gitignore。
func TestScanExcludeAndGitignore(t *testing.T) {
	tempDir := t.TempDir()
	writeFixtureFile(t, filepath.Join(tempDir, ".gitignore"), "# generated\nbuild/\n*.gen.py\n/local.py\n!keep.gen.py\n")
	writeFixtureFile(t, filepath.Join(tempDir, "keep.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "build", "out.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "pkg", "api.gen.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "local.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "pkg", "local.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "tests", "test_keep.py"), "x = 1\n")

	service := newTestService(t, Options{
		Workers:          2,
		Exclude:          []string{"tests/**"},
		RespectGitignore: true,
	})
	result, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := []string{
		filepath.Join(tempDir, "keep.py"),
		filepath.Join(tempDir, "pkg", "local.py"),
	}
	if got := sortedKeys(result.Files); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected files: %v", got)
	}

	ignoring := newTestService(t, Options{Workers: 2})
	result, err = ignoring.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.Files) != 6 {
		t.Fatalf("expected gitignore to be ignored when disabled, got %v", sortedKeys(result.Files))
	}
}

// TestScanSymlinks 验证默认跟随指向文件的符号链接，但不展开指向目录的链接。
func TestScanSymlinks(t *testing.T) {
	tempDir := t.TempDir()
	target := filepath.Join(tempDir, "real.py")
	writeFixtureFile(t, target, "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "pkg", "mod.py"), "x = 1\n")
	if err := os.Symlink(target, filepath.Join(tempDir, "link.py")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(tempDir, "pkg"), filepath.Join(tempDir, "alias")); err != nil {
		t.Fatalf("symlink failed: %v", err)
	}

	result, err := newTestService(t, Options{Workers: 1}).ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	want := []string{
		filepath.Join(tempDir, "link.py"),
		filepath.Join(tempDir, "pkg", "mod.py"),
		target,
	}
	if got := sortedKeys(result.Files); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected file symlink to be followed, got %v", got)
	}

	result, err = newTestService(t, Options{Workers: 1, SkipSymlinks: true}).ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(result.Files) != 2 {
		t.Fatalf("expected symlink to be skipped, got %v", sortedKeys(result.Files))
	}
}

// TestScanDefaultsCountEveryPythonFile 验证零值配置不跳过任何目录或链接，
// 与逐个打开目录树下所有 .py 文件的计数一致。
func TestScanDefaultsCountEveryPythonFile(t *testing.T) {
	tempDir := t.TempDir()
	writeFixtureFile(t, filepath.Join(tempDir, "a.py"), "x = 1\n")
	writeFixtureFile(t, filepath.Join(tempDir, "venv", "b.py"), "# b\n")
	writeFixtureFile(t, filepath.Join(tempDir, ".gitignore"), "venv/\n")
	outside := filepath.Join(t.TempDir(), "shared.py")
	writeFixtureFile(t, outside, "\"Doc.\"\n")
	if err := os.Symlink(outside, filepath.Join(tempDir, "link.py")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	result, err := newTestService(t, Options{Workers: 2}).ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	want := model.AggregateStats{Files: 3, FileStats: model.FileStats{Total: 3, Code: 1, Comments: 2}}
	if result.Aggregate != want {
		t.Fatalf("unexpected aggregate: %+v (%v)", result.Aggregate, sortedKeys(result.Files))
	}

	result, err = newTestService(t, Options{Workers: 2, RespectGitignore: true}).ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if result.Aggregate.Files != 2 {
		t.Fatalf("expected gitignore to drop venv/, got %v", sortedKeys(result.Files))
	}
}

// TestAnalyzeFilesDedupesAndSkips 验证文件列表去重、不支持后缀、超限与二进制文件的处理。
func TestAnalyzeFilesDedupesAndSkips(t *testing.T) {
	tempDir := t.TempDir()
	good := filepath.Join(tempDir, "good.py")
	notes := filepath.Join(tempDir, "notes.txt")
	big := filepath.Join(tempDir, "big.py")
	binary := filepath.Join(tempDir, "blob.py")

	writeFixtureFile(t, good, "x = 1\n")
	writeFixtureFile(t, notes, "text")
	writeFixtureFile(t, big, strings.Repeat("y = 2\n", 64))
	writeFixtureFile(t, binary, "x\x00\x01\x02")

	service := newTestService(t, Options{Workers: 3, MaxFileSize: 128, SkipBinary: true})
	result := service.AnalyzeFiles([]string{good, good, notes, big, binary, ""})

	if len(result.Files) != 1 || result.Aggregate.Files != 1 {
		t.Fatalf("expected only good.py, got %+v", result.Files)
	}

	reasons := make(map[string]string)
	for _, item := range result.Skipped {
		reasons[item.Path] = item.Reason
	}
	if !strings.Contains(reasons[notes], "unsupported file extension") {
		t.Fatalf("unexpected reason for notes.txt: %q", reasons[notes])
	}
	if !strings.Contains(reasons[big], "exceeds limit") {
		t.Fatalf("unexpected reason for big.py: %q", reasons[big])
	}
	if reasons[binary] != "binary file" {
		t.Fatalf("unexpected reason for blob.py: %q", reasons[binary])
	}
}

// TestAnalyzeFilesHasNoLimitsByDefault 验证默认不限制文件大小，也不识别二进制内容。
func TestAnalyzeFilesHasNoLimitsByDefault(t *testing.T) {
	tempDir := t.TempDir()
	big := filepath.Join(tempDir, "big.py")
	binary := filepath.Join(tempDir, "blob.py")
	writeFixtureFile(t, big, strings.Repeat("y = 2\n", 4096))
	writeFixtureFile(t, binary, "x\x00\x01\x02")

	result := newTestService(t, Options{Workers: 2}).AnalyzeFiles([]string{big, binary})
	if len(result.Skipped) != 0 {
		t.Fatalf("unexpected skipped list: %+v", result.Skipped)
	}
	if result.Files[big] != (model.FileStats{Total: 4096, Code: 4096}) {
		t.Fatalf("unexpected stats for big.py: %+v", result.Files[big])
	}
	if result.Files[binary] != (model.FileStats{Total: 1, Code: 1}) {
		t.Fatalf("unexpected stats for blob.py: %+v", result.Files[binary])
	}
}

// TestCacheDoesNotChangeCounts 验证内容相同的文件命中缓存后仍各自计数。
func TestCacheDoesNotChangeCounts(t *testing.T) {
	tempDir := t.TempDir()
	content := "# same\nx = 1\n\n"
	for _, name := range []string{"a.py", "b.py", "vendor/c.py"} {
		writeFixtureFile(t, filepath.Join(tempDir, name), content)
	}

	cached := newTestService(t, Options{Workers: 2, CacheSize: DefaultCacheSize})
	uncached := newTestService(t, Options{Workers: 2})

	first, err := cached.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	second, err := uncached.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cache changed the result: %+v vs %+v", first, second)
	}
	want := model.AggregateStats{Files: 3, FileStats: model.FileStats{Total: 9, Code: 3, Comments: 3, Blanks: 3}}
	if first.Aggregate != want {
		t.Fatalf("unexpected aggregate: %+v", first.Aggregate)
	}
}

// TestScanIsIdempotent 验证同一输入多次分析结果一致。
func TestScanIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	for i, body := range []string{"# a\n", "'''doc'''\nx = 1\n", "def f(:\n", "s = '#'\n"} {
		writeFixtureFile(t, filepath.Join(tempDir, "m"+string(rune('a'+i))+".py"), body)
	}

	service := newTestService(t, Options{Workers: 4, CacheSize: DefaultCacheSize})
	first, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	second, err := service.ScanPath(tempDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	assertAggregateMatchesFiles(t, first)
}

func sortedKeys(files map[string]model.FileStats) []string {
	keys := make([]string, 0, len(files))
	for key := range files {
		keys = append(keys, key)
	}
	return normalizePaths(keys)
}
