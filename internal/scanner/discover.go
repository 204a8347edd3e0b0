package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"pyloc/internal/model"
)

// Discovery 是文件发现的结果。
type Discovery struct {
	Files   []string
	Skipped []model.SkippedFile
}

// gitIgnoreMatcher 保存某个目录下 .gitignore 的模式（已转换为 doublestar 语法）。
type gitIgnoreMatcher struct {
	base     string
	patterns []string
}

// Discover 找出 target 下所有已注册后缀的文件。
// target 为单文件时只检查后缀；目录不可读等问题记入 Skipped 而不是中止。
func (s *Service) Discover(target string, info fs.FileInfo) Discovery {
	discovery := Discovery{Files: make([]string, 0)}

	if !info.IsDir() {
		if _, ok := s.registry.AnalyzerForFile(target); ok {
			discovery.Files = append(discovery.Files, target)
		} else {
			s.logger.Printf("ignore %s: not a registered source file", target)
		}
		return discovery
	}

	var matchers []gitIgnoreMatcher
	if s.options.RespectGitignore {
		matchers = loadGitIgnoreMatchers(target)
	}

	_ = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Printf("skip %s: %v", path, walkErr)
			discovery.Skipped = append(discovery.Skipped, model.SkippedFile{Path: path, Reason: walkErr.Error()})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path == target {
				return nil
			}
			if _, ok := s.ignoreDirs[entry.Name()]; ok {
				s.logger.Printf("ignore directory %s", path)
				return fs.SkipDir
			}
			if s.isExcluded(target, path, true, matchers) {
				return fs.SkipDir
			}
			return nil
		}

		// 指向目录的链接不展开；悬空链接照常交给 worker，读取失败时记入 Skipped。
		if entry.Type()&os.ModeSymlink != 0 {
			if s.options.SkipSymlinks {
				return nil
			}
			if resolved, err := os.Stat(path); err == nil && resolved.IsDir() {
				return nil
			}
		}

		if _, ok := s.registry.AnalyzerForFile(path); !ok {
			return nil
		}
		if s.isExcluded(target, path, false, matchers) {
			return nil
		}

		discovery.Files = append(discovery.Files, path)
		return nil
	})

	sort.Strings(discovery.Files)
	return discovery
}

// isExcluded 依次检查 --exclude 模式与 .gitignore 模式。
// 模式同时与相对根目录的路径和绝对路径匹配。
func (s *Service) isExcluded(root string, path string, isDir bool, matchers []gitIgnoreMatcher) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	abs := filepath.ToSlash(path)

	for _, pattern := range s.options.Exclude {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if matchPattern(pattern, rel, isDir) || matchPattern(pattern, abs, isDir) {
			return true
		}
	}

	for _, m := range matchers {
		relToBase, err := filepath.Rel(m.base, path)
		if err != nil || strings.HasPrefix(relToBase, "..") {
			continue
		}
		relToBase = filepath.ToSlash(relToBase)
		for _, pattern := range m.patterns {
			if matchPattern(pattern, relToBase, isDir) {
				return true
			}
		}
	}
	return false
}

func matchPattern(pattern string, path string, isDir bool) bool {
	if ok, err := doublestar.Match(pattern, path); err == nil && ok {
		return true
	}
	if isDir {
		if ok, err := doublestar.Match(pattern, path+"/"); err == nil && ok {
			return true
		}
	}
	return false
}

// loadGitIgnoreMatchers 读取根目录的 .gitignore，取反规则（!pattern）不支持，直接忽略。
func loadGitIgnoreMatchers(root string) []gitIgnoreMatcher {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	patterns := make([]string, 0)
	for _, raw := range strings.Split(string(content), "\n") {
		pattern := strings.TrimSpace(raw)
		if pattern == "" || strings.HasPrefix(pattern, "#") || strings.HasPrefix(pattern, "!") {
			continue
		}
		anchored := strings.HasPrefix(pattern, "/")
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "/")
		if strings.HasSuffix(pattern, "/") {
			pattern += "**"
		}
		patterns = append(patterns, pattern)
		if !anchored && !strings.Contains(strings.TrimSuffix(pattern, "/**"), "/") {
			patterns = append(patterns, "**/"+pattern)
		}
	}
	return []gitIgnoreMatcher{{base: root, patterns: patterns}}
}
