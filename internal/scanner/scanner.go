// Package scanner 提供并发扫描调度能力。
// 该层负责文件发现、读取解码、任务分发和结果聚合，不负责语法解析细节。
package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"pyloc/internal/languages"
	"pyloc/internal/model"
	"pyloc/internal/textutil"
)

// ErrPathNotFound 表示待分析路径不存在，是唯一需要中止整次运行的错误。
var ErrPathNotFound = errors.New("path not found")

const (
	// DefaultCacheSize 是按内容摘要缓存的统计条目数。
	DefaultCacheSize = 1024

	binarySampleSize = 8192
)

// Options 是扫描服务的可配置项，零值可直接使用。
// 零值下不跳过任何目录与指向文件的符号链接，也不检查二进制内容；
// MaxFileSize 小于等于 0 表示不限制大小。
type Options struct {
	Workers          int
	Exclude          []string
	IgnoreDirs       []string
	RespectGitignore bool
	SkipSymlinks     bool
	SkipBinary       bool
	MaxFileSize      int64
	Encodings        []string
	CacheSize        int
	Logger           *log.Logger
}

// Service 是扫描服务对象。
type Service struct {
	registry   *languages.Registry
	options    Options
	ignoreDirs map[string]struct{}
	decoder    *textutil.Decoder
	cache      *lru.Cache[string, model.FileStats]
	logger     *log.Logger
}

// scanTask 表示一个待分析文件任务。
type scanTask struct {
	path     string
	analyzer languages.Analyzer
}

// workerResult 表示 worker 的执行产物，stats 与 skipped 二选一。
type workerResult struct {
	path    string
	stats   model.FileStats
	skipped *model.SkippedFile
}

// NewService 创建扫描服务。
func NewService(registry *languages.Registry, options Options) (*Service, error) {
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	decoder, err := textutil.NewDecoder(options.Encodings)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	ignoreDirs := make(map[string]struct{}, len(options.IgnoreDirs))
	for _, name := range options.IgnoreDirs {
		name = strings.Trim(strings.TrimSpace(filepath.ToSlash(name)), "/")
		if name != "" {
			ignoreDirs[name] = struct{}{}
		}
	}

	service := &Service{
		registry:   registry,
		options:    options,
		ignoreDirs: ignoreDirs,
		decoder:    decoder,
		logger:     logger,
	}

	if options.CacheSize > 0 {
		cache, err := lru.New[string, model.FileStats](options.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		service.cache = cache
	}

	return service, nil
}

// ScanPath 分析目录或单文件。
// 路径不存在时返回包装了 ErrPathNotFound 的错误，其余单文件问题只会让该文件被跳过。
func (s *Service) ScanPath(targetPath string) (model.AnalysisResult, error) {
	trimmedPath := strings.TrimSpace(targetPath)
	if trimmedPath == "" {
		return model.NewAnalysisResult(""), errors.New("scan path is empty")
	}

	absoluteTarget, err := filepath.Abs(trimmedPath)
	if err != nil {
		return model.NewAnalysisResult(""), fmt.Errorf("resolve absolute path: %w", err)
	}

	info, err := os.Stat(absoluteTarget)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewAnalysisResult(absoluteTarget), fmt.Errorf("%w: %s", ErrPathNotFound, absoluteTarget)
		}
		return model.NewAnalysisResult(absoluteTarget), fmt.Errorf("stat path: %w", err)
	}

	discovered := s.Discover(absoluteTarget, info)
	result := s.AnalyzeFiles(discovered.Files)
	result.Root = absoluteTarget
	result.Skipped = append(result.Skipped, discovered.Skipped...)
	sortSkipped(result.Skipped)
	return result, nil
}

// AnalyzeFiles 并发分析给定文件并在汇聚点完成总计。
// 路径会被转为绝对路径、去重并排序；无法处理的文件只记录在 Skipped 中。
func (s *Service) AnalyzeFiles(paths []string) model.AnalysisResult {
	result := model.NewAnalysisResult("")
	files := normalizePaths(paths)
	if len(files) == 0 {
		return result
	}

	workers := s.options.Workers
	if workers > len(files) {
		workers = len(files)
	}

	tasks := make(chan scanTask, workers*4)
	results := make(chan workerResult, workers*4)

	var workerGroup sync.WaitGroup
	for i := 0; i < workers; i++ {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			s.runWorker(tasks, results)
		}()
	}

	go func() {
		defer close(tasks)
		for _, path := range files {
			analyzer, ok := s.registry.AnalyzerForFile(path)
			if !ok {
				results <- workerResult{
					path:    path,
					skipped: &model.SkippedFile{Path: path, Reason: fmt.Sprintf("unsupported file extension: %s", filepath.Ext(path))},
				}
				continue
			}
			tasks <- scanTask{path: path, analyzer: analyzer}
		}
	}()

	go func() {
		workerGroup.Wait()
		close(results)
	}()

	// 汇聚点：只有当前 goroutine 写入 result，无需加锁。
	for item := range results {
		if item.skipped != nil {
			s.logger.Printf("skip %s: %s", item.skipped.Path, item.skipped.Reason)
			result.Skip(item.skipped.Path, item.skipped.Reason)
			continue
		}
		result.Record(item.path, item.stats)
	}

	sortSkipped(result.Skipped)
	return result
}

// runWorker 执行文件读取、解码和分析。
func (s *Service) runWorker(tasks <-chan scanTask, results chan<- workerResult) {
	for task := range tasks {
		stats, err := s.processFile(task)
		if err != nil {
			results <- workerResult{
				path:    task.path,
				skipped: &model.SkippedFile{Path: task.path, Reason: err.Error()},
			}
			continue
		}
		results <- workerResult{path: task.path, stats: stats}
	}
}

func (s *Service) processFile(task scanTask) (model.FileStats, error) {
	info, err := os.Stat(task.path)
	if err != nil {
		return model.FileStats{}, fmt.Errorf("stat file: %w", err)
	}
	if s.options.MaxFileSize > 0 && info.Size() > s.options.MaxFileSize {
		return model.FileStats{}, fmt.Errorf("file size %d exceeds limit %d", info.Size(), s.options.MaxFileSize)
	}

	data, err := os.ReadFile(task.path)
	if err != nil {
		return model.FileStats{}, fmt.Errorf("read file: %w", err)
	}

	if s.options.SkipBinary {
		sample := data
		if len(sample) > binarySampleSize {
			sample = sample[:binarySampleSize]
		}
		if textutil.DetectBinary(sample) {
			return model.FileStats{}, errors.New("binary file")
		}
	}

	decoded, err := s.decoder.Decode(data)
	if err != nil {
		return model.FileStats{}, err
	}

	key := task.analyzer.Name() + ":" + textutil.HashSHA256([]byte(decoded.Text))
	if s.cache != nil {
		if stats, ok := s.cache.Get(key); ok {
			return stats, nil
		}
	}

	analysis := task.analyzer.Analyze(decoded.Text)
	for _, degraded := range analysis.Degraded {
		s.logger.Printf("partial analysis %s: %v", task.path, degraded)
	}

	if s.cache != nil {
		s.cache.Add(key, analysis.Stats)
	}
	return analysis.Stats, nil
}

// normalizePaths 转为绝对路径、去重并排序，保证输出可复现。
func normalizePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	sort.Strings(out)
	return out
}

func sortSkipped(items []model.SkippedFile) {
	sort.Slice(items, func(i int, j int) bool {
		return items[i].Path < items[j].Path
	})
}
