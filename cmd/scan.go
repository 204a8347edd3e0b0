package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"pyloc/internal/config"
	"pyloc/internal/languages"
	"pyloc/internal/report"
	"pyloc/internal/scanner"
)

// scanFlags 存放 scan 命令的可配置参数。
// 只有显式传入的参数才会覆盖配置文件与环境变量。
type scanFlags struct {
	configPath     string
	format         string
	json           bool
	output         string
	workers        int
	exclude        []string
	extensions     []string
	noGitignore    bool
	ignoreDirs     []string
	noIgnoreDirs   bool
	skipSymlinks   bool
	skipBinary     bool
	maxFileSize    string
	verbose        bool
}

func newScanFlags() *scanFlags {
	defaults := config.Default()
	return &scanFlags{
		format:      defaults.Output.Format,
		maxFileSize: defaults.Scan.MaxFileSize,
	}
}

// newScanCmd 创建 scan 子命令。
// 示例：
//
//	pyloc scan .
//	pyloc scan ./project --json --output result.json
func newScanCmd() *cobra.Command {
	flags := newScanFlags()

	scanCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "分析目录或单个 Python 文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, flags, args[0])
		},
	}
	bindScanFlags(scanCmd, flags)
	return scanCmd
}

func bindScanFlags(cmd *cobra.Command, flags *scanFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML 配置文件路径（默认读取 PYLOC_CONFIG）")
	f.StringVar(&flags.format, "format", flags.format, "输出格式: table 或 json")
	f.BoolVar(&flags.json, "json", false, "以 JSON 输出，等价于 --format json")
	f.StringVar(&flags.output, "output", "", "额外把 JSON 结果导出到该文件")
	f.IntVar(&flags.workers, "workers", 0, "并发 worker 数量，默认使用 CPU 核数")
	f.StringArrayVar(&flags.exclude, "exclude", nil, "排除的 glob 模式（doublestar 语法），可重复")
	f.StringSliceVar(&flags.extensions, "ext", nil, "作为 Python 源码处理的后缀，默认 .py")
	f.BoolVar(&flags.noGitignore, "no-gitignore", false, "不读取根目录的 .gitignore")
	f.StringArrayVar(&flags.ignoreDirs, "ignore-dir", nil, "额外跳过的目录名，可重复")
	f.BoolVar(&flags.noIgnoreDirs, "no-ignore-dirs", false, "清空默认与配置中的跳过目录列表")
	f.BoolVar(&flags.skipSymlinks, "skip-symlinks", false, "跳过指向文件的符号链接")
	f.BoolVar(&flags.skipBinary, "skip-binary", false, "跳过看起来是二进制内容的文件")
	f.StringVar(&flags.maxFileSize, "max-file-size", flags.maxFileSize, "单文件大小上限，例如 10MB；默认不限制")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "把跳过的文件与解析降级信息输出到 stderr")
}

// resolveConfig 按 默认值 < 配置文件 < 环境变量 < 显式参数 的顺序合并配置。
func resolveConfig(cmd *cobra.Command, flags *scanFlags) (config.Config, error) {
	cfg, _, err := config.Resolve(flags.configPath)
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Output.Format = flags.format
	}
	if changed("json") && flags.json {
		cfg.Output.Format = "json"
	}
	if changed("output") {
		cfg.Output.File = flags.output
	}
	if changed("workers") {
		cfg.Scan.Workers = flags.workers
	}
	if changed("exclude") {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, flags.exclude...)
	}
	if changed("ext") {
		cfg.Scan.Extensions = flags.extensions
	}
	if changed("no-gitignore") {
		cfg.Scan.RespectGitignore = !flags.noGitignore
	}
	if changed("no-ignore-dirs") && flags.noIgnoreDirs {
		cfg.Scan.IgnoreDirs = nil
	}
	if changed("ignore-dir") {
		cfg.Scan.IgnoreDirs = append(cfg.Scan.IgnoreDirs, flags.ignoreDirs...)
	}
	if changed("skip-symlinks") {
		cfg.Scan.SkipSymlinks = flags.skipSymlinks
	}
	if changed("skip-binary") {
		cfg.Scan.SkipBinary = flags.skipBinary
	}
	if changed("max-file-size") {
		cfg.Scan.MaxFileSize = flags.maxFileSize
	}

	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	return cfg, cfg.Validate()
}

func runScan(cmd *cobra.Command, flags *scanFlags, target string) error {
	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return &ExitError{Code: ExitFailure, Msg: err.Error()}
	}

	logger := log.New(io.Discard, "", 0)
	if flags.verbose {
		logger = log.New(cmd.ErrOrStderr(), "pyloc: ", 0)
	}
	logger.Printf("ignore dirs: [%s], gitignore: %t, max file size: %s",
		strings.Join(cfg.Scan.IgnoreDirs, " "), cfg.Scan.RespectGitignore, config.FormatSize(cfg.MaxFileSizeBytes()))

	service, err := scanner.NewService(languages.NewRegistry(cfg.Scan.Extensions...), scanner.Options{
		Workers:          cfg.Scan.Workers,
		Exclude:          cfg.Scan.Exclude,
		IgnoreDirs:       cfg.Scan.IgnoreDirs,
		RespectGitignore: cfg.Scan.RespectGitignore,
		SkipSymlinks:     cfg.Scan.SkipSymlinks,
		SkipBinary:       cfg.Scan.SkipBinary,
		MaxFileSize:      cfg.MaxFileSizeBytes(),
		Encodings:        cfg.Scan.Encodings,
		CacheSize:        cfg.Scan.CacheSize,
		Logger:           logger,
	})
	if err != nil {
		return &ExitError{Code: ExitFailure, Msg: err.Error()}
	}

	result, err := service.ScanPath(target)
	if err != nil {
		if errors.Is(err, scanner.ErrPathNotFound) {
			return &ExitError{Code: ExitPathNotFound, Msg: fmt.Sprintf("path not found: %s", target)}
		}
		return err
	}

	switch cfg.Output.Format {
	case "json":
		err = report.PrintJSON(cmd.OutOrStdout(), result)
	default:
		err = report.PrintTable(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}

	outputPath := strings.TrimSpace(cfg.Output.File)
	if outputPath == "" {
		return nil
	}
	if err := report.WriteJSONFile(outputPath, result); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "JSON exported to %s\n", outputPath)
	return nil
}
