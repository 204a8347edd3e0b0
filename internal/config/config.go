// Package config 加载 pyloc 的 YAML 配置与环境变量覆盖。
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix 是环境变量覆盖项的前缀。
	EnvPrefix = "PYLOC_"
	// EnvConfigPath 未传 --config 时用于指定配置文件。
	EnvConfigPath = EnvPrefix + "CONFIG"

	defaultCacheSize = 1024
)

// DefaultIgnoreDirs 是默认跳过的目录名：版本库元数据与字节码缓存，其中不会有 .py 源文件。
var DefaultIgnoreDirs = []string{".git", ".hg", ".svn", "__pycache__"}

// ScanConfig 控制文件发现与读取。MaxFileSize 为空或 0 表示不限制。
type ScanConfig struct {
	Extensions       []string `yaml:"extensions"`
	Exclude          []string `yaml:"exclude"`
	IgnoreDirs       []string `yaml:"ignore_dirs"`
	RespectGitignore bool     `yaml:"respect_gitignore"`
	SkipSymlinks     bool     `yaml:"skip_symlinks"`
	SkipBinary       bool     `yaml:"skip_binary"`
	MaxFileSize      string   `yaml:"max_file_size"`
	Workers          int      `yaml:"workers"`
	Encodings        []string `yaml:"encodings"`
	CacheSize        int      `yaml:"cache_size"`
}

// OutputConfig 控制结果输出。
type OutputConfig struct {
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config 是完整配置。
type Config struct {
	Scan   ScanConfig   `yaml:"scan"`
	Output OutputConfig `yaml:"output"`
}

// Default 返回内置默认配置。
func Default() Config {
	return Config{
		Scan: ScanConfig{
			Extensions:       []string{".py"},
			IgnoreDirs:       append([]string(nil), DefaultIgnoreDirs...),
			RespectGitignore: true,
			CacheSize:        defaultCacheSize,
		},
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// Resolve 依次叠加默认值、配置文件（path 为空时读取 PYLOC_CONFIG）与环境变量。
// 返回实际使用的配置文件路径，未使用配置文件时为空。
func Resolve(path string) (Config, string, error) {
	cfg := Default()

	source := strings.TrimSpace(path)
	if source == "" {
		source = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if source != "" {
		loaded, err := Load(source)
		if err != nil {
			return cfg, source, err
		}
		cfg = loaded
	}

	if err := ApplyEnv(&cfg, EnvPrefix); err != nil {
		return cfg, source, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, source, err
	}
	return cfg, source, nil
}

// Load 读取 YAML 配置文件，未出现的字段保留默认值。
// 文件内容支持 $VAR、${VAR} 与 ${VAR:-default} 形式的环境变量展开。
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, fmt.Errorf("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	expanded, err := expandEnv(string(b))
	if err != nil {
		return cfg, err
	}
	if strings.TrimSpace(expanded) == "" {
		return cfg, nil
	}
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// Validate 校验取值范围。
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Output.Format)) {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported format %q, allowed values: table, json", c.Output.Format)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Scan.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if _, err := ParseSize(c.Scan.MaxFileSize); err != nil {
		return err
	}
	return nil
}

// MaxFileSizeBytes 返回字节数形式的单文件上限，0 表示不限制。
func (c Config) MaxFileSizeBytes() int64 {
	n, err := ParseSize(c.Scan.MaxFileSize)
	if err != nil {
		return 0
	}
	return n
}
