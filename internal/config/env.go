package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// envBinding 把去掉前缀的环境变量名绑定到一个配置字段。
type envBinding struct {
	key   string
	apply func(value string) error
}

func envBindings(cfg *Config) []envBinding {
	return []envBinding{
		{"WORKERS", intField(&cfg.Scan.Workers)},
		{"CACHE_SIZE", intField(&cfg.Scan.CacheSize)},
		{"RESPECT_GITIGNORE", boolField(&cfg.Scan.RespectGitignore)},
		{"SKIP_SYMLINKS", boolField(&cfg.Scan.SkipSymlinks)},
		{"SKIP_BINARY", boolField(&cfg.Scan.SkipBinary)},
		{"MAX_FILE_SIZE", stringField(&cfg.Scan.MaxFileSize)},
		{"FORMAT", stringField(&cfg.Output.Format)},
		{"OUTPUT", stringField(&cfg.Output.File)},
		{"EXTENSIONS", listField(&cfg.Scan.Extensions)},
		{"EXCLUDE", listField(&cfg.Scan.Exclude)},
		{"IGNORE_DIRS", listField(&cfg.Scan.IgnoreDirs)},
		{"ENCODINGS", listField(&cfg.Scan.Encodings)},
	}
}

// ApplyEnv 用 prefix 开头的环境变量覆盖配置。
// 例如：PYLOC_WORKERS=4, PYLOC_EXCLUDE=tests/**,docs/**；PYLOC_IGNORE_DIRS= 表示不跳过任何目录。
func ApplyEnv(cfg *Config, prefix string) error {
	for _, binding := range envBindings(cfg) {
		value, ok := os.LookupEnv(prefix + binding.key)
		if !ok {
			continue
		}
		if err := binding.apply(value); err != nil {
			return fmt.Errorf("environment variable %s%s: %w", prefix, binding.key, err)
		}
	}
	return nil
}

func intField(dst *int) func(string) error {
	return func(value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%q is not a valid integer", value)
		}
		*dst = n
		return nil
	}
}

func boolField(dst *bool) func(string) error {
	return func(value string) error {
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%q is not a valid boolean", value)
		}
		*dst = b
		return nil
	}
}

func stringField(dst *string) func(string) error {
	return func(value string) error {
		*dst = strings.TrimSpace(value)
		return nil
	}
}

func listField(dst *[]string) func(string) error {
	return func(value string) error {
		items := make([]string, 0)
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dst = items
		return nil
	}
}

// parseBool 在 strconv.ParseBool 之外再接受 yes/no 与 on/off。
func parseBool(value string) (bool, error) {
	switch v := strings.ToLower(strings.TrimSpace(value)); v {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	default:
		return strconv.ParseBool(v)
	}
}
