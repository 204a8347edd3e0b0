package config

import (
	"fmt"
	"os"
	"strings"
)

// expandEnv 展开配置文本中的环境变量引用。
// ${VAR:-default} 在变量未设置时取 default；其余形式引用未设置的变量会报错。
func expandEnv(src string) (string, error) {
	var missing []string
	out := os.Expand(src, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("config references unset environment variable: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
