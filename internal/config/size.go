package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sizeUnits 从大到小排列，ParseSize 与 FormatSize 共用。
var sizeUnits = []struct {
	prefix string
	factor int64
}{
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"K", 1 << 10},
	{"", 1},
}

// sizeExpr 接受 100、512k、10MB、1.5KiB 这类写法，单位不区分大小写。
var sizeExpr = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*([kmg]?)(?:i?b)?$`)

// ParseSize 把大小描述解析为字节数；空值返回 0，表示不限制。
func ParseSize(s string) (int64, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, nil
	}
	m := sizeExpr.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("invalid size %q, expected a value such as 512KB or 10MB", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	prefix := strings.ToUpper(m[2])
	for _, unit := range sizeUnits {
		if unit.prefix == prefix {
			return int64(n * float64(unit.factor)), nil
		}
	}
	return 0, fmt.Errorf("invalid size %q", s)
}

// FormatSize 用能整除的最大单位输出字节数，结果可以被 ParseSize 读回；0 输出 unlimited。
func FormatSize(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	for _, unit := range sizeUnits {
		if n%unit.factor == 0 {
			return strconv.FormatInt(n/unit.factor, 10) + unit.prefix + "B"
		}
	}
	return strconv.FormatInt(n, 10) + "B"
}
