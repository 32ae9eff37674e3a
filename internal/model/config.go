package model

import (
	"fmt"
	"strings"
)

// ConfigError 配置错误：必需的工作表或列不存在、范围配置非法
// 在任何写入之前检出，整个运行中止
type ConfigError struct {
	Table   string   // 工作表名
	Missing []string // 缺失的列或工作表
	Reason  string   // 其他非法配置说明
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config error in %q", e.Table)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing columns [%s]", strings.Join(e.Missing, ", "))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	return b.String()
}

// MissingColumns 构造缺列错误
func MissingColumns(table string, missing ...string) *ConfigError {
	return &ConfigError{Table: table, Missing: missing}
}

// InvalidConfig 构造非法配置错误
func InvalidConfig(table, format string, args ...any) *ConfigError {
	return &ConfigError{Table: table, Reason: fmt.Sprintf(format, args...)}
}
