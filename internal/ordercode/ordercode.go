// Package ordercode generates human readable order codes and recovers them
// from free-text bank remittance content.
package ordercode

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultPrefix 订单编号前缀
const DefaultPrefix = "ORD"

// bodyLen 前缀之后的字符数
const bodyLen = 8

// Generate 生成形如 ORD-AB12CD34 的订单编号
func Generate(prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(prefix) + "-" + strings.ToUpper(id[:bodyLen])
}

// Compact 去掉所有分隔符并转大写，ORD-ab12cd34 -> ORDAB12CD34
func Compact(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Matcher 从转账备注中提取订单编号候选
type Matcher struct {
	prefix  string
	pattern *regexp.Regexp
}

// NewMatcher 前缀后允许最多两个分隔字符，银行常把 "-" 吞掉或替换成空格、点
func NewMatcher(prefix string) *Matcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	prefix = strings.ToUpper(prefix)
	return &Matcher{
		prefix:  prefix,
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(prefix) + `[^A-Za-z0-9]{0,2}([A-Za-z0-9]{8})`),
	}
}

// Candidates 返回备注中所有可能的紧凑编号，按出现顺序去重。
// 每个位置都尝试一次，避免 "recordORD..." 这类前缀重叠把真正的编号吞掉。
func (m *Matcher) Candidates(content string) []string {
	var out []string
	seen := make(map[string]struct{})
	for i := 0; i < len(content); {
		loc := m.pattern.FindStringSubmatchIndex(content[i:])
		if loc == nil {
			break
		}
		code := m.prefix + strings.ToUpper(content[i+loc[2]:i+loc[3]])
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			out = append(out, code)
		}
		i += loc[0] + 1
	}
	return out
}

// Literal 精确匹配的兜底值：去掉首尾空白后的原文
func Literal(content string) string {
	return strings.TrimSpace(content)
}
