package rag

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,6}[ \t]*(.+)$`)
	// "*" 和 "-" 作列表符必须跟空白，避免误伤行首的 **加粗**
	bulletRe    = regexp.MustCompile(`(?m)^(?:[•·]|[*-][ \t])[ \t]*`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
	// 可选地吃掉数值两侧已有的 **，保证重复应用结果不变
	unitValueRe = regexp.MustCompile(`\*{0,2}\d+(?:\.\d+)?[ \t]*(?:g/dL|mg/dL|mmHg|%|years|yrs|岁|毫米汞柱)\*{0,2}`)
)

// NormalizeMarkdown 统一详细答案的排版：标题一律二级、列表统一 "-"、
// 压缩连续空行、数值加单位加粗。纯函数，重复应用结果不变。
func NormalizeMarkdown(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	if !strings.HasPrefix(s, "#") {
		s = "## Detailed Analysis\n\n" + s
	}

	s = headingRe.ReplaceAllStringFunc(s, func(line string) string {
		return "## " + strings.TrimSpace(strings.TrimLeft(line, "# \t"))
	})

	s = bulletRe.ReplaceAllString(s, "- ")

	s = blankLineRe.ReplaceAllString(s, "\n\n")

	s = unitValueRe.ReplaceAllStringFunc(s, func(m string) string {
		return "**" + strings.Trim(m, "*") + "**"
	})

	return strings.TrimSpace(s)
}
