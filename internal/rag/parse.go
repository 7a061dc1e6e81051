package rag

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

type analysisPayload struct {
	IsRelated      bool   `json:"is_related"`
	ContextSummary string `json:"context_summary"`
	RelatedIndices []int  `json:"related_indices"`
	QuestionType   string `json:"question_type"`
}

type answerPayload struct {
	DetailedAnswer string `json:"detailed_answer"`
	SummaryAnswer  string `json:"summary_answer"`
}

// extractJSONBlock 剥掉代码块围栏，截取首尾大括号之间的部分。
// 模型经常不听话地包一层 ```json
func extractJSONBlock(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// parseAnalysisPayload 严格解析失败后用 gjson 宽松抽取
func parseAnalysisPayload(raw string) (analysisPayload, bool) {
	s := extractJSONBlock(raw)

	var p analysisPayload
	if err := json.Unmarshal([]byte(s), &p); err == nil && p.QuestionType != "" {
		return p, true
	}

	qt := gjson.Get(s, "question_type")
	if !qt.Exists() {
		return analysisPayload{}, false
	}
	p = analysisPayload{
		IsRelated:      gjson.Get(s, "is_related").Bool(),
		ContextSummary: gjson.Get(s, "context_summary").String(),
		QuestionType:   qt.String(),
	}
	for _, idx := range gjson.Get(s, "related_indices").Array() {
		p.RelatedIndices = append(p.RelatedIndices, int(idx.Int()))
	}
	return p, true
}

// parseAnswerPayload 严格解析失败后用 gjson 宽松抽取
func parseAnswerPayload(raw string) (answerPayload, bool) {
	s := extractJSONBlock(raw)

	var p answerPayload
	if err := json.Unmarshal([]byte(s), &p); err == nil && p.DetailedAnswer != "" {
		return p, true
	}

	detailed := gjson.Get(s, "detailed_answer")
	if !detailed.Exists() || detailed.String() == "" {
		return answerPayload{}, false
	}
	return answerPayload{
		DetailedAnswer: detailed.String(),
		SummaryAnswer:  gjson.Get(s, "summary_answer").String(),
	}, true
}

// answerPayloadFromRaw 彻底解析失败的兜底：整段当详细答案，
// 取前几行（最多 200 字）当摘要
func answerPayloadFromRaw(raw string) answerPayload {
	raw = strings.TrimSpace(raw)

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(line))
		if len(lines) == 3 {
			break
		}
	}
	summary := strings.Join(lines, " ")
	if utf8.RuneCountInString(summary) > 200 {
		summary = string([]rune(summary)[:200]) + "..."
	}

	return answerPayload{DetailedAnswer: raw, SummaryAnswer: summary}
}
