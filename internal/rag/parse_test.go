package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswerPayloadStrict(t *testing.T) {
	raw := `{"detailed_answer": "## Answer\nlong text", "summary_answer": "short"}`
	p, ok := parseAnswerPayload(raw)
	require.True(t, ok)
	assert.Equal(t, "## Answer\nlong text", p.DetailedAnswer)
	assert.Equal(t, "short", p.SummaryAnswer)
}

func TestParseAnswerPayloadFenced(t *testing.T) {
	raw := "```json\n{\"detailed_answer\": \"body\", \"summary_answer\": \"s\"}\n```"
	p, ok := parseAnswerPayload(raw)
	require.True(t, ok)
	assert.Equal(t, "body", p.DetailedAnswer)
}

func TestParseAnswerPayloadWithPreamble(t *testing.T) {
	raw := "Sure, here is the JSON you asked for:\n{\"detailed_answer\": \"body\", \"summary_answer\": \"s\"}"
	p, ok := parseAnswerPayload(raw)
	require.True(t, ok)
	assert.Equal(t, "body", p.DetailedAnswer)
}

func TestParseAnswerPayloadRejectsPlainText(t *testing.T) {
	_, ok := parseAnswerPayload("Hemoglobin is a protein that carries oxygen.")
	assert.False(t, ok)
}

func TestAnswerPayloadFromRaw(t *testing.T) {
	raw := "First line.\n\nSecond line.\nThird line.\nFourth line."
	p := answerPayloadFromRaw(raw)
	assert.Equal(t, raw, p.DetailedAnswer)
	assert.Equal(t, "First line. Second line. Third line.", p.SummaryAnswer)
}

func TestAnswerPayloadFromRawTruncatesSummary(t *testing.T) {
	raw := strings.Repeat("词", 400)
	p := answerPayloadFromRaw(raw)
	assert.LessOrEqual(t, utf8.RuneCountInString(p.SummaryAnswer), 203)
	assert.True(t, strings.HasSuffix(p.SummaryAnswer, "..."))
}

func TestParseAnalysisPayloadStrict(t *testing.T) {
	raw := `{"is_related": true, "context_summary": "talked about MESA", "related_indices": [0, 2], "question_type": "dataset"}`
	p, ok := parseAnalysisPayload(raw)
	require.True(t, ok)
	assert.True(t, p.IsRelated)
	assert.Equal(t, "talked about MESA", p.ContextSummary)
	assert.Equal(t, []int{0, 2}, p.RelatedIndices)
	assert.Equal(t, "dataset", p.QuestionType)
}

func TestParseAnalysisPayloadTolerant(t *testing.T) {
	// 末尾多了个逗号，严格解析会失败
	raw := `{"is_related": false, "context_summary": "", "related_indices": [], "question_type": "general",}`
	p, ok := parseAnalysisPayload(raw)
	require.True(t, ok)
	assert.Equal(t, "general", p.QuestionType)
}

func TestParseAnalysisPayloadRejectsGarbage(t *testing.T) {
	_, ok := parseAnalysisPayload("I cannot determine that.")
	assert.False(t, ok)
}

func TestParseQuestionType(t *testing.T) {
	assert.Equal(t, QuestionVariable, ParseQuestionType("variable"))
	assert.Equal(t, QuestionDataset, ParseQuestionType("dataset"))
	assert.Equal(t, QuestionGeneral, ParseQuestionType("general"))
	// 非法值一律回落 general
	assert.Equal(t, QuestionGeneral, ParseQuestionType("banana"))
	assert.Equal(t, QuestionGeneral, ParseQuestionType(""))
}
