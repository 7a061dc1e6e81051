package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByKeywords(t *testing.T) {
	tests := []struct {
		question string
		want     QuestionType
	}{
		{"What is hemoglobin?", QuestionVariable},
		{"What are the measurement units for HGB?", QuestionVariable},
		{"Tell me about the MESA cohort", QuestionDataset},
		{"Hello there", QuestionGeneral},
		{"hemoglobin in MESA", QuestionVariable}, // 变量词优先
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyByKeywords(tt.question), "question: %s", tt.question)
	}
}

func TestRelatedByOverlapSharedDomainTerm(t *testing.T) {
	history := []QA{
		{Question: "What is MESA?", Answer: "MESA is a multi-ethnic study of atherosclerosis."},
		{Question: "How large is the MESA cohort?", Answer: "MESA enrolled 6814 participants."},
	}
	related, qas := relatedByOverlap("Which ethnic groups does MESA include?", history)
	assert.True(t, related)
	assert.Len(t, qas, 2)
}

func TestRelatedByOverlapUnrelated(t *testing.T) {
	history := []QA{
		{Question: "What is hemoglobin?", Answer: "Hemoglobin carries oxygen."},
	}
	related, qas := relatedByOverlap("weather today maybe", history)
	assert.False(t, related)
	assert.Empty(t, qas)
}

func TestRelatedByOverlapNeedsTwoSharedTokens(t *testing.T) {
	history := []QA{
		{Question: "participants walking daily", Answer: ""},
	}
	// 只共享一个普通词，不算相关
	related, _ := relatedByOverlap("number of participants enrolled", history)
	assert.False(t, related)

	// 共享两个普通词就算相关
	related, _ = relatedByOverlap("participants walking frequency", history)
	assert.True(t, related)
}

func TestBuildSearchQueryExtractsTerms(t *testing.T) {
	q := buildSearchQuery("What are the units of hemoglobin (HGB) in WHI?", QuestionVariable)
	assert.NotEqual(t, "What are the units of hemoglobin (HGB) in WHI?", q)
	assert.Contains(t, q, "hemoglobin")
	assert.Contains(t, q, "hgb")
	assert.Contains(t, q, "whi")
}

func TestBuildSearchQueryVerbatimFallback(t *testing.T) {
	question := "Why should anyone care"
	assert.Equal(t, question, buildSearchQuery(question, QuestionGeneral))
}

func TestFallbackAnswerHemoglobin(t *testing.T) {
	for _, q := range []string{"What is hemoglobin?", "tell me about HGB"} {
		answer := fallbackAnswer(q, LangEnglish)
		assert.Contains(t, answer, "Hemoglobin", "question: %s", q)
	}
}

func TestFallbackAnswerChineseKeepsKeyTerms(t *testing.T) {
	answer := fallbackAnswer("什么是 hemoglobin？", LangChinese)
	assert.Contains(t, answer, "Hemoglobin")
	assert.Contains(t, answer, "血红蛋白")
}

func TestFallbackAnswerGeneric(t *testing.T) {
	answer := fallbackAnswer("something obscure", LangEnglish)
	assert.True(t, strings.Contains(answer, "something obscure"))
}
