package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	analysisSystemPrompt = "You are a professional medical data analysis assistant."
	answerSystemPrompt   = "You are a professional WHI (Women's Health Initiative) medical data analysis expert."
)

// historyAnswerLimit 进 prompt 的历史答案截断长度，防止上下文无限膨胀
const historyAnswerLimit = 200

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// buildAnalysisPrompt 上下文分析 + 问题分类的合并调用 prompt
func buildAnalysisPrompt(question string, history []QA) string {
	var b strings.Builder

	b.WriteString("Analyze the new user question against the recent conversation history.\n\n")
	b.WriteString("Recent conversation (oldest first):\n")
	for i, qa := range history {
		fmt.Fprintf(&b, "[%d] Q: %s\n", i, qa.Question)
		fmt.Fprintf(&b, "[%d] A: %s\n", i, truncateRunes(qa.Answer, historyAnswerLimit))
	}
	fmt.Fprintf(&b, "\nNew question: %s\n\n", question)

	b.WriteString(`Return strict JSON only, no markdown fences:
{
  "is_related": true or false,
  "context_summary": "one or two sentences summarizing the relevant prior discussion, or an empty string",
  "related_indices": [indices of related Q&A pairs from the list above],
  "question_type": "variable" or "dataset" or "general"
}

Classification rules:
1. "variable" - questions about specific variables, indicators, or measurements
2. "dataset" - questions about datasets, studies, or databases
3. "general" - general questions or questions requiring comprehensive information
`)
	return b.String()
}

// buildAnswerPrompt 答案生成 + 总结的合并调用 prompt
func buildAnswerPrompt(st *State) string {
	var b strings.Builder

	b.WriteString("Based on the provided context information, answer the user's question.\n\n")
	fmt.Fprintf(&b, "Context information:\n%s\n", st.Context)

	if st.IsContextRelated && len(st.RelatedPreviousQA) > 0 {
		b.WriteString("\nRelated previous conversation:\n")
		for _, qa := range st.RelatedPreviousQA {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", qa.Question, truncateRunes(qa.Answer, historyAnswerLimit))
		}
	}
	if st.ContextSummary != "" {
		fmt.Fprintf(&b, "\nConversation context summary: %s\n", st.ContextSummary)
	}

	fmt.Fprintf(&b, "\nUser question: %s\n\n", st.Question)

	b.WriteString(`Provide:
1. "detailed_answer": a comprehensive markdown-formatted answer with headings, bold emphasis on numeric values with units, and bullet or ordered lists where helpful. Include the direct answer, relevant variable or dataset information, and data interpretation or usage suggestions if applicable. If the context information is insufficient, say so and suggest alternatives.
2. "summary_answer": a concise 3-4 sentence summary suitable for a chat window.

Return strict JSON only, no markdown fences:
{"detailed_answer": "...", "summary_answer": "..."}
`)

	if st.OutputLanguage == LangChinese {
		b.WriteString("\n请用中文撰写 detailed_answer 和 summary_answer。\n")
	} else {
		b.WriteString("\nWrite both answers in English.\n")
	}
	return b.String()
}

// buildContext 把检索结果拼成 "Information N:" 形式的上下文块
func buildContext(docs []Document) string {
	if len(docs) == 0 {
		return "No relevant information found."
	}
	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("Information %d:\n%s\n", i+1, doc.Content))
	}
	return strings.Join(parts, "\n")
}

// extractSources 从文档元数据提取来源信息
func extractSources(docs []Document) []Source {
	sources := make([]Source, 0, len(docs))
	for _, doc := range docs {
		sources = append(sources, Source{
			Type:         metaOr(doc.Metadata, "type", "unknown"),
			DatasetName:  metaOr(doc.Metadata, "dataset_name", "N/A"),
			VariableName: metaOr(doc.Metadata, "variable_name", "N/A"),
			Study:        metaOr(doc.Metadata, "study", "N/A"),
		})
	}
	return sources
}

func metaOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
