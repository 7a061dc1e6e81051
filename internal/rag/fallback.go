package rag

import (
	"fmt"
	"strings"
	"unicode"
)

// 医学变量相关词表，命中即倾向 variable 分类
var variableTerms = []string{
	"variable", "measurement", "indicator", "unit", "range",
	"hemoglobin", "hemo", "hgb", "blood pressure", "bmi",
	"cholesterol", "glucose", "insulin", "triglyceride",
	"systolic", "diastolic", "waist", "weight", "height",
}

// 数据集/研究相关词表
var datasetTerms = []string{
	"dataset", "datasets", "form", "study", "studies", "database",
	"mesa", "whi", "cohort", "accession", "observational", "trial",
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"what": true, "which": true, "how": true, "does": true, "did": true,
	"about": true, "with": true, "this": true, "that": true, "from": true,
	"can": true, "you": true, "tell": true, "please": true, "between": true,
}

// classifyByKeywords 关键词兜底分类。变量词表优先于数据集词表：
// "hemoglobin in MESA" 归为更具体的 variable
func classifyByKeywords(question string) QuestionType {
	q := strings.ToLower(question)
	for _, t := range variableTerms {
		if strings.Contains(q, t) {
			return QuestionVariable
		}
	}
	for _, t := range datasetTerms {
		if strings.Contains(q, t) {
			return QuestionDataset
		}
	}
	return QuestionGeneral
}

// tokenize 小写、按非字母数字切分、去停用词和短词
func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

var domainTerms = func() map[string]bool {
	m := map[string]bool{}
	for _, t := range variableTerms {
		m[t] = true
	}
	for _, t := range datasetTerms {
		m[t] = true
	}
	return m
}()

// relatedByOverlap 词面重叠兜底：与某轮历史共享 2 个以上非停用词，
// 或共享任意一个领域词（MESA、hemoglobin 这类），即视为相关
func relatedByOverlap(question string, history []QA) (bool, []QA) {
	qTokens := tokenize(question)
	var related []QA
	for _, qa := range history {
		shared, domainShared := 0, false
		for tok := range tokenize(qa.Question + " " + qa.Answer) {
			if qTokens[tok] {
				shared++
				if domainTerms[tok] {
					domainShared = true
				}
			}
		}
		if shared > 1 || domainShared {
			related = append(related, qa)
		}
	}
	return len(related) > 0, related
}

// buildSearchQuery 从问题里抽取检索词：词表命中 + 全大写缩写。
// 什么都抽不到时原样返回问题
func buildSearchQuery(question string, questionType QuestionType) string {
	q := strings.ToLower(question)
	var terms []string
	seen := map[string]bool{}

	appendTerm := func(t string) {
		if !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	for _, t := range variableTerms {
		if strings.Contains(q, t) {
			appendTerm(t)
		}
	}
	for _, t := range datasetTerms {
		if strings.Contains(q, t) {
			appendTerm(t)
		}
	}
	// WHI、MESA、HGB 这类缩写通常就是变量名或研究名
	for _, field := range strings.Fields(question) {
		word := strings.Trim(field, ".,;:?!()\"'")
		if len(word) >= 2 && word == strings.ToUpper(word) && strings.IndexFunc(word, unicode.IsLetter) >= 0 {
			appendTerm(strings.ToLower(word))
		}
	}

	if len(terms) == 0 {
		return question
	}
	if questionType != QuestionGeneral {
		appendTerm(string(questionType))
	}
	return strings.Join(terms, " ")
}

// fallbackAnswer 降级演示模式的关键词匹配回答
func fallbackAnswer(question string, lang Language) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "hemoglobin") || strings.Contains(q, "hemo") || strings.Contains(q, "hgb"):
		if lang == LangChinese {
			return "**血红蛋白（Hemoglobin, HEMO）**是衡量血液携氧能力的关键变量。\n\n- 通常以 `g/dL` 为单位测量\n- 是评估贫血状态的重要指标"
		}
		return "**Hemoglobin (HEMO)** is a key variable for measuring blood oxygen-carrying capacity.\n\n- Usually measured in `g/dL` units\n- Important indicator for assessing anemia status"
	case strings.Contains(q, "mesa"):
		if lang == LangChinese {
			return "**MESA（多族裔动脉粥样硬化研究）**是一项考察心血管疾病发展的纵向研究。\n\n主要特点：\n- 多族裔参与\n- 长期随访\n- 心血管疾病预防"
		}
		return "**MESA (Multi-Ethnic Study of Atherosclerosis)** is a longitudinal study examining cardiovascular disease development.\n\nKey features:\n- Multi-ethnic participation\n- Long-term follow-up\n- Cardiovascular disease prevention"
	default:
		if lang == LangChinese {
			return fmt.Sprintf("我找到了与 **%s** 相关的信息。\n\n请提供更具体的问题以获得详细回答。", question)
		}
		return fmt.Sprintf("I found information related to **%s**.\n\nPlease provide more specific questions for detailed answers.", question)
	}
}
