package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/liao/whi-assistant/internal/chat"
)

// Generator 发起单轮生成调用，由 internal/ai 实现
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// Searcher 向量相似检索，由 Store 实现
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Pipeline 固定顺序的问答流水线：上下文分析+分类 → 检索 → 生成+总结 → 校验。
// 每次调用新建 State，阶段内的失败只记录不终止
type Pipeline struct {
	gen           Generator
	searcher      Searcher
	memory        *chat.Memory
	topK          int
	historyWindow int
}

func NewPipeline(gen Generator, searcher Searcher, memory *chat.Memory, topK, historyWindow int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Pipeline{
		gen:           gen,
		searcher:      searcher,
		memory:        memory,
		topK:          topK,
		historyWindow: historyWindow,
	}
}

// Ready 是否具备模型凭证。false 时走降级演示模式
func (p *Pipeline) Ready() bool {
	return p.gen != nil
}

// ProcessQuestion 处理一个问题，永远返回完整的答案包，不向外抛异常。
// 无论成败都在对话记忆里追加一条记录
func (p *Pipeline) ProcessQuestion(ctx context.Context, question string, history []QA, lang Language) (res Result) {
	if lang != LangChinese {
		lang = LangEnglish
	}
	st := &State{
		Question:            question,
		ConversationHistory: history,
		OutputLanguage:      lang,
		QuestionType:        QuestionGeneral,
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panicked", "question", question, "panic", r)
			res = p.apologyBundle(st, fmt.Sprintf("question processing failed: %v", r))
			p.remember(st, res)
		}
	}()

	if !p.Ready() {
		res = p.demoBundle(st)
		p.remember(st, res)
		return res
	}

	p.analyzeContext(ctx, st)
	p.retrieveDocuments(ctx, st)
	p.generateAnswer(ctx, st)
	p.validateAnswer(st)

	res = p.bundle(st)
	p.remember(st, res)
	return res
}

// analyzeContext 上下文分析 + 问题分类，一次合并调用。
// 没有历史时直接短路，不发起模型调用
func (p *Pipeline) analyzeContext(ctx context.Context, st *State) {
	st.addStep("Starting context analysis")

	if len(st.ConversationHistory) == 0 {
		st.IsContextRelated = false
		st.ContextSummary = "No previous conversation context"
		st.QuestionType = classifyByKeywords(st.Question)
		st.addStep("No conversation history, skipping context analysis")
		st.addStep(fmt.Sprintf("Question classification completed: %s", st.QuestionType))
		return
	}

	window := st.ConversationHistory
	if len(window) > p.historyWindow {
		window = window[len(window)-p.historyWindow:]
	}

	raw, err := p.gen.Generate(ctx, analysisSystemPrompt, buildAnalysisPrompt(st.Question, window))
	if err != nil {
		st.addError(fmt.Sprintf("Context analysis failed: %v", err))
		p.heuristicAnalysis(st, window)
		return
	}

	payload, ok := parseAnalysisPayload(raw)
	if !ok {
		st.addStep("Model analysis output not parseable, using keyword fallback")
		p.heuristicAnalysis(st, window)
		return
	}

	st.IsContextRelated = payload.IsRelated
	st.ContextSummary = payload.ContextSummary
	for _, idx := range payload.RelatedIndices {
		if idx >= 0 && idx < len(window) {
			st.RelatedPreviousQA = append(st.RelatedPreviousQA, window[idx])
		}
	}
	if !st.IsContextRelated && st.ContextSummary == "" {
		st.ContextSummary = "No relevant previous context"
	}
	st.QuestionType = ParseQuestionType(payload.QuestionType)
	st.addStep(fmt.Sprintf("Context analysis completed: related=%t, %d related QA pairs", st.IsContextRelated, len(st.RelatedPreviousQA)))
	st.addStep(fmt.Sprintf("Question classification completed: %s", st.QuestionType))
}

// heuristicAnalysis 模型不可用或输出不可解析时的确定性兜底：
// 词面重叠判相关性，分类回落 general
func (p *Pipeline) heuristicAnalysis(st *State, window []QA) {
	related, qas := relatedByOverlap(st.Question, window)
	st.IsContextRelated = related
	st.RelatedPreviousQA = qas
	if related {
		questions := make([]string, 0, len(qas))
		for _, qa := range qas {
			questions = append(questions, qa.Question)
		}
		st.ContextSummary = "Continues earlier discussion of: " + strings.Join(questions, "; ")
	} else {
		st.ContextSummary = "No relevant previous context"
	}
	st.QuestionType = QuestionGeneral
	st.addStep(fmt.Sprintf("Context analysis completed: related=%t, %d related QA pairs", st.IsContextRelated, len(st.RelatedPreviousQA)))
	st.addStep(fmt.Sprintf("Question classification completed: %s", st.QuestionType))
}

// retrieveDocuments 构造检索词并做 k 近邻检索，失败不致命
func (p *Pipeline) retrieveDocuments(ctx context.Context, st *State) {
	st.addStep("Starting document retrieval")

	st.SearchQuery = buildSearchQuery(st.Question, st.QuestionType)
	st.addStep(fmt.Sprintf("Generated search query: %s", st.SearchQuery))

	if p.searcher == nil {
		st.addError("Document retrieval failed: vector store unavailable")
		return
	}

	docs, err := p.searcher.Search(ctx, st.SearchQuery, p.topK)
	if err != nil {
		st.addError(fmt.Sprintf("Document retrieval failed: %v", err))
		return
	}
	st.RetrievedDocuments = docs
	st.addStep(fmt.Sprintf("Retrieved %d relevant documents", len(docs)))
}

// generateAnswer 生成详细答案 + 聊天摘要，一次合并调用，
// 然后做确定性的 markdown 归一
func (p *Pipeline) generateAnswer(ctx context.Context, st *State) {
	st.addStep("Starting answer generation")

	st.Context = buildContext(st.RetrievedDocuments)

	raw, err := p.gen.Generate(ctx, answerSystemPrompt, buildAnswerPrompt(st))
	if err != nil {
		st.addError(fmt.Sprintf("Answer generation failed: %v", err))
		st.Sources = extractSources(st.RetrievedDocuments)
		return
	}

	payload, ok := parseAnswerPayload(raw)
	if !ok {
		st.addStep("Model answer output not parseable, using raw text")
		payload = answerPayloadFromRaw(raw)
	}

	st.Answer = NormalizeMarkdown(payload.DetailedAnswer)
	st.SummaryAnswer = strings.TrimSpace(payload.SummaryAnswer)
	if st.SummaryAnswer == "" {
		st.SummaryAnswer = answerPayloadFromRaw(st.Answer).SummaryAnswer
	}
	st.Sources = extractSources(st.RetrievedDocuments)
	st.addStep("Answer generation completed")
}

// validateAnswer 启发式置信度：答案长度与来源数量的加权，不是语义校验
func (p *Pipeline) validateAnswer(st *State) {
	st.addStep("Starting answer validation")
	st.ConfidenceScore = confidenceScore(st.Answer, st.Sources)
	st.addStep(fmt.Sprintf("Answer validation completed, confidence: %.2f", st.ConfidenceScore))
}

func confidenceScore(answer string, sources []Source) float64 {
	if answer == "" || len(sources) == 0 {
		return 0.0
	}
	answerScore := math.Min(float64(utf8.RuneCountInString(answer))/500, 1.0)
	sourceScore := math.Min(float64(len(sources))/5, 1.0)
	return math.Round((answerScore*0.6+sourceScore*0.4)*100) / 100
}

// bundle 收尾：保证用户总能拿到一段文字，错误汇总成一条
func (p *Pipeline) bundle(st *State) Result {
	answer := st.Answer
	summary := st.SummaryAnswer
	if answer == "" {
		answer = apologyText(st.OutputLanguage)
	}
	if summary == "" {
		summary = answer
	}
	return Result{
		Answer:          answer,
		SummaryAnswer:   summary,
		ConfidenceScore: st.ConfidenceScore,
		Sources:         st.Sources,
		ProcessingSteps: st.ProcessingSteps,
		Error:           strings.Join(st.Errors, "; "),
	}
}

// demoBundle 无凭证时的降级演示模式：关键词匹配的固定回答
func (p *Pipeline) demoBundle(st *State) Result {
	st.QuestionType = classifyByKeywords(st.Question)
	st.addStep("Running in demo mode (no model credentials)")
	st.addStep(fmt.Sprintf("Question classification completed: %s", st.QuestionType))

	text := fallbackAnswer(st.Question, st.OutputLanguage)
	st.addStep("Demo answer generated by keyword matching")

	return Result{
		Answer:          NormalizeMarkdown(text),
		SummaryAnswer:   text,
		ConfidenceScore: 0.0,
		Sources:         nil,
		ProcessingSteps: st.ProcessingSteps,
	}
}

// apologyBundle 编排层自身崩溃时的唯一兜底出口
func (p *Pipeline) apologyBundle(st *State, errMsg string) Result {
	steps := append(st.ProcessingSteps, "System error: "+errMsg)
	text := apologyText(st.OutputLanguage)
	return Result{
		Answer:          text,
		SummaryAnswer:   text,
		ConfidenceScore: 0.0,
		ProcessingSteps: steps,
		Error:           errMsg,
	}
}

func apologyText(lang Language) string {
	if lang == LangChinese {
		return "抱歉，本次未能处理您的问题，请稍后重试。"
	}
	return "Sorry, I could not process your question. Please try again later."
}

func (p *Pipeline) remember(st *State, res Result) {
	if p.memory == nil {
		return
	}
	p.memory.Record(chat.Entry{
		Question:       st.Question,
		Answer:         res.SummaryAnswer,
		DetailedAnswer: res.Answer,
		Timestamp:      time.Now().UTC(),
		Confidence:     res.ConfidenceScore,
		QuestionType:   string(st.QuestionType),
	})
}
