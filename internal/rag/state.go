package rag

import "time"

// QuestionType 问题分类
type QuestionType string

const (
	QuestionVariable QuestionType = "variable"
	QuestionDataset  QuestionType = "dataset"
	QuestionGeneral  QuestionType = "general"
)

// ParseQuestionType 把模型输出归一到合法分类，非法值回落 general
func ParseQuestionType(s string) QuestionType {
	switch QuestionType(s) {
	case QuestionVariable, QuestionDataset, QuestionGeneral:
		return QuestionType(s)
	default:
		return QuestionGeneral
	}
}

// Language 回答语言
type Language string

const (
	LangEnglish Language = "english"
	LangChinese Language = "chinese"
)

// QA 一轮历史问答
type QA struct {
	Question  string
	Answer    string
	Timestamp time.Time
}

// Document 向量库里的一条元数据文档
type Document struct {
	Content  string
	Metadata map[string]string
}

// Source 答案引用的来源信息，取自文档元数据
type Source struct {
	Type         string
	DatasetName  string
	VariableName string
	Study        string
}

// State 贯穿所有阶段的共享状态，每次调用新建一份
type State struct {
	// 输入
	Question            string
	ConversationHistory []QA
	OutputLanguage      Language

	// 上下文分析 + 分类
	QuestionType      QuestionType
	ContextSummary    string
	RelatedPreviousQA []QA
	IsContextRelated  bool

	// 检索
	SearchQuery        string
	RetrievedDocuments []Document

	// 生成
	Context       string
	Answer        string
	SummaryAnswer string

	// 校验
	ConfidenceScore float64
	Sources         []Source

	// 审计与错误（只增不清）
	ProcessingSteps []string
	Errors          []string
}

func (s *State) addStep(step string) {
	s.ProcessingSteps = append(s.ProcessingSteps, step)
}

func (s *State) addError(msg string) {
	s.Errors = append(s.Errors, msg)
	s.ProcessingSteps = append(s.ProcessingSteps, msg)
}

// Result 对外返回的答案包，任何失败路径都保证字段完整
type Result struct {
	Answer          string
	SummaryAnswer   string
	ConfidenceScore float64
	Sources         []Source
	ProcessingSteps []string
	Error           string
}
