package chat

import (
	"sync"
	"time"
)

// Entry 一次问答的归档记录
type Entry struct {
	Question       string    `json:"question"`
	Answer         string    `json:"answer"` // 摘要答案
	DetailedAnswer string    `json:"detailed_answer"`
	Timestamp      time.Time `json:"timestamp"`
	Confidence     float64   `json:"confidence"`
	QuestionType   string    `json:"question_type"`
}

// Memory 有界的进程内问答日志，满了淘汰最旧的一条。
// 只做诊断用途，流水线的上下文由调用方传入的历史提供。
type Memory struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

const defaultCapacity = 10

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Memory{capacity: capacity}
}

// Record 追加一条记录，超出容量时 FIFO 淘汰
func (m *Memory) Record(e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	m.entries = append(m.entries, e)
	if len(m.entries) > m.capacity {
		m.entries = m.entries[len(m.entries)-m.capacity:]
	}
}

// Snapshot 返回当前记录的只读副本
func (m *Memory) Snapshot() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len 当前记录条数
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
