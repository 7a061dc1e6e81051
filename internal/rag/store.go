package rag

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/philippgille/chromem-go"
)

const collectionName = "whi-metadata"

// EmbeddingFunc 文本到向量，与 chromem-go 的签名一致
type EmbeddingFunc = func(ctx context.Context, text string) ([]float32, error)

// Store 基于 chromem-go 的持久化向量索引。
// 打开即尝试加载磁盘上的索引，Loaded 为 false 时由调用方触发重建
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  EmbeddingFunc
}

// NewStore 打开（或新建）向量存储目录
func NewStore(vectorsDir string, embedFunc EmbeddingFunc) (*Store, error) {
	db, err := chromem.NewPersistentDB(vectorsDir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("get/create collection: %w", err)
	}

	slog.Info("vector store opened", "dir", vectorsDir, "count", col.Count())
	return &Store{db: db, collection: col, embedFunc: embedFunc}, nil
}

// Loaded 磁盘上是否已有可用索引
func (s *Store) Loaded() bool {
	return s.collection.Count() > 0
}

// Build 从文档全量重建索引并落盘。集合先删后建，相当于 UPSERT
func (s *Store) Build(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("no documents to index")
	}

	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	col, err := s.db.CreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.collection = col

	cdocs := make([]chromem.Document, 0, len(docs))
	for i, doc := range docs {
		cdocs = append(cdocs, chromem.Document{
			ID:       documentID(doc, i),
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}
	if err := col.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}

	slog.Info("vector store built", "documents", len(docs))
	return nil
}

// documentID accession 作稳定 ID，缺失时退回序号
func documentID(doc Document, i int) string {
	typ := doc.Metadata["type"]
	if acc := doc.Metadata["variable_accession"]; acc != "" {
		return typ + ":" + acc
	}
	if acc := doc.Metadata["dataset_accession"]; acc != "" {
		return typ + ":" + acc
	}
	return fmt.Sprintf("%s:%d", typ, i)
}

// Search 返回与查询最相近的 k 篇文档，按相似度降序。
// 索引为空时直接报错，由流水线降级处理
func (s *Store) Search(ctx context.Context, query string, k int) ([]Document, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, fmt.Errorf("vector store not initialized")
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, Document{Content: r.Content, Metadata: r.Metadata})
	}
	return docs, nil
}

// Count 当前索引的文档数
func (s *Store) Count() int {
	return s.collection.Count()
}
