package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/liao/whi-assistant/internal/ai"
	"github.com/liao/whi-assistant/internal/dataset"
	"github.com/liao/whi-assistant/internal/rag"
)

func main() {
	variablesCSV := flag.String("variables", "./whi_mesa_v2.csv", "variable-level metadata csv")
	datasetsCSV := flag.String("datasets", "./whi_dataset_desc_with_url.csv", "dataset-level metadata csv")
	vectorsDir := flag.String("output", "./data/vectors", "vector store directory")
	apiKey := flag.String("api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	embedModel := flag.String("embedding-model", "text-embedding-004", "embedding model")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})))

	_ = godotenv.Load()
	key := *apiKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: Gemini API key required (-api-key or GEMINI_API_KEY env)\n")
		os.Exit(1)
	}

	ctx := context.Background()

	// 1. 读取两张元数据表
	slog.Info("loading source tables", "variables", *variablesCSV, "datasets", *datasetsCSV)
	docs, err := dataset.LoadDocuments(*variablesCSV, *datasetsCSV)
	if err != nil {
		slog.Error("load source tables failed", "error", err)
		os.Exit(1)
	}
	slog.Info("documents built", "count", len(docs))

	// 2. 初始化 embedding 客户端
	client, err := ai.NewClient(ctx, key, []string{"gemini-2.0-flash"}, *embedModel, 0, 0, 10)
	if err != nil {
		slog.Error("create AI client failed", "error", err)
		os.Exit(1)
	}

	// 3. 全量重建向量索引
	store, err := rag.NewStore(*vectorsDir, client.EmbedFunc())
	if err != nil {
		slog.Error("open vector store failed", "error", err)
		os.Exit(1)
	}
	slog.Info("building vector store...")
	if err := store.Build(ctx, docs); err != nil {
		slog.Error("build vector store failed", "error", err)
		os.Exit(1)
	}

	// 4. 输出构建报告
	report := fmt.Sprintf(`Index Report
============
Documents:   %d
Vectors dir: %s
Embedding:   %s
`, store.Count(), *vectorsDir, *embedModel)
	fmt.Println(report)
	slog.Info("done!")
}
