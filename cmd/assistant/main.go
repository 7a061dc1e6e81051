package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/liao/whi-assistant/internal/ai"
	"github.com/liao/whi-assistant/internal/chat"
	"github.com/liao/whi-assistant/internal/config"
	"github.com/liao/whi-assistant/internal/dataset"
	"github.com/liao/whi-assistant/internal/rag"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 模型网关。没有凭证就降级成演示模式，不退出
	var gen rag.Generator
	var aiClient *ai.Client
	if cfg.Ready() {
		aiClient, err = ai.NewClient(ctx,
			cfg.Gemini.APIKey,
			cfg.Gemini.Models,
			cfg.Gemini.EmbeddingModel,
			cfg.Gemini.Temperature,
			cfg.Gemini.MaxOutputTokens,
			cfg.Gemini.RPMLimit,
		)
		if err != nil {
			slog.Error("create AI client failed", "error", err)
			os.Exit(1)
		}
		gen = aiClient
		slog.Info("AI client initialized", "models", cfg.Gemini.Models)
	} else {
		slog.Warn("GEMINI_API_KEY not set, running in demo mode")
	}

	// 向量存储：优先加载磁盘索引，没有就从 CSV 全量重建
	var searcher rag.Searcher
	if aiClient != nil {
		store, err := rag.NewStore(cfg.RAG.VectorsDir, aiClient.EmbedFunc())
		if err != nil {
			slog.Warn("open vector store failed, retrieval disabled", "error", err)
		} else {
			if !store.Loaded() {
				slog.Info("no persisted index found, building from source tables")
				docs, err := dataset.LoadDocuments(cfg.Data.VariablesCSV, cfg.Data.DatasetsCSV)
				if err != nil {
					// 源表损坏是启动期致命错误
					slog.Error("load source tables failed", "error", err)
					os.Exit(1)
				}
				if err := store.Build(ctx, docs); err != nil {
					slog.Warn("build vector store failed, retrieval disabled", "error", err)
					store = nil
				}
			}
			if store != nil {
				searcher = store
			}
		}
	}

	memory := chat.NewMemory(cfg.Chat.MemorySize)
	pipeline := rag.NewPipeline(gen, searcher, memory, cfg.RAG.TopK, cfg.Chat.HistoryWindow)

	lang := rag.Language(cfg.Chat.Language)
	runChatLoop(ctx, pipeline, memory, lang)
}

func runChatLoop(ctx context.Context, pipeline *rag.Pipeline, memory *chat.Memory, lang rag.Language) {
	fmt.Println("WHI Data Q&A Assistant")
	fmt.Println("Ask questions about WHI variables, datasets, or research methods.")
	fmt.Println("Examples:")
	fmt.Println("  - What are the measurement units and normal ranges for hemoglobin (HGB)?")
	fmt.Println("  - What specific indicators are included in Form 80 physical measurements?")
	fmt.Println("  - What are the main differences between WHI Observational Study (OS) and Clinical Trial (CT)?")
	fmt.Println("Commands: /lang  /history  /quit")
	fmt.Println()

	var history []rag.QA
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}

		switch question {
		case "/quit", "/exit":
			return
		case "/lang":
			if lang == rag.LangChinese {
				lang = rag.LangEnglish
			} else {
				lang = rag.LangChinese
			}
			fmt.Printf("output language: %s\n\n", lang)
			continue
		case "/history":
			for _, e := range memory.Snapshot() {
				fmt.Printf("[%s] (%s, %.2f) Q: %s\n    A: %s\n",
					e.Timestamp.Format(time.RFC3339), e.QuestionType, e.Confidence, e.Question, e.Answer)
			}
			fmt.Println()
			continue
		}

		result := pipeline.ProcessQuestion(ctx, question, history, lang)

		fmt.Println()
		fmt.Println(result.SummaryAnswer)
		fmt.Printf("\n(confidence: %.2f", result.ConfidenceScore)
		if len(result.Sources) > 0 {
			fmt.Printf(", sources: %d", len(result.Sources))
		}
		fmt.Println(")")
		if result.Error != "" {
			fmt.Printf("note: %s\n", result.Error)
		}
		fmt.Println("\n--- details ---")
		fmt.Println(result.Answer)
		fmt.Println()

		// 调用方维护的历史是上下文分析的唯一事实来源
		history = append(history, rag.QA{
			Question:  question,
			Answer:    result.SummaryAnswer,
			Timestamp: time.Now(),
		})
	}
}
