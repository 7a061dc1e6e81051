package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	RAG    RAGConfig    `mapstructure:"rag"`
	Data   DataConfig   `mapstructure:"data"`
	Chat   ChatConfig   `mapstructure:"chat"`
}

type GeminiConfig struct {
	APIKey          string   `mapstructure:"api_key"`
	Models          []string `mapstructure:"models"`
	EmbeddingModel  string   `mapstructure:"embedding_model"`
	Temperature     float32  `mapstructure:"temperature"`
	MaxOutputTokens int32    `mapstructure:"max_output_tokens"`
	RPMLimit        int      `mapstructure:"rpm_limit"`
}

type RAGConfig struct {
	VectorsDir          string  `mapstructure:"vectors_dir"`
	TopK                int     `mapstructure:"top_k"`
	SimilarityThreshold float32 `mapstructure:"similarity_threshold"` // 预留，检索暂不过滤
	ChunkSize           int     `mapstructure:"chunk_size"`           // 预留
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`        // 预留
}

type DataConfig struct {
	VariablesCSV string `mapstructure:"variables_csv"`
	DatasetsCSV  string `mapstructure:"datasets_csv"`
}

type ChatConfig struct {
	MemorySize    int    `mapstructure:"memory_size"`
	HistoryWindow int    `mapstructure:"history_window"`
	Language      string `mapstructure:"language"` // english / chinese
}

// Load 读取配置文件，环境变量优先。缺少 API key 不报错，由调用方降级处理
func Load(path string) (*Config, error) {
	// .env 先于一切（原型沿用 dotenv 的习惯）
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("gemini.models", []string{"gemini-2.0-flash"})
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.temperature", 0.3)
	v.SetDefault("gemini.max_output_tokens", 4096)
	v.SetDefault("gemini.rpm_limit", 10)
	v.SetDefault("rag.vectors_dir", "./data/vectors")
	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.similarity_threshold", 0.7)
	v.SetDefault("rag.chunk_size", 1000)
	v.SetDefault("rag.chunk_overlap", 200)
	v.SetDefault("data.variables_csv", "./whi_mesa_v2.csv")
	v.SetDefault("data.datasets_csv", "./whi_dataset_desc_with_url.csv")
	v.SetDefault("chat.memory_size", 10)
	v.SetDefault("chat.history_window", 5)
	v.SetDefault("chat.language", "english")

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可选：全部走默认值 + 环境变量
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// 环境变量覆盖
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		v.Set("gemini.api_key", key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Ready 是否具备调用模型的凭证。false 时系统进入降级演示模式
func (c *Config) Ready() bool {
	return c.Gemini.APIKey != ""
}
