package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Semantic SemanticConfig `yaml:"semantic"`
	LLM      LLMConfig      `yaml:"llm"`
	GigaChat GigaChatConfig `yaml:"gigachat"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	RAG      RAGConfig      `yaml:"rag"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Notify   NotifyConfig   `yaml:"notify"`
	Guard    GuardConfig    `yaml:"guard"`
	Logger   LoggerConfig   `yaml:"logger"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// DSN renders the libpq keyword/value connection string shared by pgx and lib/pq.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	// Addr empty means the in-process cache is used instead of Redis.
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type CacheConfig struct {
	TTL       time.Duration `yaml:"ttl"`
	KeyPrefix string        `yaml:"key_prefix"`
}

type SemanticConfig struct {
	Threshold float64 `yaml:"threshold"`
}

type LLMConfig struct {
	Provider          string        `yaml:"provider"` // openai | gigachat
	Temperature       float32       `yaml:"temperature"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
}

type GigaChatConfig struct {
	APIKey             string `yaml:"api_key"`
	Scope              string `yaml:"scope"`
	Model              string `yaml:"model"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type RAGConfig struct {
	TopK int `yaml:"top_k"`
}

type KafkaConfig struct {
	// No brokers disables review event publishing.
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

type GuardConfig struct {
	MaxInputRunes  int `yaml:"max_input_runes"`
	MaxOutputRunes int `yaml:"max_output_runes"`
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variables (including a .env file).
func Load() (*Config, error) {
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "family_doctor",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Cache: CacheConfig{
			TTL:       30 * 24 * time.Hour,
			KeyPrefix: "diagnosis",
		},
		Semantic: SemanticConfig{Threshold: 0.92},
		LLM: LLMConfig{
			Provider:          "openai",
			Temperature:       0.2,
			GenerationTimeout: 60 * time.Second,
		},
		GigaChat: GigaChatConfig{
			Scope:              "GIGACHAT_API_PERS",
			Model:              "GigaChat",
			InsecureSkipVerify: true,
		},
		OpenAI: OpenAIConfig{
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
		},
		RAG:    RAGConfig{TopK: 3},
		Kafka:  KafkaConfig{Topic: "diagnosis-review"},
		Notify: NotifyConfig{Enabled: true, Channel: "semantic_index"},
		Guard:  GuardConfig{MaxInputRunes: 1000, MaxOutputRunes: 2000},
		Logger: LoggerConfig{Level: "info", Format: "json"},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getSeconds("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getSeconds("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxConns = int32(getInt("DB_MAX_CONNS", int(cfg.Database.MaxConns)))

	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Redis.Addr = addr
	}
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getInt("REDIS_DB", cfg.Redis.DB)

	if days := getInt("REDIS_TTL_DAYS", 0); days > 0 {
		cfg.Cache.TTL = time.Duration(days) * 24 * time.Hour
	}
	cfg.Cache.KeyPrefix = getEnv("CACHE_KEY_PREFIX", cfg.Cache.KeyPrefix)

	cfg.Semantic.Threshold = getFloat("SEMANTIC_THRESHOLD", cfg.Semantic.Threshold)

	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Temperature = float32(getFloat("LLM_TEMPERATURE", float64(cfg.LLM.Temperature)))
	cfg.LLM.GenerationTimeout = getSeconds("LLM_GENERATION_TIMEOUT", cfg.LLM.GenerationTimeout)

	cfg.GigaChat.APIKey = getEnv("GIGACHAT_API_KEY", cfg.GigaChat.APIKey)
	cfg.GigaChat.Scope = getEnv("GIGACHAT_SCOPE", cfg.GigaChat.Scope)
	cfg.GigaChat.Model = getEnv("GIGACHAT_MODEL", cfg.GigaChat.Model)
	if v := os.Getenv("GIGACHAT_INSECURE_SKIP_VERIFY"); v != "" {
		cfg.GigaChat.InsecureSkipVerify = v == "true"
	}

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.ChatModel = getEnv("OPENAI_MODEL", cfg.OpenAI.ChatModel)
	cfg.OpenAI.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", cfg.OpenAI.EmbeddingModel)

	cfg.RAG.TopK = getInt("RAG_TOP_K", cfg.RAG.TopK)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_REVIEW_TOPIC", cfg.Kafka.Topic)

	if v := os.Getenv("NOTIFY_ENABLED"); v != "" {
		cfg.Notify.Enabled = v == "true"
	}
	cfg.Notify.Channel = getEnv("NOTIFY_CHANNEL", cfg.Notify.Channel)

	cfg.Guard.MaxInputRunes = getInt("GUARD_MAX_INPUT", cfg.Guard.MaxInputRunes)
	cfg.Guard.MaxOutputRunes = getInt("GUARD_MAX_OUTPUT", cfg.Guard.MaxOutputRunes)

	cfg.Logger.Level = getEnv("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Format = getEnv("LOG_FORMAT", cfg.Logger.Format)
}

func (c *Config) validate() error {
	if c.Semantic.Threshold <= 0 || c.Semantic.Threshold > 1 {
		return fmt.Errorf("semantic threshold must be in (0, 1], got %v", c.Semantic.Threshold)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	switch c.LLM.Provider {
	case "openai", "gigachat":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getSeconds(key string, defaultValue time.Duration) time.Duration {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
