// =============================================================================
// 📦 recruitflow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("RECRUITFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 recruitflow 的完整配置结构
type Config struct {
	Server       ServerConfig       `yaml:"server" env:"SERVER"`
	Database     DatabaseConfig     `yaml:"database" env:"DATABASE"`
	Redis        RedisConfig        `yaml:"redis" env:"REDIS"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" env:"TELEMETRY"`
	Pipeline     PipelineConfig     `yaml:"pipeline" env:"PIPELINE"`
	LLM          LLMConfig          `yaml:"llm" env:"LLM"`
	Integrations IntegrationsConfig `yaml:"integrations" env:"INTEGRATIONS"`
	Conversation ConversationConfig `yaml:"conversation" env:"CONVERSATION"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort    int `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时（流式接口按请求单独放宽）
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 单个上传文档的最大字节数
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	// 每 IP 限流
	RateLimitRPS   float64  `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	CORSOrigins    []string `yaml:"cors_origins" env:"CORS_ORIGINS"`
}

// RedisConfig Redis 配置，Addr 为空表示不启用
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver   string `yaml:"driver" env:"DRIVER"`
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 时为文件路径）
	Name    string `yaml:"name" env:"NAME"`
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 连接池
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// 启动时自动建表（仅用于 sqlite 本地开发）
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// Insecure dials the collector without TLS (sidecar or local collector).
	Insecure    bool   `yaml:"insecure" env:"INSECURE"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// PipelineConfig 招聘流水线配置
type PipelineConfig struct {
	// 进入搜索阶段的查询上限
	QueryCap int `yaml:"query_cap" env:"QUERY_CAP"`
	// 去重后保留的候选人上限
	CandidateCap int `yaml:"candidate_cap" env:"CANDIDATE_CAP"`
	// 查询之间的固定间隔
	SearchDelay time.Duration `yaml:"search_delay" env:"SEARCH_DELAY"`
	// 候选人邮箱补全之间的固定间隔
	EnrichDelay time.Duration `yaml:"enrich_delay" env:"ENRICH_DELAY"`
	// 单次运行的总时长上限
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
	// 搜索后端: browseruse, rod
	Searcher string `yaml:"searcher" env:"SEARCHER"`
}

// LLMConfig 文本生成配置
type LLMConfig struct {
	// Provider: openai, gemini
	Provider   string        `yaml:"provider" env:"PROVIDER"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Model      string        `yaml:"model" env:"MODEL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	// 会话上下文的 Token 预算
	ContextTokens int `yaml:"context_tokens" env:"CONTEXT_TOKENS"`
	// 连续失败多少次后熔断，以及熔断持续时间
	BreakerThreshold int           `yaml:"breaker_threshold" env:"BREAKER_THRESHOLD"`
	BreakerReset     time.Duration `yaml:"breaker_reset" env:"BREAKER_RESET"`
}

// ProviderConfig 外部 HTTP 服务的通用配置
type ProviderConfig struct {
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	BaseURL    string        `yaml:"base_url" env:"BASE_URL"`
	Model      string        `yaml:"model" env:"MODEL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
}

// RodConfig 本地浏览器搜索配置
type RodConfig struct {
	Bin      string `yaml:"bin" env:"BIN"`
	Headless bool   `yaml:"headless" env:"HEADLESS"`
	// 每个查询最多读取的资料数
	MaxProfiles int `yaml:"max_profiles" env:"MAX_PROFILES"`
}

// IntegrationsConfig 外部能力适配器配置
type IntegrationsConfig struct {
	AgentMail  ProviderConfig `yaml:"agentmail" env:"AGENTMAIL"`
	SixtyFour  ProviderConfig `yaml:"sixtyfour" env:"SIXTYFOUR"`
	Perplexity ProviderConfig `yaml:"perplexity" env:"PERPLEXITY"`
	BrowserUse ProviderConfig `yaml:"browseruse" env:"BROWSERUSE"`
	Composio   ComposioConfig `yaml:"composio" env:"COMPOSIO"`
	Rod        RodConfig      `yaml:"rod" env:"ROD"`
}

// ComposioConfig 日历调度配置
type ComposioConfig struct {
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	EntityID string        `yaml:"entity_id" env:"ENTITY_ID"`
	TimeZone string        `yaml:"time_zone" env:"TIME_ZONE"`
}

// ConversationConfig 会话状态机配置
type ConversationConfig struct {
	SafeWord string `yaml:"safe_word" env:"SAFE_WORD"`
	// 重复投递去重窗口
	DedupeTTL time.Duration `yaml:"dedupe_ttl" env:"DEDUPE_TTL"`
	// 激活锁有效期
	ActivationLockTTL time.Duration `yaml:"activation_lock_ttl" env:"ACTIVATION_LOCK_TTL"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "RECRUITFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置，文件不存在时保留默认值
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}

	if c.Pipeline.QueryCap <= 0 {
		errs = append(errs, "pipeline.query_cap must be positive")
	}
	if c.Pipeline.CandidateCap <= 0 {
		errs = append(errs, "pipeline.candidate_cap must be positive")
	}
	if c.Pipeline.SearchDelay < 0 || c.Pipeline.EnrichDelay < 0 {
		errs = append(errs, "pipeline delays must not be negative")
	}
	switch c.Pipeline.Searcher {
	case "browseruse", "rod":
	default:
		errs = append(errs, fmt.Sprintf("unsupported pipeline.searcher %q", c.Pipeline.Searcher))
	}

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Sprintf("unsupported llm.provider %q", c.LLM.Provider))
	}

	if c.Telemetry.Enabled && (c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1) {
		errs = append(errs, "telemetry.sample_rate must be within [0, 1]")
	}

	if strings.TrimSpace(c.Conversation.SafeWord) == "" {
		errs = append(errs, "conversation.safe_word must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
