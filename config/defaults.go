// =============================================================================
// 📦 recruitflow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Database:     DefaultDatabaseConfig(),
		Redis:        DefaultRedisConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
		Pipeline:     DefaultPipelineConfig(),
		LLM:          DefaultLLMConfig(),
		Integrations: DefaultIntegrationsConfig(),
		Conversation: DefaultConversationConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MaxUploadBytes:  20 << 20,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		CORSOrigins:     []string{"*"},
	}
}

// DefaultRedisConfig 返回默认 Redis 配置（未配置地址时不启用）
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "recruitflow",
		Name:            "recruitflow.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "recruitflow",
		SampleRate:   0.1,
		Insecure:     true,
		Environment:  "development",
	}
}

// DefaultPipelineConfig 返回默认流水线配置
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		QueryCap:     2,
		CandidateCap: 5,
		SearchDelay:  5 * time.Second,
		EnrichDelay:  100 * time.Millisecond,
		RunTimeout:   10 * time.Minute,
		Searcher:     "browseruse",
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:      "openai",
		BaseURL:       "https://api.openai.com",
		Model:         "gpt-4o-mini",
		Timeout:       2 * time.Minute,
		MaxRetries:    3,
		ContextTokens: 6000,

		BreakerThreshold: 5,
		BreakerReset:     30 * time.Second,
	}
}

// DefaultIntegrationsConfig 返回外部服务默认配置
func DefaultIntegrationsConfig() IntegrationsConfig {
	return IntegrationsConfig{
		AgentMail: ProviderConfig{
			BaseURL:    "https://api.agentmail.to/v0",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		SixtyFour: ProviderConfig{
			BaseURL:    "https://api.sixtyfour.ai",
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
		},
		Perplexity: ProviderConfig{
			BaseURL:    "https://api.perplexity.ai",
			Model:      "sonar-pro",
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
		},
		BrowserUse: ProviderConfig{
			BaseURL:    "https://api.browser-use.com/api/v2",
			Timeout:    10 * time.Minute,
			MaxRetries: 1,
		},
		Composio: ComposioConfig{
			BaseURL:  "https://backend.composio.dev/api/v3",
			Timeout:  30 * time.Second,
			EntityID: "default",
			TimeZone: "UTC",
		},
		Rod: RodConfig{
			Headless:    true,
			MaxProfiles: 20,
		},
	}
}

// DefaultConversationConfig 返回会话状态机默认配置
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		SafeWord:          "chris rock",
		DedupeTTL:         24 * time.Hour,
		ActivationLockTTL: 2 * time.Minute,
	}
}
