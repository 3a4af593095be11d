package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig       `mapstructure:"database"` // 数据库配置
	Log      LogConfig            `mapstructure:"log"`      // 日志配置
	Scan     ScanConfig           `mapstructure:"scan"`     // 扫描调度配置
	Fusion   FusionConfig         `mapstructure:"fusion"`   // 信号融合参数
	Cache    CacheConfig          `mapstructure:"cache"`    // 读接口缓存
	LLM      LLMConfig            `mapstructure:"llm"`      // 机会描述生成（外部模型）
	Bots     map[string]BotConfig `mapstructure:"bots"`     // 各信号源独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port  int    `mapstructure:"port"`  // 服务端口
	Mode  string `mapstructure:"mode"`  // Gin运行模式：debug/release/test
	Pprof bool   `mapstructure:"pprof"` // 是否注册pprof路由
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres/sqlite
	DSN             string        `mapstructure:"dsn"`               // 连接DSN，为空时不启用存储
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // gorm日志级别：silent/error/warn/info
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // logrus级别
	Format string `mapstructure:"format"` // text/json
}

// ScanConfig 扫描调度配置
type ScanConfig struct {
	CronSecret  string        `mapstructure:"cron_secret"` // 触发扫描的共享密钥，为空时不校验
	Interval    time.Duration `mapstructure:"interval"`    // serve模式下的定时扫描间隔，0为关闭
	BotTimeout  time.Duration `mapstructure:"bot_timeout"` // 单个bot扫描超时
	Concurrency int           `mapstructure:"concurrency"` // bot并发数，<=1为顺序执行
	DedupWindow time.Duration `mapstructure:"dedup_window"`
	Exclusive   bool          `mapstructure:"exclusive"` // 是否加运行锁防止并发扫描
	ProbeBot    string        `mapstructure:"probe_bot"` // sanity探测使用的bot
	EnabledBots []string      `mapstructure:"enabled_bots"`
}

// FusionConfig 信号融合参数
type FusionConfig struct {
	LookbackHours      int `mapstructure:"lookback_hours"`
	ExpireAfterDays    int `mapstructure:"expire_after_days"`
	MinSignals         int `mapstructure:"min_signals"`
	MinConvergence     int `mapstructure:"min_convergence"`
	DemandThreshold    int `mapstructure:"demand_threshold"`
	HotThreshold       int `mapstructure:"hot_threshold"`
	MaxSynthesisInputs int `mapstructure:"max_synthesis_inputs"`
}

// CacheConfig 读接口缓存配置
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LLMConfig 外部生成服务配置，OpenAI优先，其次Anthropic，都未配置时禁用
type LLMConfig struct {
	OpenAIKey      string `mapstructure:"openai_api_key"`
	OpenAIModel    string `mapstructure:"openai_model"`
	OpenAIBaseURL  string `mapstructure:"openai_base_url"`
	AnthropicKey   string `mapstructure:"anthropic_api_key"`
	AnthropicModel string `mapstructure:"anthropic_model"`
	AnthropicURL   string `mapstructure:"anthropic_base_url"`
	Timeout        int    `mapstructure:"timeout"` // 秒
	MaxTokens      int    `mapstructure:"max_tokens"`
	Proxy          string `mapstructure:"proxy"`
}

// BotConfig 单个信号源的独立配置
type BotConfig struct {
	BaseURL      string   `mapstructure:"base_url"`      // API基础地址
	AuthURL      string   `mapstructure:"auth_url"`      // OAuth换token地址（reddit用）
	Timeout      int      `mapstructure:"timeout"`       // 请求超时（秒）
	RateLimit    float64  `mapstructure:"rate_limit"`    // 每秒请求数，0为不限
	RateBurst    int      `mapstructure:"rate_burst"`    // 突发请求数
	AuthToken    string   `mapstructure:"auth_token"`    // Bearer Token / API Key
	ClientID     string   `mapstructure:"client_id"`     // OAuth client id
	ClientSecret string   `mapstructure:"client_secret"` // OAuth client secret
	Proxy        string   `mapstructure:"proxy"`         // 代理地址
	UserAgent    string   `mapstructure:"user_agent"`
	Queries      []string `mapstructure:"queries"` // 搜索词 / 子版块 / 关注词
}

// LoadConfig 加载配置文件（默认 config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig(path string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml，未配置的项使用默认值
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	cfg.Fusion = cfg.Fusion.WithDefaults()
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if cfg.Bots == nil {
		cfg.Bots = make(map[string]BotConfig)
	}
	// yaml 中没有对应 bots 段时，env 设置了也要生效
	if v := strings.TrimSpace(os.Getenv("REDDIT_CLIENT_ID")); v != "" {
		r := cfg.Bots["reddit"]
		r.ClientID = v
		cfg.Bots["reddit"] = r
	}
	if v := strings.TrimSpace(os.Getenv("REDDIT_CLIENT_SECRET")); v != "" {
		r := cfg.Bots["reddit"]
		r.ClientSecret = v
		cfg.Bots["reddit"] = r
	}
	overrideToken(cfg, "product_hunt", "PRODUCT_HUNT_API_KEY")
	overrideToken(cfg, "google_trends", "GOOGLE_TRENDS_API_KEY")
	overrideToken(cfg, "x", "X_BEARER_TOKEN")

	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CRON_SECRET"); v != "" {
		cfg.Scan.CronSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
}

func overrideToken(cfg *Config, bot, env string) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return
	}
	b := cfg.Bots[bot]
	b.AuthToken = v
	cfg.Bots[bot] = b
}

// setDefaults 注册默认值；yaml 中显式配置的值优先
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("scan.bot_timeout", 60*time.Second)
	v.SetDefault("scan.dedup_window", 24*time.Hour)
	v.SetDefault("scan.exclusive", true)
	v.SetDefault("scan.probe_bot", "hacker_news")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("llm.timeout", 45)
	v.SetDefault("llm.max_tokens", 1500)
}

// WithDefaults 返回补齐默认值后的融合参数
func (f FusionConfig) WithDefaults() FusionConfig {
	if f.LookbackHours <= 0 {
		f.LookbackHours = 48
	}
	if f.ExpireAfterDays <= 0 {
		f.ExpireAfterDays = 14
	}
	if f.MinSignals <= 0 {
		f.MinSignals = 2
	}
	if f.MinConvergence <= 0 {
		f.MinConvergence = 1
	}
	if f.DemandThreshold <= 0 {
		f.DemandThreshold = 40
	}
	if f.HotThreshold <= 0 {
		f.HotThreshold = 70
	}
	if f.MaxSynthesisInputs <= 0 {
		f.MaxSynthesisInputs = 10
	}
	return f
}

// Bot 获取指定bot配置，不存在时返回零值
func (c *Config) Bot(name string) BotConfig {
	if c == nil || c.Bots == nil {
		return BotConfig{}
	}
	return c.Bots[name]
}
