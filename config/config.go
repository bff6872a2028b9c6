package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Razorpay   RazorpayConfig   `mapstructure:"razorpay"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Snowflake  SnowflakeConfig  `mapstructure:"snowflake"`
	OSS        OSSConfig        `mapstructure:"oss"`
	Email      EmailConfig      `mapstructure:"email"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Mode      string `mapstructure:"mode"`
	PublicURL string `mapstructure:"public_url"` // 前端地址，用于拼接推荐链接
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins        []string `mapstructure:"allowed_origins"`         // 精确匹配，"*" 表示全部放行
	AllowedOriginSuffixes []string `mapstructure:"allowed_origin_suffixes"` // 域名后缀，如 .playoga.in
	AllowLocalhost        bool     `mapstructure:"allow_localhost"`
	FallbackOrigin        string   `mapstructure:"fallback_origin"`
	AllowedMethods        []string `mapstructure:"allowed_methods"`
	AllowedHeaders        []string `mapstructure:"allowed_headers"`
}

type RazorpayConfig struct {
	KeyID          string `mapstructure:"key_id"`
	KeySecret      string `mapstructure:"key_secret"`
	BaseURL        string `mapstructure:"base_url"`
	Currency       string `mapstructure:"currency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type BillingConfig struct {
	PlanName           string   `mapstructure:"plan_name"`
	PlanPrice          float64  `mapstructure:"plan_price"`        // 0 表示不校验客户端价格
	TaxRate            *float64 `mapstructure:"tax_rate"`          // 未配置时为 5%，显式 0 表示免税
	PlanDurationMonths int      `mapstructure:"plan_duration_months"`
	CommissionAmount   *float64 `mapstructure:"commission_amount"` // 显式 0 表示不发放佣金
}

type WalletConfig struct {
	MinWithdrawal float64 `mapstructure:"min_withdrawal"`
}

type SettlementConfig struct {
	Queue                string `mapstructure:"queue"`
	MaxWorkers           int    `mapstructure:"max_workers"`
	MaxAttempts          int    `mapstructure:"max_attempts"`
	RetryBaseSeconds     int    `mapstructure:"retry_base_seconds"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
	LeaseSeconds         int    `mapstructure:"lease_seconds"`
	MetricsAddr          string `mapstructure:"metrics_addr"` // worker 进程的 /metrics 监听地址
}

type SnowflakeConfig struct {
	Node int64 `mapstructure:"node"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
}

type EmailConfig struct {
	SMTPHost       string `mapstructure:"smtp_host"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	From           string `mapstructure:"from"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 连接与整个会话的超时
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// TaxRateDecimal 以 decimal 形式返回税率
func (b BillingConfig) TaxRateDecimal() decimal.Decimal {
	if b.TaxRate == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*b.TaxRate)
}

// CommissionDecimal 每笔推荐佣金
func (b BillingConfig) CommissionDecimal() decimal.Decimal {
	if b.CommissionAmount == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*b.CommissionAmount)
}

// PlanPriceDecimal 套餐标价
func (b BillingConfig) PlanPriceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(b.PlanPrice)
}

// Defaults 为未配置的字段填充默认值
func (c *Config) Defaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "https://playoga.in"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.JWT.ExpireHours == 0 {
		c.JWT.ExpireHours = 24 * 7
	}
	if c.Razorpay.BaseURL == "" {
		c.Razorpay.BaseURL = "https://api.razorpay.com"
	}
	if c.Razorpay.Currency == "" {
		c.Razorpay.Currency = "INR"
	}
	if c.Razorpay.TimeoutSeconds == 0 {
		c.Razorpay.TimeoutSeconds = 15
	}
	if c.Billing.PlanName == "" {
		c.Billing.PlanName = "Premium Yearly"
	}
	if c.Billing.TaxRate == nil {
		taxRate := 0.05
		c.Billing.TaxRate = &taxRate
	}
	if c.Billing.PlanDurationMonths == 0 {
		c.Billing.PlanDurationMonths = 12
	}
	if c.Billing.CommissionAmount == nil {
		commission := 50.0
		c.Billing.CommissionAmount = &commission
	}
	if c.Settlement.Queue == "" {
		c.Settlement.Queue = "settlement_queue"
	}
	if c.Settlement.MaxWorkers == 0 {
		c.Settlement.MaxWorkers = 2
	}
	if c.Settlement.MaxAttempts == 0 {
		c.Settlement.MaxAttempts = 8
	}
	if c.Settlement.RetryBaseSeconds == 0 {
		c.Settlement.RetryBaseSeconds = 30
	}
	if c.Settlement.SweepIntervalSeconds == 0 {
		c.Settlement.SweepIntervalSeconds = 60
	}
	if c.Settlement.LeaseSeconds == 0 {
		c.Settlement.LeaseSeconds = 600
	}
	if c.Settlement.MetricsAddr == "" {
		c.Settlement.MetricsAddr = ":9091"
	}
	if c.Email.TimeoutSeconds == 0 {
		c.Email.TimeoutSeconds = 10
	}
	if c.Snowflake.Node == 0 {
		c.Snowflake.Node = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func Load(configPath string) (*Config, error) {
	// 优先读取 config.local.yaml（包含真实密钥，不提交到 git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖，例如 RAZORPAY_KEY_SECRET
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Defaults()

	return &cfg, nil
}
