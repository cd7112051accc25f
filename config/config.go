package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"     validate:"min=1,max=65535"`
	BaseURL string     `mapstructure:"base_url" validate:"omitempty,url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"     validate:"required"`
	Port            int    `mapstructure:"port"     validate:"min=1,max=65535"`
	Name            string `mapstructure:"name"     validate:"required"`
	User            string `mapstructure:"user"     validate:"required"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"  validate:"oneof=disable allow prefer require verify-ca verify-full"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（Token 黑名单 / 限流 / 通知队列）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"       validate:"required,min=16"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	ResetTokenTTL  time.Duration `mapstructure:"reset_token_ttl"  validate:"gt=0"`
}

// ScheduleConfig 排班规则配置
type ScheduleConfig struct {
	// Timezone 同日互斥规则判断“日历日”所用时区，班次时间本身始终以 UTC 存储
	Timezone                string `mapstructure:"timezone"                  validate:"required"`
	MaxRecurringOccurrences int    `mapstructure:"max_recurring_occurrences" validate:"min=1,max=366"`
}

// Location 解析排班时区；Validate 已保证可解析
func (c *ScheduleConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotifyConfig 换班通知投递配置
type NotifyConfig struct {
	QueueKey string `mapstructure:"queue_key" validate:"required"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"min=1"`
	Window   time.Duration `mapstructure:"window"   validate:"gt=0"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SHIFTMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "shiftmate")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.reset_token_ttl", "30m")

	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.max_recurring_occurrences", 60)

	v.SetDefault("notify.queue_key", "shiftmate:notify:swap")

	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: schedule.timezone %q 无效: %w", c.Schedule.Timezone, err)
	}
	return nil
}
