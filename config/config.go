package config

// 配置组件：从YAML文件加载配置，文件不存在时使用默认值，随后用环境变量覆盖部分字段

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/dszqbsm/xoso/limiter"
	"github.com/dszqbsm/xoso/sqldb"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `yaml:"logLevel"`
	LogFile   string          `yaml:"logFile"` // 为空时只输出到标准输出
	Source    SourceConfig    `yaml:"source"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Storage   StorageConfig   `yaml:"storage"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Retention RetentionConfig `yaml:"retention"`
	History   HistoryConfig   `yaml:"history"`
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
}

type SourceConfig struct {
	BaseURL string `yaml:"baseURL"`
}

type FetcherConfig struct {
	Timeout   int              `yaml:"timeout"` // 毫秒
	UserAgent string           `yaml:"userAgent"`
	Proxy     []string         `yaml:"proxy"`
	Retries   int              `yaml:"retries"`
	WaitTime  int              `yaml:"waitTime"` // 毫秒，请求前随机休眠的上限
	Limits    []limiter.Config `yaml:"limits"`
}

type StorageConfig struct {
	Driver     string `yaml:"driver"` // mysql或sqlite
	SQLURL     string `yaml:"sqlURL"`
	BatchCount int    `yaml:"batchCount"`
}

type ScheduleConfig struct {
	Crawl    string `yaml:"crawl"`
	Cleanup  string `yaml:"cleanup"`
	Timezone string `yaml:"timezone"` // IANA时区名，为空表示UTC
	Timeout  int    `yaml:"timeout"`  // 秒，单次定时任务的最长执行时间，0表示不限制
}

type RetentionConfig struct {
	ResultsDays int `yaml:"resultsDays"`
	LogsDays    int `yaml:"logsDays"`
}

type HistoryConfig struct {
	Pause int `yaml:"pause"` // 毫秒，两次历史抓取之间的间隔
	Days  int `yaml:"days"`
}

type ServerConfig struct {
	HTTPListenAddress string `yaml:"httpListenAddress"`
	AdminToken        string `yaml:"adminToken"` // 为空时管理接口不做认证
}

type EngineConfig struct {
	WorkCount int `yaml:"workCount"`
}

// 默认配置，抓取时间为越南时间18:30，清理时间为越南时间02:00
func Default() *Config {
	return &Config{
		LogLevel: "INFO",
		Source:   SourceConfig{BaseURL: "https://www.minhngoc.net.vn"},
		Fetcher: FetcherConfig{
			Timeout: 10000,
			Retries: 2,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLURL:     "xoso.db",
			BatchCount: 20,
		},
		Schedule: ScheduleConfig{
			Crawl:   "30 11 * * *",
			Cleanup: "0 19 * * *",
			Timeout: 600,
		},
		Retention: RetentionConfig{ResultsDays: 30, LogsDays: 7},
		History:   HistoryConfig{Pause: 1000, Days: 30},
		Server:    ServerConfig{HTTPListenAddress: ":3000"},
		Engine:    EngineConfig{WorkCount: 3},
	}
}

/*
输入一个配置文件路径，输出一个配置实例和一个错误

路径为空或文件不存在时使用默认配置；随后应用环境变量覆盖并校验
*/
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

// 环境变量覆盖，变量名沿用部署脚本中已有的名字
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("XOSO_SQL_URL"); ok && v != "" {
		c.Storage.SQLURL = v
	}
	if v, ok := lookup("XOSO_SQL_DRIVER"); ok && v != "" {
		c.Storage.Driver = v
	}
	if v, ok := lookup("CRAWL_SCHEDULE"); ok && v != "" {
		c.Schedule.Crawl = v
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Server.HTTPListenAddress = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := lookup("XOSO_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("XOSO_ADMIN_TOKEN"); ok && v != "" {
		c.Server.AdminToken = v
	}
}

// 检查字段取值是否合理
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.baseURL is required")
	}
	if c.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if c.Fetcher.Retries < 0 {
		return fmt.Errorf("fetcher.retries must be >= 0")
	}
	if _, err := sqldb.ParseDriver(c.Storage.Driver); err != nil {
		return fmt.Errorf("storage.driver: %w", err)
	}
	if c.Storage.SQLURL == "" {
		return fmt.Errorf("storage.sqlURL is required")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.Crawl); err != nil {
		return fmt.Errorf("schedule.crawl: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.Cleanup); err != nil {
		return fmt.Errorf("schedule.cleanup: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Schedule.Timeout < 0 {
		return fmt.Errorf("schedule.timeout must be >= 0")
	}
	if c.History.Days < 0 || c.History.Pause < 0 {
		return fmt.Errorf("history.days and history.pause must be >= 0")
	}
	if c.Engine.WorkCount < 0 {
		return fmt.Errorf("engine.workCount must be >= 0")
	}
	return nil
}

// 定时任务所在的时区
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Schedule.Timezone)
}

func (c *FetcherConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *FetcherConfig) WaitDuration() time.Duration {
	return time.Duration(c.WaitTime) * time.Millisecond
}

func (c *ScheduleConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *HistoryConfig) PauseDuration() time.Duration {
	return time.Duration(c.Pause) * time.Millisecond
}
