package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// 支持的行情数据源。
const (
	ProviderYahoo = "yahoo"
	ProviderCCXT  = "ccxt"
)

// 支持的报告格式。
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Source    SourceConfig    `mapstructure:"source"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Report    ReportConfig    `mapstructure:"report"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// SourceConfig 描述价格数据来源及回看窗口。
type SourceConfig struct {
	Provider     string        `mapstructure:"provider"`
	Symbols      []string      `mapstructure:"symbols"`
	LookbackDays int           `mapstructure:"lookback_days"`
	Timeframe    string        `mapstructure:"timeframe"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retry        RetryConfig   `mapstructure:"retry"`
}

// ExchangeConfig 描述 ccxt 交易所连接信息。
type ExchangeConfig struct {
	Name       string `mapstructure:"name"`
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	APIPass    string `mapstructure:"api_password"`
	UseSandbox bool   `mapstructure:"use_sandbox"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// MetricsConfig 控制风险指标计算参数。
type MetricsConfig struct {
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	Workers        int     `mapstructure:"workers"`
}

// ReportConfig 控制报告输出。
type ReportConfig struct {
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	PricesCSV string `mapstructure:"prices_csv"`
	ChartPath string `mapstructure:"chart_path"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制重复计算的节奏，Interval 为 0 时只运行一次。
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// MonitorConfig 控制监控接口，Port 为 0 时不启动。
type MonitorConfig struct {
	Port int `mapstructure:"port"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	switch strings.ToLower(c.Source.Provider) {
	case ProviderYahoo:
	case ProviderCCXT:
		if c.Exchange.Name == "" {
			err = multierr.Append(err, errors.New("exchange.name 不能为空"))
		}
		if c.Source.Timeframe == "" {
			err = multierr.Append(err, errors.New("source.timeframe 不能为空"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("source.provider 不支持: %q", c.Source.Provider))
	}
	if c.Source.LookbackDays <= 0 {
		err = multierr.Append(err, errors.New("source.lookback_days 必须大于0"))
	}
	if c.Source.Timeout <= 0 {
		err = multierr.Append(err, errors.New("source.timeout 必须大于0"))
	}
	if c.Source.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("source.retry.max_attempts 必须大于0"))
	}
	if c.Source.Retry.MinDelay <= 0 || c.Source.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("source.retry.delay 必须为正"))
	}
	if c.Source.Retry.MinDelay > c.Source.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("source.retry.min_delay 不能大于 max_delay"))
	}
	if c.Metrics.RiskFreeRate < 0 || c.Metrics.RiskFreeRate > 1 {
		err = multierr.Append(err, errors.New("metrics.risk_free_rate 必须位于[0,1]"))
	}
	if c.Metrics.PeriodsPerYear <= 0 {
		err = multierr.Append(err, errors.New("metrics.periods_per_year 必须大于0"))
	}
	if c.Metrics.Workers <= 0 {
		err = multierr.Append(err, errors.New("metrics.workers 必须大于0"))
	}
	switch strings.ToLower(c.Report.Format) {
	case FormatTable, FormatCSV, FormatJSON:
	default:
		err = multierr.Append(err, fmt.Errorf("report.format 不支持: %q", c.Report.Format))
	}
	if c.OpenAI.Enabled {
		if c.OpenAI.APIKey == "" {
			err = multierr.Append(err, errors.New("openai.api_key 不能为空"))
		}
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	}
	if c.Database.Enabled {
		if c.Database.Path == "" && !c.Database.InMemory {
			err = multierr.Append(err, errors.New("database.path 不能为空"))
		}
		if c.Database.MaxOpenConns <= 0 {
			err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
		}
		if c.Database.MaxIdleConns < 0 {
			err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
		}
		if c.Database.ConnMaxLifetime < 0 {
			err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
		}
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Scheduler.Interval < 0 {
		err = multierr.Append(err, errors.New("scheduler.interval 不能为负"))
	}
	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		err = multierr.Append(err, errors.New("monitor.port 必须位于[0,65535]"))
	}
	if c.Monitor.Port > 0 && c.Scheduler.Interval == 0 {
		err = multierr.Append(err, errors.New("monitor.port 需要配合 scheduler.interval 使用"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
