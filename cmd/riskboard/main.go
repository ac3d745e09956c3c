package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"riskboard/internal/app"
	"riskboard/internal/config"
	"riskboard/internal/log"
	"riskboard/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run 返回进程退出码：0 正常，1 运行失败，2 参数或配置错误。
func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("riskboard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath string
		symbols    string
		format     string
	)
	fs.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	fs.StringVar(&symbols, "symbols", "", "逗号分隔的资产列表，覆盖 source.symbols")
	fs.StringVar(&format, "format", "", "报告格式 table|csv|json，覆盖 report.format")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 2
	}
	if symbols != "" {
		cfg.Source.Symbols = strings.Split(symbols, ",")
	}
	if format != "" {
		cfg.Report.Format = strings.ToLower(strings.TrimSpace(format))
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 2
		}
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	var sqliteStore *store.Store
	if cfg.Database.Enabled {
		sqliteStore, err = store.NewSQLite(cfg.Database)
		if err != nil {
			logger.Error("初始化数据库失败", zap.Error(err))
			return 1
		}
		defer func() {
			if closeErr := sqliteStore.Close(); closeErr != nil {
				logger.Warn("关闭数据库失败", zap.Error(closeErr))
			}
		}()
	}

	dashboard := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dashboard.Run(ctx); err != nil {
		logger.Error("系统运行异常", zap.Error(err))
		return 1
	}

	logger.Info("系统已安全退出")
	return 0
}
