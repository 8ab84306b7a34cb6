package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zhitaogpt/BinanceAlphaTool/internal/auth"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/controller"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/engine"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/eventlog"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/history"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/market"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/server"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/stats"
	"github.com/zhitaogpt/BinanceAlphaTool/internal/tradecfg"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/logger"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/persistence"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/secretstore"
	"github.com/zhitaogpt/BinanceAlphaTool/pkg/shutdown"
)

func loadSession(cookiesPath string) (*auth.Session, error) {
	if cookiesPath != "" {
		return auth.LoadSessionFile(cookiesPath)
	}

	// 未指定 cookies 文件时尝试加密存储（需要 TRADER_SECRETSTORE_KEY）
	storePath := os.Getenv("TRADER_SECRETSTORE_PATH")
	if storePath == "" {
		storePath = "data/secretstore"
	}
	key, err := secretstore.ParseKey(os.Getenv("TRADER_SECRETSTORE_KEY"))
	if err != nil {
		return nil, err
	}
	store, err := secretstore.Open(secretstore.OpenOptions{Path: storePath, EncryptionKey: key, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return auth.LoadSessionSecret(store)
}

func main() {
	cookiesPath := flag.String("cookies", "", "会话 cookie 文件路径（JSON 或原始 Cookie 头）")
	configPath := flag.String("config", "", "交易配置文件路径（支持 .yaml, .yml, .json）")
	fromToken := flag.String("from-token", "", "卖出币种（默认 USDT）")
	toToken := flag.String("to-token", "", "买入币种（默认 KOGE）")
	contractAddress := flag.String("contract-address", "", "目标代币合约地址")
	minAmount := flag.Float64("min-amount", 0, "单笔最小金额")
	maxAmount := flag.Float64("max-amount", 0, "单笔最大金额")
	targetVolume := flag.Float64("target-volume", 0, "目标累计交易量，达到后自动停止")
	maxCycles := flag.Int("cycles", 0, "最大循环次数（0 为不限制）")
	cycleInterval := flag.Float64("cycle-interval", 0, "循环间隔（秒）")
	retryDelay := flag.Float64("retry-delay", 0, "失败退避（秒）")
	once := flag.Bool("once", false, "只执行一次循环后退出")
	listenAddr := flag.String("listen", "", "控制面监听地址（如 127.0.0.1:8080，为空则不启动）")
	dbPath := flag.String("db", "data/trader.db", "成交记录 SQLite 归档路径（为空则禁用归档）")
	logLevel := flag.String("log-level", "info", "日志级别")
	logFile := flag.String("log-file", "logs/trader.log", "日志文件路径")
	flag.Parse()

	// .env 不存在时静默忽略
	_ = godotenv.Load()

	if err := logger.Init(logger.Config{
		Level:      *logLevel,
		OutputFile: *logFile,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}); err != nil {
		panic(err)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logrus.Info("🚀 启动 Alpha 交易工具...")

	// 配置：持久化存储 -> 配置文件 -> 命令行覆盖
	persistenceService := persistence.NewJSONFileService("data/persistence")
	cfgStore := tradecfg.NewStore(persistenceService)

	cfg := cfgStore.Load()
	if *configPath != "" {
		fileCfg, err := tradecfg.LoadFile(*configPath)
		if err != nil {
			logrus.Errorf("加载配置文件失败: %v", err)
			os.Exit(1)
		}
		cfg = fileCfg
		logrus.Infof("使用配置文件: %s", *configPath)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "from-token":
			cfg.FromToken = *fromToken
		case "to-token":
			cfg.ToToken = *toToken
		case "contract-address":
			cfg.ContractAddress = *contractAddress
		case "min-amount":
			cfg.MinAmount = *minAmount
		case "max-amount":
			cfg.MaxAmount = *maxAmount
		case "target-volume":
			cfg.TargetVolume = *targetVolume
		case "cycles":
			cfg.MaxCycles = *maxCycles
		case "cycle-interval":
			cfg.CycleIntervalSec = *cycleInterval
		case "retry-delay":
			cfg.RetryDelaySec = *retryDelay
		}
	})
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("配置验证失败: %v", err)
		os.Exit(1)
	}

	// 会话凭证
	session, err := loadSession(*cookiesPath)
	if err != nil {
		logrus.Errorf("加载会话凭证失败: %v", err)
		logrus.Error("请通过 -cookies 指定 cookie 文件，或配置 TRADER_SECRETSTORE_KEY")
		os.Exit(1)
	}
	if _, ok := session.Cookie("cr00"); !ok {
		logrus.Warnf("会话中缺少 cr00 cookie，交易请求可能因鉴权失败被拒绝")
	}

	events := eventlog.New()
	tracker := stats.NewTracker()
	client := market.NewClient(market.DefaultBaseURL, session, events)
	eng := engine.New(client, tracker, events)

	var archive *history.Archive
	if *dbPath != "" {
		archive, err = history.Open(*dbPath)
		if err != nil {
			logrus.Errorf("打开成交归档失败: %v", err)
			os.Exit(1)
		}
	}

	opts := []controller.Option{}
	if archive != nil {
		opts = append(opts, controller.WithArchive(archive))
	}
	ctrl := controller.New(eng, cfgStore, tracker, events, opts...)
	if err := ctrl.ApplyConfig(cfg); err != nil {
		logrus.Errorf("应用配置失败: %v", err)
		os.Exit(1)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	shutdownMgr := shutdown.NewManager()
	shutdownMgr.OnShutdown(func(ctx context.Context) {
		ctrl.Stop()
		select {
		case <-ctrl.Done():
		case <-ctx.Done():
		}
	})
	// 归档在循环完全停止之后再关
	closeArchive := func() {
		if archive == nil {
			return
		}
		if err := archive.Close(); err != nil {
			logrus.Errorf("关闭成交归档失败: %v", err)
		}
	}

	if *once {
		logrus.Info("单次模式：执行一轮后退出")
		ok := ctrl.RunOnce(rootCtx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		shutdownMgr.Shutdown(shutdownCtx)
		cancel()
		closeArchive()
		if !ok {
			os.Exit(1)
		}
		return
	}

	// 控制面（可选）
	if *listenAddr != "" {
		srv := server.New(ctrl, events, archive)
		go func() {
			if err := srv.Serve(rootCtx, *listenAddr); err != nil {
				logrus.Errorf("控制面退出: %v", err)
			}
		}()
	}

	ctrl.Start()
	logrus.Info("✅ 交易循环已启动，按 Ctrl+C 停止")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		logrus.Info("收到停止信号，正在关闭...")
	case <-ctrl.Done():
		logrus.Info("交易循环已结束")
	}
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	shutdownMgr.Shutdown(shutdownCtx)
	closeArchive()

	logrus.Info("✅ 已停止")
}
