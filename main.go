package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/qween-beth/careerstack/internal/agent"
	"github.com/qween-beth/careerstack/internal/api/handler"
	"github.com/qween-beth/careerstack/internal/api/router"
	"github.com/qween-beth/careerstack/internal/config"
	"github.com/qween-beth/careerstack/internal/llm"
	"github.com/qween-beth/careerstack/internal/logger"
	"github.com/qween-beth/careerstack/internal/parser"
	"github.com/qween-beth/careerstack/internal/session"
	"github.com/qween-beth/careerstack/internal/storage"
	"github.com/qween-beth/careerstack/internal/tracing"
)

func main() {
	var (
		configPath string
		initConfig string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时按默认位置查找")
	pflag.StringVar(&initConfig, "init-config", "", "在指定路径生成示例配置文件后退出")
	pflag.Parse()

	if initConfig != "" {
		if err := config.CreateSampleConfig(initConfig); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	// .env 仅用于本地开发，不存在时静默忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	initLogger(cfg)

	ctx := logger.WithContext(context.Background())

	// 链路追踪，初始化失败时降级为无追踪运行
	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.InitTracerProvider(ctx,
			cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化链路追踪失败, 以无追踪模式继续运行")
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(flushCtx); err != nil {
					logger.Warn().Err(err).Msg("关闭链路追踪失败")
				}
			}()
		}
	}

	// 存储层，单个组件失败只降级不退出
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储管理器失败")
	}
	defer storageManager.Close()

	// LLM客户端，按任务选择模型
	analyzerModel, err := llm.NewChatModelFromConfig(cfg, "analyzer", llm.WithJSONMode(true))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历分析模型失败")
	}
	jobModel, err := llm.NewChatModelFromConfig(cfg, "job_search", llm.WithJSONMode(true))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化职位搜索模型失败")
	}
	coverModel, err := llm.NewChatModelFromConfig(cfg, "cover_letter", llm.WithJSONMode(true))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化求职信模型失败")
	}

	extractor, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化PDF解析器失败")
	}

	analyzer := agent.NewResumeAnalyzer(analyzerModel, extractor)

	// 职位来源: HN Jobs 始终可用，Indeed 需要 Publisher Key
	sourceTimeout := config.GetDuration(cfg.JobSearch.SourceTimeout, 10*time.Second)
	sourceClient := &http.Client{Timeout: sourceTimeout}
	sources := []agent.JobSource{agent.NewHNJobsSource("", sourceClient)}
	if cfg.JobSearch.IndeedAPIKey != "" {
		indeed, err := agent.NewIndeedSource(cfg.JobSearch.IndeedAPIKey, "", sourceClient)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Indeed来源失败, 跳过")
		} else {
			sources = append(sources, indeed)
		}
	}

	jobAgent := agent.NewJobSearchAgent(jobModel, sources,
		agent.WithTopN(cfg.JobSearch.TopN),
		agent.WithMaxPerSource(cfg.JobSearch.MaxPerSource),
	)
	coverAgent := agent.NewCoverLetterAgent(coverModel)

	// 会话存储与聊天记录: Redis可用时持久化，否则退化到进程内存
	var sessionStore session.Store
	var memory agent.ChatMemory
	sessionTTL := time.Duration(cfg.Session.ExpireHours) * time.Hour
	if storageManager.Redis != nil {
		sessionStore, err = session.NewRedisStore(storageManager.Redis.Client, sessionTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化Redis会话存储失败")
		}
		chatTTL := time.Duration(cfg.Redis.ChatHistoryExpireHours) * time.Hour
		memory, err = agent.NewRedisChatMemory(storageManager.Redis.Client, chatTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("初始化Redis聊天记录失败")
		}
	} else {
		logger.Warn().Msg("Redis不可用, 会话与聊天记录仅保存在进程内存中")
		sessionStore = session.NewInMemoryStore()
		memory = agent.NewInMemoryChatMemory()
	}

	supervisor := agent.NewSupervisor(jobAgent, coverAgent,
		agent.WithChatMemory(memory),
		agent.WithResearcherFactory(func() *agent.WebResearcher {
			return agent.NewWebResearcher(
				agent.WithAllowedDomains(cfg.Research.AllowedDomains),
				agent.WithMaxPages(cfg.Research.MaxPages),
				agent.WithResearchHTTPClient(&http.Client{
					Timeout: config.GetDuration(cfg.Research.FetchTimeout, 10*time.Second),
				}),
			)
		}),
	)

	signer, err := session.NewCookieSigner(cfg.Session.SecretKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化会话签名器失败, 请配置 SECRET_KEY")
	}
	sessionManager := handler.NewSessionManager(sessionStore, signer, cfg.Session.CookieName, sessionTTL)

	resumeHandler := handler.NewResumeHandler(cfg, storageManager, analyzer, sessionStore)
	chatHandler := handler.NewChatHandler(supervisor, storageManager, sessionStore)

	// 异步分析消费者，RabbitMQ缺失时上传流程内嵌分析
	if storageManager.RabbitMQ != nil {
		if err := resumeHandler.StartAnalysisConsumer(ctx); err != nil {
			logger.Fatal().Err(err).Msg("启动简历分析消费者失败")
		}
	} else {
		logger.Warn().Msg("RabbitMQ不可用, 简历分析将在上传进程内执行")
	}

	serverOpts := []hertzconfig.Option{
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(int(cfg.MaxUploadBytes()) + 1024*1024),
	}

	var serverTraceCfg *hertztracing.Config
	if cfg.Tracing.Enabled {
		tracer, traceCfg := hertztracing.NewServerTracer()
		serverOpts = append(serverOpts, tracer)
		serverTraceCfg = traceCfg
	}

	h := server.Default(serverOpts...)
	if serverTraceCfg != nil {
		h.Use(hertztracing.ServerMiddleware(serverTraceCfg))
	}
	h.Use(requestLogMiddleware())
	h.LoadHTMLGlob("templates/*.html")

	router.RegisterRoutes(h, sessionManager, resumeHandler, chatHandler)

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}

	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统并接管Hertz框架日志
func initLogger(cfg *config.Config) {
	logConfig := logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	}
	if logConfig.Level == "" {
		logConfig.Level = "info"
	}
	if logConfig.TimeFormat == "" {
		logConfig.TimeFormat = time.RFC3339
	}

	logger.Init(logConfig)

	logger.Logger = logger.Logger.With().
		Str("app", "careerstack").
		Logger()

	// Hertz框架日志走同一个zerolog实例
	hlog.SetLogger(hertzzerolog.From(logger.Logger))
}

// requestLogMiddleware 注入请求级logger并记录访问日志
func requestLogMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		c = logger.WithContext(c)

		ctx.Next(c)

		logger.Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
