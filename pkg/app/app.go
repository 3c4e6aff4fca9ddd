// Package app 负责应用的组装与生命周期：New 装配，Run 阻塞运行，Shutdown 按相反顺序释放.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/gradevault/pkg/api"
	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/handle"
	"github.com/yeisme/gradevault/pkg/internal/jobs"
	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/log"
	"github.com/yeisme/gradevault/pkg/metrics"
	"github.com/yeisme/gradevault/pkg/middleware"
	"github.com/yeisme/gradevault/pkg/queue"
	"github.com/yeisme/gradevault/pkg/scheduler"
	"github.com/yeisme/gradevault/pkg/tracing"
)

// App HTTP 服务及其后台组件.
type App struct {
	*Core

	Engine    *gin.Engine
	server    *http.Server
	listener  *queue.Listener
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger
}

// New 加载配置并装配所有组件，不启动任何后台任务.
func New(configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()
	log.Init()

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	core, err := NewCore(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{Core: core, logger: log.Component("app")}

	if err := a.initBackground(); err != nil {
		_ = core.Close()
		return nil, err
	}

	a.initHTTP()

	return a, nil
}

func (a *App) initBackground() error {
	cfg := a.Config

	if mq := a.Manager.GetMQClient(); mq != nil && a.Cache != nil {
		l, err := service.NewCacheListener(mq.Subscriber(), mq.Logger(), a.Cache)
		if err != nil {
			return fmt.Errorf("init cache listener: %w", err)
		}

		a.listener = l

		sharedStore := cfg.Store.Backend != configs.StoreBackendKV || cfg.KV.Shared()
		if !cfg.MQ.Distributed() && sharedStore {
			a.logger.Warn().Str("mq", string(cfg.MQ.Type)).
				Msg("events stay in this process, list caches on other nodes are not invalidated")
		}
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	a.scheduler = sched

	sweeper := jobs.NewOrphanSweeper(a.Manager.GetStore(), cfg.Catalog.GradeKeys(), cfg.Jobs.OrphanGrace())
	if err := jobs.RegisterCronJobs(context.Background(), sched, sweeper, cfg.Jobs); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	return nil
}

func (a *App) initHTTP() {
	l := log.Logger()

	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	a.Engine = NewEngine(a.Core, a.scheduler)
	a.server = &http.Server{
		Addr:              a.Config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.Config.Server.ReadHeaderTimeout,
		IdleTimeout:       a.Config.Server.IdleTimeout,
	}
}

// NewEngine 构建挂好中间件与全部路由的 gin 引擎.
func NewEngine(core *Core, sched *scheduler.Scheduler) *gin.Engine {
	cfg := core.Config

	e := gin.New()
	e.MaxMultipartMemory = cfg.Server.MaxMultipart << 20

	e.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.StorageMiddleware(core.Manager),
		middleware.SchedulerMiddleware(sched),
	)

	_ = metrics.StartMetricsServer(cfg.Metrics, e)

	h := handle.New(core.Files, core.Admins, cfg.Server.MaxMultipart)
	api.RegisterGroup(e, h, middleware.RequireAdmin(core.Admins))

	return e
}

// Run 启动监听器、调度器与 HTTP 服务，阻塞到服务关闭.
func (a *App) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.listener != nil {
		if err := a.listener.Start(ctx); err != nil {
			return fmt.Errorf("start cache listener: %w", err)
		}
	}

	a.scheduler.Start()

	a.logger.Info().Str("addr", a.server.Addr).Str("store", string(a.Config.Store.Backend)).Msg("server listening")

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown 停止接收请求并释放资源.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}

	if a.listener != nil {
		errs = append(errs, a.listener.Stop())
	}

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop())
	}

	errs = append(errs, a.Core.Close(), tracing.ShutdownTracer(ctx))

	a.logger.Info().Msg("server stopped")

	return errors.Join(errs...)
}
