package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"txmon/config"
	"txmon/db"
	"txmon/routes"
	"txmon/server"
	"txmon/services"
)

const connectTimeout = 10 * time.Second

func setupLogging(logFile, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lvl)}
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), lvl))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func newConnector(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*db.Connector, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn, err := db.InitDB(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing database connections")
			return conn.Close()
		},
	})
	return conn, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newMetrics(reg *prometheus.Registry) *services.Metrics {
	return services.NewMetrics(reg)
}

func newScheduler(clk clock.Clock, cfg *config.Config, logger *zap.Logger) *services.Scheduler {
	return services.NewScheduler(clk, time.Duration(cfg.Monitor.PollingPeriod)*time.Second, logger)
}

type monitorParams struct {
	fx.In

	Config    *config.Config
	Conn      *db.Connector
	Scheduler *services.Scheduler
	Cache     *services.StateCache
	Hub       *services.Hub
	Metrics   *services.Metrics
	Clock     clock.Clock
	Logger    *zap.Logger
}

func newMonitor(p monitorParams) *services.Monitor {
	return services.NewMonitor(services.MonitorOptions{
		Inventory: db.NewPortInventory(p.Conn),
		Telemetry: db.NewCounterStore(p.Conn),
		Publisher: services.MultiPublisher{
			db.NewStateTable(p.Conn, p.Config.Monitor.StateTable),
			p.Cache,
			p.Metrics,
			p.Hub,
		},
		Timer:         p.Scheduler,
		Metrics:       p.Metrics,
		Logger:        p.Logger,
		Clock:         p.Clock,
		CounterStat:   p.Config.Monitor.CounterStat,
		PollingPeriod: p.Config.Monitor.PollingPeriod,
		Threshold:     p.Config.Monitor.Threshold,
	})
}

type routerParams struct {
	fx.In

	Config    *config.Config
	Cache     *services.StateCache
	Monitor   *services.Monitor
	Scheduler *services.Scheduler
	Hub       *services.Hub
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

func newRouter(p routerParams) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(p.Logger))
	routes.InitRoutes(router, &routes.Handlers{
		States:    p.Cache,
		Monitor:   p.Monitor,
		Scheduler: p.Scheduler,
		Stream:    p.Hub.ServeWS,
		Gatherer:  p.Registry,
		JWTSecret: []byte(p.Config.Server.JWTSecret),
		Logger:    p.Logger,
	})
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client", c.ClientIP()))
	}
}

func newServer(cfg *config.Config, router *gin.Engine, logger *zap.Logger) *server.Server {
	return server.New(cfg.Server, router, logger)
}

// runMonitor starts the dispatcher. A fatal monitor error stops the
// application with exit code 1.
func runMonitor(lc fx.Lifecycle, shutdowner fx.Shutdowner, sched *services.Scheduler, monitor *services.Monitor, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := sched.Run(ctx, monitor); err != nil {
					logger.Error("monitor stopped", zap.Error(err))
					if err := shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
						logger.Error("failed to request shutdown", zap.Error(err))
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// watchConfig feeds the existing config entries and every later change to
// the dispatcher.
func watchConfig(lc fx.Lifecycle, cfg *config.Config, conn *db.Connector, sched *services.Scheduler, logger *zap.Logger) {
	table := db.NewConfigTable(conn, cfg.Monitor.ConfigTable, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			sub, err := table.Subscribe(startCtx)
			if err != nil {
				return err
			}
			cmds, err := table.Load(startCtx)
			if err != nil {
				_ = sub.Close()
				return err
			}
			for _, cmd := range cmds {
				if err := sched.Submit(startCtx, cmd); err != nil {
					_ = sub.Close()
					return err
				}
			}
			logger.Info("config table loaded", zap.String("table", cfg.Monitor.ConfigTable), zap.Int("entries", len(cmds)))

			go func() {
				defer close(done)
				if err := sub.Run(ctx, sched.Submit); err != nil && ctx.Err() == nil {
					logger.Error("config watcher stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, cfg *config.Config, srv *server.Server, hub *services.Hub, logger *zap.Logger) {
	if cfg.Server.Port == "" {
		logger.Info("http api disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: srv.Start,
		OnStop: func(ctx context.Context) error {
			hub.Close()
			return srv.Stop(ctx)
		},
	})
}

func appOptions(cfg *config.Config, logger *zap.Logger) fx.Option {
	return fx.Options(
		fx.Supply(cfg, logger),
		fx.Provide(
			clock.New,
			newConnector,
			newRegistry,
			newMetrics,
			services.NewStateCache,
			services.NewHub,
			newScheduler,
			newMonitor,
			newRouter,
			newServer,
		),
		fx.Invoke(runMonitor, watchConfig, startServer),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	)
}

func main() {
	configFile := flag.String("config", "", "path to a JSON, YAML or TOML config file; defaults and TXMON_* variables apply without one")
	flag.Parse()

	if err := config.LoadConfig(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.AppConfig

	logger, err := setupLogging(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting txmon",
		zap.String("redis", cfg.Redis.Address),
		zap.Uint32("polling_period", cfg.Monitor.PollingPeriod),
		zap.Uint64("threshold", cfg.Monitor.Threshold))

	fx.New(appOptions(cfg, logger)).Run()
}
