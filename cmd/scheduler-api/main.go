package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/shlwsh/aicourse-scheduler/internal/handler"
	"github.com/shlwsh/aicourse-scheduler/internal/repository"
	"github.com/shlwsh/aicourse-scheduler/internal/service"
	"github.com/shlwsh/aicourse-scheduler/internal/solver"
	"github.com/shlwsh/aicourse-scheduler/pkg/cache"
	"github.com/shlwsh/aicourse-scheduler/pkg/config"
	"github.com/shlwsh/aicourse-scheduler/pkg/database"
	"github.com/shlwsh/aicourse-scheduler/pkg/jobs"
	"github.com/shlwsh/aicourse-scheduler/pkg/logger"
	"github.com/shlwsh/aicourse-scheduler/pkg/metrics"
	corsmiddleware "github.com/shlwsh/aicourse-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/shlwsh/aicourse-scheduler/pkg/middleware/requestid"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("solve", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	collector := metrics.New()
	validate := validator.New()

	problemRepo := repository.NewProblemRepository(db)
	historyRepo := repository.NewScheduleHistoryRepository(db)

	solveService := service.NewSolveService(
		problemRepo,
		historyRepo,
		redisClient,
		queue,
		validate,
		logr,
		collector,
		service.SolveServiceConfig{
			Defaults:     solverConfig(cfg.Solver),
			RedisTTL:     cfg.Redis.HistoryTTL,
			JobResultTTL: cfg.Jobs.ResultTTL,
		},
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(collector.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", collector.Handler())

	solveHandler := handler.NewSolveHandler(solveService)
	historyHandler := handler.NewHistoryHandler(solveService)

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/solve", solveHandler.Solve)
		api.POST("/solve/async", solveHandler.SolveAsync)
		api.GET("/solve/jobs/:id", solveHandler.Job)
		api.POST("/swaps/suggest", solveHandler.SuggestSwaps)
		api.GET("/history", historyHandler.List)
		api.GET("/history/:id", historyHandler.Get)
		api.DELETE("/history/:id", historyHandler.Delete)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// solverConfig maps the env-facing solver options onto the solver package
// config.
func solverConfig(sc config.SolverConfig) solver.Config {
	cfg := solver.DefaultConfig()
	cfg.DaysPerWeek = sc.DaysPerWeek
	cfg.PeriodsPerDay = sc.PeriodsPerDay
	cfg.Weights = solver.Weights{
		TeacherSpread:   sc.WeightTeacherSpread,
		ClassContinuity: sc.WeightClassContinuity,
		SubjectSpacing:  sc.WeightSubjectSpacing,
		PreferredPeriod: sc.WeightPreferredPeriod,
	}
	cfg.NodeBudgetPerRestart = sc.NodeBudgetPerRestart
	cfg.MaxRestarts = sc.MaxRestarts
	cfg.WallClockBudget = sc.WallClockBudget
	cfg.CostCacheCapacity = sc.CostCacheCapacity
	cfg.SwapFrontierLimit = sc.SwapFrontierLimit
	cfg.MaxSwapChain = sc.MaxSwapChain
	cfg.AllowSameDaySameSubject = sc.AllowSameDaySameSubject
	cfg.ParallelRestarts = sc.ParallelRestarts
	cfg.RNGSeed = sc.RNGSeed
	return cfg
}
