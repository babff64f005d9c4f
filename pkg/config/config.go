package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	CORS     CORSConfig
	Solver   SolverConfig
	Jobs     JobsConfig
}

type CORSConfig struct {
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// HistoryTTL bounds how long schedule-history lookups stay cached.
	HistoryTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig carries the recognized solve options. Weight and budget
// semantics live in the solver package; this is the env-facing mirror.
type SolverConfig struct {
	DaysPerWeek   int
	PeriodsPerDay int

	WeightTeacherSpread   float64
	WeightClassContinuity float64
	WeightSubjectSpacing  float64
	WeightPreferredPeriod float64

	NodeBudgetPerRestart int
	MaxRestarts          int
	WallClockBudget      time.Duration

	CostCacheCapacity int
	SwapFrontierLimit int
	MaxSwapChain      int

	AllowSameDaySameSubject bool
	ParallelRestarts        int
	RNGSeed                 int64
}

// JobsConfig tunes the async solve queue.
type JobsConfig struct {
	Workers    int
	BufferSize int
	ResultTTL  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:    v.GetBool("REDIS_ENABLED"),
		Host:       v.GetString("REDIS_HOST"),
		Port:       v.GetInt("REDIS_PORT"),
		Password:   v.GetString("REDIS_PASSWORD"),
		DB:         v.GetInt("REDIS_DB"),
		HistoryTTL: parseDuration(v.GetString("REDIS_HISTORY_TTL"), 10*time.Minute),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.CORS = CORSConfig{
		AllowedOrigins: splitCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	cfg.Solver = SolverConfig{
		DaysPerWeek:             v.GetInt("SOLVER_DAYS_PER_WEEK"),
		PeriodsPerDay:           v.GetInt("SOLVER_PERIODS_PER_DAY"),
		WeightTeacherSpread:     v.GetFloat64("SOLVER_WEIGHT_TEACHER_SPREAD"),
		WeightClassContinuity:   v.GetFloat64("SOLVER_WEIGHT_CLASS_CONTINUITY"),
		WeightSubjectSpacing:    v.GetFloat64("SOLVER_WEIGHT_SUBJECT_SPACING"),
		WeightPreferredPeriod:   v.GetFloat64("SOLVER_WEIGHT_PREFERRED_PERIOD"),
		NodeBudgetPerRestart:    v.GetInt("SOLVER_NODE_BUDGET_PER_RESTART"),
		MaxRestarts:             v.GetInt("SOLVER_MAX_RESTARTS"),
		WallClockBudget:         time.Duration(v.GetInt("SOLVER_WALL_CLOCK_BUDGET_MS")) * time.Millisecond,
		CostCacheCapacity:       v.GetInt("SOLVER_COST_CACHE_CAPACITY"),
		SwapFrontierLimit:       v.GetInt("SOLVER_SWAP_FRONTIER_LIMIT"),
		MaxSwapChain:            v.GetInt("SOLVER_MAX_SWAP_CHAIN"),
		AllowSameDaySameSubject: v.GetBool("SOLVER_ALLOW_SAME_DAY_SAME_SUBJECT"),
		ParallelRestarts:        v.GetInt("SOLVER_PARALLEL_RESTARTS"),
		RNGSeed:                 v.GetInt64("SOLVER_RNG_SEED"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		ResultTTL:  parseDuration(v.GetString("JOBS_RESULT_TTL"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "aicourse")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_HISTORY_TTL", "10m")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	v.SetDefault("SOLVER_DAYS_PER_WEEK", 5)
	v.SetDefault("SOLVER_PERIODS_PER_DAY", 8)
	v.SetDefault("SOLVER_WEIGHT_TEACHER_SPREAD", 1.0)
	v.SetDefault("SOLVER_WEIGHT_CLASS_CONTINUITY", 1.0)
	v.SetDefault("SOLVER_WEIGHT_SUBJECT_SPACING", 1.0)
	v.SetDefault("SOLVER_WEIGHT_PREFERRED_PERIOD", 0.5)
	v.SetDefault("SOLVER_NODE_BUDGET_PER_RESTART", 200000)
	v.SetDefault("SOLVER_MAX_RESTARTS", 8)
	v.SetDefault("SOLVER_WALL_CLOCK_BUDGET_MS", 30000)
	v.SetDefault("SOLVER_COST_CACHE_CAPACITY", 65536)
	v.SetDefault("SOLVER_SWAP_FRONTIER_LIMIT", 10000)
	v.SetDefault("SOLVER_MAX_SWAP_CHAIN", 3)
	v.SetDefault("SOLVER_ALLOW_SAME_DAY_SAME_SUBJECT", false)
	v.SetDefault("SOLVER_PARALLEL_RESTARTS", 1)
	v.SetDefault("SOLVER_RNG_SEED", 0)

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 16)
	v.SetDefault("JOBS_RESULT_TTL", "1h")
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
