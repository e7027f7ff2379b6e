package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	FaceAPI    FaceAPIConfig
	Clustering ClusteringConfig
	Worker     WorkerConfig
	Lock       LockConfig
}

type AdminConfig struct {
	Token string // Separate admin token for log access (falls back to JWT secret if not set)
}

type AppConfig struct {
	Name    string
	Port    string
	Env     string
	LogDir  string
	Console bool
}

type DatabaseConfig struct {
	Driver   string // postgres or memory
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Channel  string // pub/sub channel for progress fan-out
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	FindYourselfMax    int // Requests per window per client
	FindYourselfWindow time.Duration
}

type FaceAPIConfig struct {
	BaseURL string        // Base URL of the InsightFace service
	APIKey  string        // Optional X-API-Key header
	Enabled bool          // Enable/disable face processing
	Timeout time.Duration // Bound on every provider call
}

type ClusteringConfig struct {
	MatchThreshold    float64 // Minimum similarity to join a person cluster
	MergeMargin       float64 // Merge threshold = match threshold + margin
	MinConfidence     float64 // Faces below this detection confidence are dropped
	MaxRetries        int     // Detection attempts before a photo is marked faces_failed
	DetectConcurrency int     // Parallel provider calls per run
	MergeCron         string  // Schedule of the periodic merge pass
	LockTimeout       time.Duration
	RetryBackoff      time.Duration // Wait after a failed detection, doubled per failure
}

// MergeThreshold returns the merge pass threshold
func (c ClusteringConfig) MergeThreshold() float64 {
	return c.MatchThreshold + c.MergeMargin
}

type WorkerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int // Events picked up per poll
	StuckMinutes int // Photos in detecting longer than this are reset
}

type LockConfig struct {
	Backend string        // local or redis
	TTL     time.Duration // Lease of the redis lock
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists (optional for production)
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "Event Faces"),
			Port:    getEnv("APP_PORT", "3000"),
			Env:     getEnv("APP_ENV", "development"),
			LogDir:  getEnv("LOG_DIR", "logs"),
			Console: getBool("LOG_CONSOLE", true),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "eventfaces"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "eventfaces:progress"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		Admin: AdminConfig{
			Token: getEnv("ADMIN_TOKEN", ""), // Will fall back to JWT_SECRET in handler if empty
		},
		RateLimit: RateLimitConfig{
			FindYourselfMax:    getInt("FIND_YOURSELF_RATE_MAX", 10),
			FindYourselfWindow: getDuration("FIND_YOURSELF_RATE_WINDOW", time.Minute),
		},
		FaceAPI: FaceAPIConfig{
			BaseURL: getEnv("FACE_API_URL", "http://localhost:5000"),
			APIKey:  getEnv("FACE_API_KEY", ""),
			Enabled: getBool("FACE_API_ENABLED", true),
			Timeout: getDuration("FACE_API_TIMEOUT", 60*time.Second),
		},
		Clustering: ClusteringConfig{
			MatchThreshold:    getFloat("FACE_MATCH_THRESHOLD", 0.6),
			MergeMargin:       getFloat("FACE_MERGE_MARGIN", 0.1),
			MinConfidence:     getFloat("FACE_MIN_CONFIDENCE", 0.7),
			MaxRetries:        getInt("FACE_MAX_RETRIES", 3),
			DetectConcurrency: getInt("FACE_DETECT_CONCURRENCY", 4),
			MergeCron:         getEnv("FACE_MERGE_CRON", "*/30 * * * *"),
			LockTimeout:       getDuration("FACE_LOCK_TIMEOUT", 2*time.Minute),
			RetryBackoff:      getDuration("FACE_RETRY_BACKOFF", 30*time.Second),
		},
		Worker: WorkerConfig{
			Enabled:      getBool("FACE_WORKER_ENABLED", true),
			PollInterval: getDuration("FACE_WORKER_POLL_INTERVAL", 10*time.Second),
			BatchSize:    getInt("FACE_WORKER_BATCH_SIZE", 5),
			StuckMinutes: getInt("FACE_WORKER_STUCK_MINUTES", 15),
		},
		Lock: LockConfig{
			Backend: getEnv("LOCK_BACKEND", "local"),
			TTL:     getDuration("LOCK_TTL", 5*time.Minute),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the face pipeline cannot run with
func (c *Config) Validate() error {
	cl := c.Clustering
	if cl.MatchThreshold < -1 || cl.MatchThreshold > 1 {
		return fmt.Errorf("FACE_MATCH_THRESHOLD must be within [-1, 1], got %.3f", cl.MatchThreshold)
	}
	if cl.MergeMargin <= 0 {
		return fmt.Errorf("FACE_MERGE_MARGIN must be positive so the merge threshold exceeds the match threshold, got %.3f", cl.MergeMargin)
	}
	if cl.MinConfidence < 0 || cl.MinConfidence > 1 {
		return fmt.Errorf("FACE_MIN_CONFIDENCE must be within [0, 1], got %.3f", cl.MinConfidence)
	}
	if cl.MaxRetries < 1 {
		return fmt.Errorf("FACE_MAX_RETRIES must be at least 1, got %d", cl.MaxRetries)
	}
	if cl.RetryBackoff < 0 {
		return fmt.Errorf("FACE_RETRY_BACKOFF must not be negative, got %s", cl.RetryBackoff)
	}
	if cl.DetectConcurrency < 1 {
		return fmt.Errorf("FACE_DETECT_CONCURRENCY must be at least 1, got %d", cl.DetectConcurrency)
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or memory, got %q", c.Database.Driver)
	}
	switch c.Lock.Backend {
	case "local", "redis":
	default:
		return fmt.Errorf("LOCK_BACKEND must be local or redis, got %q", c.Lock.Backend)
	}
	if c.Lock.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("LOCK_BACKEND=redis requires REDIS_ENABLED=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
