package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/submit"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Projects  ProjectsConfig
	Builder   BuilderConfig
	Submit    submit.Config
	Archive   ArchiveConfig
	Watcher   WatcherConfig
}

type ServerConfig struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"oneof=development staging production test"`
	LogLevel string `validate:"oneof=debug info warn warning error"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"gte=0"`
}

type StoreConfig struct {
	Backend     string `validate:"oneof=memory redis postgres"`
	PostgresDSN string `validate:"required_if=Backend postgres"`
	TTL         time.Duration
}

type RateLimitConfig struct {
	SubmitPerHour int `validate:"gte=0"`
}

// ProjectsConfig locates project directories. A project id is a directory
// name under ActiveRoot; ArchiveRoot holds read-only archived projects.
type ProjectsConfig struct {
	ActiveRoot  string `validate:"required"`
	ArchiveRoot string
}

type BuilderConfig struct {
	DefaultDestination string `validate:"oneof=local queue"`
	HalfMapConventions []builder.Convention
}

type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string
	Region          string
	Bucket          string `validate:"required_if=Enabled true"`
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

type WatcherConfig struct {
	Enabled  bool
	Interval time.Duration `validate:"gte=0"`
}

// BuilderOptions converts the builder section into builder.Options.
func (c *Config) BuilderOptions() builder.Options {
	opts := builder.DefaultOptions()
	opts.DefaultDestination = model.Destination(c.Builder.DefaultDestination)
	opts.LocalLauncher = c.Submit.LocalLauncher
	if len(c.Builder.HalfMapConventions) > 0 {
		opts.HalfMapConventions = c.Builder.HalfMapConventions
	}
	return opts
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("POSTGRES_DSN")
	readSecret("ARCHIVE_ACCESS_KEY_ID")
	readSecret("ARCHIVE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("store.backend", "STORE_BACKEND")
	_ = viper.BindEnv("store.postgres_dsn", "POSTGRES_DSN")
	_ = viper.BindEnv("store.ttl", "STORE_TTL")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")
	_ = viper.BindEnv("projects.active_root", "PROJECTS_ACTIVE_ROOT")
	_ = viper.BindEnv("projects.archive_root", "PROJECTS_ARCHIVE_ROOT")
	_ = viper.BindEnv("builder.default_destination", "DEFAULT_DESTINATION")
	_ = viper.BindEnv("submit.local_launcher", "LOCAL_MPI_LAUNCHER")
	_ = viper.BindEnv("submit.container.runtime", "CONTAINER_RUNTIME")
	_ = viper.BindEnv("submit.container.image", "CONTAINER_IMAGE")
	_ = viper.BindEnv("submit.container.binds", "CONTAINER_BINDS")
	_ = viper.BindEnv("submit.queue.submit_command", "QUEUE_SUBMIT_COMMAND")
	_ = viper.BindEnv("submit.queue.cancel_command", "QUEUE_CANCEL_COMMAND")
	_ = viper.BindEnv("submit.queue.partition", "QUEUE_PARTITION")
	_ = viper.BindEnv("submit.queue.extra_args", "QUEUE_EXTRA_ARGS")
	_ = viper.BindEnv("submit.queue.mpi_launcher", "QUEUE_MPI_LAUNCHER")
	_ = viper.BindEnv("submit.queue.id_pattern", "QUEUE_ID_PATTERN")
	_ = viper.BindEnv("submit.queue.cache_env", "QUEUE_CACHE_ENV")
	_ = viper.BindEnv("submit.queue.cache_dir", "QUEUE_CACHE_DIR")
	_ = viper.BindEnv("archive.enabled", "ARCHIVE_ENABLED")
	_ = viper.BindEnv("archive.endpoint", "ARCHIVE_ENDPOINT")
	_ = viper.BindEnv("archive.region", "ARCHIVE_REGION")
	_ = viper.BindEnv("archive.bucket", "ARCHIVE_BUCKET")
	_ = viper.BindEnv("archive.prefix", "ARCHIVE_PREFIX")
	_ = viper.BindEnv("archive.access_key_id", "ARCHIVE_ACCESS_KEY_ID")
	_ = viper.BindEnv("archive.secret_access_key", "ARCHIVE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("watcher.enabled", "WATCHER_ENABLED")
	_ = viper.BindEnv("watcher.interval", "WATCHER_INTERVAL")

	// Defaults
	def := submit.DefaultConfig()
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("store.backend", "memory")
	viper.SetDefault("store.ttl", 0)
	viper.SetDefault("ratelimit.submit_per_hour", 120)
	viper.SetDefault("projects.active_root", "/data/projects")
	viper.SetDefault("projects.archive_root", "")
	viper.SetDefault("builder.default_destination", string(model.DestinationLocal))
	viper.SetDefault("submit.local_launcher", def.LocalLauncher)
	viper.SetDefault("submit.container.runtime", def.Container.Runtime)
	viper.SetDefault("submit.queue.submit_command", def.Queue.SubmitCommand)
	viper.SetDefault("submit.queue.cancel_command", def.Queue.CancelCommand)
	viper.SetDefault("submit.queue.mpi_launcher", def.Queue.MPILauncher)
	viper.SetDefault("submit.queue.id_pattern", def.Queue.IDPattern)
	viper.SetDefault("submit.queue.cache_env", def.Queue.CacheEnv)
	viper.SetDefault("archive.enabled", false)
	viper.SetDefault("archive.region", "us-east-1")
	viper.SetDefault("archive.prefix", "job-logs")
	viper.SetDefault("watcher.enabled", true)
	viper.SetDefault("watcher.interval", 30*time.Second)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Store: StoreConfig{
			Backend:     viper.GetString("store.backend"),
			PostgresDSN: viper.GetString("store.postgres_dsn"),
			TTL:         viper.GetDuration("store.ttl"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
		},
		Projects: ProjectsConfig{
			ActiveRoot:  viper.GetString("projects.active_root"),
			ArchiveRoot: viper.GetString("projects.archive_root"),
		},
		Builder: BuilderConfig{
			DefaultDestination: viper.GetString("builder.default_destination"),
		},
		Submit: submit.Config{
			LocalLauncher: viper.GetString("submit.local_launcher"),
			Container: submit.ContainerConfig{
				Runtime: viper.GetString("submit.container.runtime"),
				Image:   viper.GetString("submit.container.image"),
				Binds:   viper.GetStringSlice("submit.container.binds"),
			},
			Queue: submit.QueueConfig{
				SubmitCommand: viper.GetString("submit.queue.submit_command"),
				CancelCommand: viper.GetString("submit.queue.cancel_command"),
				Partition:     viper.GetString("submit.queue.partition"),
				ExtraArgs:     viper.GetString("submit.queue.extra_args"),
				MPILauncher:   viper.GetString("submit.queue.mpi_launcher"),
				IDPattern:     viper.GetString("submit.queue.id_pattern"),
				CacheEnv:      viper.GetString("submit.queue.cache_env"),
				CacheDir:      viper.GetString("submit.queue.cache_dir"),
			},
		},
		Archive: ArchiveConfig{
			Enabled:         viper.GetBool("archive.enabled"),
			Endpoint:        viper.GetString("archive.endpoint"),
			Region:          viper.GetString("archive.region"),
			Bucket:          viper.GetString("archive.bucket"),
			Prefix:          viper.GetString("archive.prefix"),
			AccessKeyID:     viper.GetString("archive.access_key_id"),
			SecretAccessKey: viper.GetString("archive.secret_access_key"),
		},
		Watcher: WatcherConfig{
			Enabled:  viper.GetBool("watcher.enabled"),
			Interval: viper.GetDuration("watcher.interval"),
		},
	}

	if viper.IsSet("builder.half_map_conventions") {
		if err := viper.UnmarshalKey("builder.half_map_conventions", &cfg.Builder.HalfMapConventions); err != nil {
			return nil, fmt.Errorf("builder.half_map_conventions: %w", err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
