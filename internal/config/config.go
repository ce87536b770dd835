package config

import (
	"errors"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Logger   Logger
	Redis    RedisConfig
	SQLite   SQLiteConfig
	S3       S3Config
	Worker   WorkerConfig
	Pipeline PipelineConfig
	Services ServicesConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	JobQueueKey   string
	JobKeyPrefix  string
	LockTTLMin    int
}

type SQLiteConfig struct {
	Path string
}

type S3Config struct {
	Enabled     bool
	Endpoint    string
	Region      string
	AccessKey   string
	SecretKey   string
	TrackBucket string
}

type WorkerConfig struct {
	WorkerCount     int
	MaxCPUUsage     float64
	PollIntervalSec int
}

// PipelineConfig holds the artifact cache and external tool settings.
type PipelineConfig struct {
	CacheDir           string
	MaxCacheBytes      int64
	DownloaderBin      string
	MediaToolBin       string
	ProbeToolBin       string
	DownloadTimeoutSec int
	ToolTimeoutSec     int
	ChunkSeconds       int
}

// ServicesConfig holds the transcription/translation API settings.
type ServicesConfig struct {
	SpeechURL         string
	SpeechModel       string
	TranslateURL      string
	APIKeyFile        string
	RequestTimeoutSec int
	MaxRetries        int
	BatchSize         int
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	SetDefaults(&c)
	return &c, nil
}

// SetDefaults fills the zero-valued knobs so a minimal config file still
// yields a runnable server.
func SetDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Redis.JobQueueKey == "" {
		c.Redis.JobQueueKey = "caption_jobs"
	}
	if c.Redis.JobKeyPrefix == "" {
		c.Redis.JobKeyPrefix = "captions:job:"
	}
	if c.Redis.LockTTLMin == 0 {
		c.Redis.LockTTLMin = 30
	}
	if c.Worker.WorkerCount == 0 {
		c.Worker.WorkerCount = 2
	}
	if c.Worker.MaxCPUUsage == 0 {
		c.Worker.MaxCPUUsage = 80.0
	}
	if c.Worker.PollIntervalSec == 0 {
		c.Worker.PollIntervalSec = 5
	}
	if c.Pipeline.CacheDir == "" {
		c.Pipeline.CacheDir = "cache"
	}
	if c.Pipeline.MaxCacheBytes == 0 {
		c.Pipeline.MaxCacheBytes = 20 << 30
	}
	if c.Pipeline.DownloaderBin == "" {
		c.Pipeline.DownloaderBin = "yt-dlp"
	}
	if c.Pipeline.MediaToolBin == "" {
		c.Pipeline.MediaToolBin = "ffmpeg"
	}
	if c.Pipeline.ProbeToolBin == "" {
		c.Pipeline.ProbeToolBin = "ffprobe"
	}
	if c.Pipeline.DownloadTimeoutSec == 0 {
		c.Pipeline.DownloadTimeoutSec = 600
	}
	if c.Pipeline.ToolTimeoutSec == 0 {
		c.Pipeline.ToolTimeoutSec = 300
	}
	if c.Pipeline.ChunkSeconds == 0 {
		c.Pipeline.ChunkSeconds = 300
	}
	if c.Services.RequestTimeoutSec == 0 {
		c.Services.RequestTimeoutSec = 120
	}
	if c.Services.MaxRetries == 0 {
		c.Services.MaxRetries = 4
	}
	if c.Services.BatchSize == 0 {
		c.Services.BatchSize = 25
	}
	if c.SQLite.Path == "" {
		// The catalog lives next to, not inside, the artifact cache so
		// byte-pressure eviction never removes it.
		c.SQLite.Path = filepath.Join(filepath.Dir(filepath.Clean(c.Pipeline.CacheDir)), "lingocap.db")
	}
}
