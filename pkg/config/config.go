package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Separator       SeparatorConfig       `mapstructure:"separator"`
	Downloader      DownloaderConfig      `mapstructure:"downloader"`
	FFmpeg          FFmpegConfig          `mapstructure:"ffmpeg"`
	Analyzer        AnalyzerConfig        `mapstructure:"analyzer"`
	Worker          WorkerConfig          `mapstructure:"worker"`
	Catalog         CatalogConfig         `mapstructure:"catalog"`
	Log             LogConfig             `mapstructure:"log"`
	Redis           RedisConfig           `mapstructure:"redis"`
	Kafka           KafkaConfig           `mapstructure:"kafka"`
	Minio           MinioConfig           `mapstructure:"minio"`
	ServiceRegistry ServiceRegistryConfig `mapstructure:"service_registry"`
	Etcd            EtcdConfig            `mapstructure:"etcd"`
	Profiling       ProfilingConfig       `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxUploadSizeMB int64         `mapstructure:"max_upload_size_mb"`
}

// DatabaseConfig 数据库配置，driver 为 sqlite 或 mysql
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig 本地目录布局
type StorageConfig struct {
	UploadDir  string `mapstructure:"upload_dir"`
	OutputDir  string `mapstructure:"output_dir"`
	SamplesDir string `mapstructure:"samples_dir"`
	LoopsDir   string `mapstructure:"loops_dir"`
}

// SeparatorConfig 音源分离工具配置
type SeparatorConfig struct {
	BinaryPath    string        `mapstructure:"binary_path"`
	ModelPrefix   string        `mapstructure:"model_prefix"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DownloaderConfig 远程音频下载配置
type DownloaderConfig struct {
	BinaryPath   string        `mapstructure:"binary_path"`
	AudioFormat  string        `mapstructure:"audio_format"`
	AudioQuality string        `mapstructure:"audio_quality"`
	Timeout      time.Duration `mapstructure:"timeout"`
	// CacheTTL fetch 结果按 URL 缓存的时长，0 表示不缓存
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// FFmpegConfig FFmpeg相关配置
type FFmpegConfig struct {
	BinaryPath  string        `mapstructure:"binary_path"`
	ProbePath   string        `mapstructure:"probe_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	StderrLines int           `mapstructure:"stderr_lines"`
}

// AnalyzerConfig 节拍分析命令配置
type AnalyzerConfig struct {
	TempoCommand string        `mapstructure:"tempo_command"`
	TempoArgs    []string      `mapstructure:"tempo_args"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// WorkerConfig 流水线 worker 配置
type WorkerConfig struct {
	PipelineWorkers     int           `mapstructure:"pipeline_workers"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// CatalogConfig 目录对账配置
type CatalogConfig struct {
	ReconcileOnStartup bool `mapstructure:"reconcile_on_startup"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	JobTTL       time.Duration `mapstructure:"job_ttl"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	BootstrapServers []string          `mapstructure:"bootstrap_servers"`
	ClientID         string            `mapstructure:"client_id"`
	Enabled          bool              `mapstructure:"enabled"`
	Topics           KafkaTopicsConfig `mapstructure:"topics"`
}

type KafkaTopicsConfig struct {
	JobEvents string `mapstructure:"job_events"`
}

// MinioConfig MinIO配置
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// ServiceRegistryConfig registration configuration.
type ServiceRegistryConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ServiceName     string        `mapstructure:"service_name"`
	ServiceID       string        `mapstructure:"service_id"`
	RegisterHost    string        `mapstructure:"register_host"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// EtcdConfig etcd client configuration.
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// ProfilingConfig pyroscope 持续性能分析
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
}

// ResolvePath 根据环境变量决定配置文件路径
//
// CONFIG_PATH 优先，其次 CONFIG_ENV 对应 configs/config.<env>.yaml，默认 configs/config.yaml
func ResolvePath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if env := os.Getenv("CONFIG_ENV"); env != "" {
		return filepath.Join("configs", fmt.Sprintf("config.%s.yaml", env))
	}
	return filepath.Join("configs", "config.yaml")
}

// Load 加载配置，配置文件不存在时使用默认值
func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	// 设置环境变量前缀
	v.SetEnvPrefix("STEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	// 解析配置
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	config.normalize()

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "stems.db")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.output_dir", "output")
	v.SetDefault("storage.samples_dir", "samples")
	v.SetDefault("storage.loops_dir", "loops")
	v.SetDefault("separator.binary_path", "spleeter")
	v.SetDefault("separator.model_prefix", "spleeter")
	v.SetDefault("downloader.binary_path", "yt-dlp")
	v.SetDefault("downloader.audio_format", "mp3")
	v.SetDefault("downloader.audio_quality", "192")
	v.SetDefault("ffmpeg.binary_path", "ffmpeg")
	v.SetDefault("ffmpeg.probe_path", "ffprobe")
	v.SetDefault("analyzer.tempo_command", "aubio")
	v.SetDefault("analyzer.tempo_args", []string{"tempo"})
	v.SetDefault("catalog.reconcile_on_startup", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("kafka.client_id", "stem-service")
	v.SetDefault("kafka.topics.job_events", "stem.jobs")
	v.SetDefault("minio.bucket_name", "stems")
	v.SetDefault("service_registry.service_name", "stem-service")
	v.SetDefault("redis.key_prefix", "stem:job:")
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	if c.Server.Port <= 0 {
		c.Server.Port = 8000
	}
	if c.Server.MaxUploadSizeMB <= 0 {
		c.Server.MaxUploadSizeMB = 512
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}

	// Worker相关默认值
	if c.Worker.PipelineWorkers <= 0 {
		c.Worker.PipelineWorkers = 2
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.PipelineWorkers * 10
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}
	if c.Separator.MaxConcurrent <= 0 {
		c.Separator.MaxConcurrent = 1
	}
	if c.Separator.Timeout == 0 {
		c.Separator.Timeout = time.Hour
	}
	if c.Downloader.Timeout == 0 {
		c.Downloader.Timeout = 10 * time.Minute
	}
	if c.Downloader.CacheTTL < 0 {
		c.Downloader.CacheTTL = 0
	}
	if c.FFmpeg.Timeout == 0 {
		c.FFmpeg.Timeout = 5 * time.Minute
	}
	if c.FFmpeg.StderrLines <= 0 {
		c.FFmpeg.StderrLines = 20
	}
	if c.Analyzer.Timeout == 0 {
		c.Analyzer.Timeout = 2 * time.Minute
	}

	if c.Redis.JobTTL == 0 {
		c.Redis.JobTTL = 24 * time.Hour
	}
	if len(c.Kafka.BootstrapServers) == 0 {
		c.Kafka.BootstrapServers = []string{"localhost:29092"}
	}
	if c.ServiceRegistry.TTL == 0 {
		c.ServiceRegistry.TTL = 30 * time.Second
	}
	if c.ServiceRegistry.RefreshInterval == 0 {
		c.ServiceRegistry.RefreshInterval = 10 * time.Second
	}
	if len(c.Etcd.Endpoints) == 0 {
		c.Etcd.Endpoints = []string{"localhost:2379"}
	}
	if c.Etcd.DialTimeout == 0 {
		c.Etcd.DialTimeout = 5 * time.Second
	}
}

// GetDSN 获取MySQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// GetRedisAddr 获取Redis地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取HTTP监听地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
