package config

import "time"

type Config struct {
	Env           string `yaml:"env" env:"APP_ENV"`
	Host          string `yaml:"host" env:"HOST"`
	Port          int    `yaml:"port" env:"PORT"`
	DataDir       string `yaml:"data_dir" env:"DATA_DIR"`
	StaticDir     string `yaml:"static_dir" env:"STATIC_PATH"`
	RedisURL      string `yaml:"redis_url" env:"REDIS_URL"`
	WatchDataFile bool   `yaml:"watch_data_file" env:"WATCH_DATA_FILE"`

	// UserDataPath mirrors the desktop shell contract: data lives in
	// $USER_DATA_PATH/data when set.
	UserDataPath string `yaml:"-" env:"USER_DATA_PATH"`

	Logger    LoggerConfig    `yaml:"logger"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
	Backups   BackupConfig    `yaml:"backups"`
	Remote    RemoteConfig    `yaml:"remote"`
}

type LoggerConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	RatePerInterval int           `yaml:"rate_per_interval"`
	Interval        time.Duration `yaml:"interval"`
	Burst           int           `yaml:"burst"`
	KeyPrefix       string        `yaml:"key_prefix"`
	BucketTTL       time.Duration `yaml:"bucket_ttl"`
}

// BackupConfig limits the db.backup.*.json files written before imports.
type BackupConfig struct {
	Keep   int           `yaml:"keep" env:"BACKUP_KEEP"`
	MaxAge time.Duration `yaml:"max_age" env:"BACKUP_MAX_AGE"`
}

type ServerConfig struct {
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

type TelemetryConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled" env:"KAFKA_ENABLED"`
	Brokers       []string      `yaml:"brokers" env:"KAFKA_BROKERS"`
	TopicContacts string        `yaml:"topic_contacts"`
	TopicAudit    string        `yaml:"topic_audit"`
	BatchSize     int           `yaml:"batch_size"`
	FlushEvery    time.Duration `yaml:"flush_every"`
	QueueCapacity int           `yaml:"queue_capacity"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// Addr returns host:port for the listener. Port 0 lets the OS pick.
func (c *Config) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// IsDevelopment reports whether verbose defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development" || c.Env == "dev"
}
