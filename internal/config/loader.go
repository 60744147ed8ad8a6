package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost          = "127.0.0.1"
	defaultPort          = 8000
	defaultDataDir       = "data"
	defaultStaticDir     = "web"
	defaultContactsTopic = "rehber.contacts"
	defaultAuditTopic    = "rehber.audit"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig loads configuration from YAML and environment variables.
// A missing file is not an error: the desktop shell starts the server without one.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Port: defaultPort, WatchDataFile: true}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			// Expand environment variables in YAML
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Env = nonEmpty(cfg.Env, "development")
	cfg.Host = nonEmpty(cfg.Host, defaultHost)
	if cfg.Port < 0 {
		cfg.Port = defaultPort
	}

	if cfg.UserDataPath != "" {
		cfg.DataDir = filepath.Join(cfg.UserDataPath, "data")
	}
	cfg.DataDir = nonEmpty(cfg.DataDir, defaultDataDir)
	cfg.StaticDir = nonEmpty(cfg.StaticDir, defaultStaticDir)

	cfg.Logger.Level = nonEmpty(cfg.Logger.Level, "info")
	cfg.Logger.Encoding = nonEmpty(cfg.Logger.Encoding, "console")

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	rl := &cfg.RateLimit
	rl.RatePerInterval = orDefaultInt(rl.RatePerInterval, 120)
	rl.Interval = orDefaultDur(rl.Interval, time.Minute)
	rl.Burst = orDefaultInt(rl.Burst, rl.RatePerInterval)
	rl.KeyPrefix = nonEmpty(rl.KeyPrefix, "rehber:rl")
	rl.BucketTTL = orDefaultDur(rl.BucketTTL, 10*time.Minute)

	srv := &cfg.Server
	srv.ReadTimeout = orDefaultDur(srv.ReadTimeout, 15*time.Second)
	srv.WriteTimeout = orDefaultDur(srv.WriteTimeout, 30*time.Second)
	srv.RequestTimeout = orDefaultDur(srv.RequestTimeout, 30*time.Second)
	srv.ShutdownTimeout = orDefaultDur(srv.ShutdownTimeout, 10*time.Second)
	if srv.MaxUploadBytes <= 0 {
		srv.MaxUploadBytes = 50 << 20
	}

	cfg.Backups.Keep = orDefaultInt(cfg.Backups.Keep, 10)

	k := &cfg.Telemetry.Kafka
	k.TopicContacts = nonEmpty(k.TopicContacts, defaultContactsTopic)
	k.TopicAudit = nonEmpty(k.TopicAudit, defaultAuditTopic)
	k.BatchSize = orDefaultInt(k.BatchSize, 100)
	k.FlushEvery = orDefaultDur(k.FlushEvery, time.Second)
	k.QueueCapacity = orDefaultInt(k.QueueCapacity, 1024)
	k.WriteTimeout = orDefaultDur(k.WriteTimeout, 5*time.Second)
}

func validate(cfg *Config) error {
	if cfg.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	if cfg.Telemetry.Kafka.Enabled && len(cfg.Telemetry.Kafka.Brokers) == 0 {
		return errors.New("config: telemetry.kafka.enabled requires brokers")
	}
	return nil
}

// overrideWithEnv walks the config (nested structs included) and applies
// every field tagged with `env` whose variable is set.
func overrideWithEnv(cfg *Config) error {
	return overrideStruct(reflect.ValueOf(cfg).Elem())
}

func overrideStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if field.Type.Kind() == reflect.Struct && field.Type != durationType {
			if err := overrideStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envKey := field.Tag.Get("env")
		if envKey == "" {
			continue
		}
		envValue, exists := os.LookupEnv(envKey)
		if !exists {
			continue
		}

		switch {
		case field.Type == durationType:
			d, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("env %s: %w", envKey, err)
			}
			fieldVal.SetInt(int64(d))
		case fieldVal.Kind() == reflect.String:
			fieldVal.SetString(envValue)
		case fieldVal.Kind() == reflect.Int, fieldVal.Kind() == reflect.Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(envValue), 10, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", envKey, err)
			}
			fieldVal.SetInt(n)
		case fieldVal.Kind() == reflect.Bool:
			b, err := strconv.ParseBool(envValue)
			if err != nil {
				return fmt.Errorf("env %s: %w", envKey, err)
			}
			fieldVal.SetBool(b)
		case fieldVal.Kind() == reflect.Slice && field.Type.Elem().Kind() == reflect.String:
			parts := strings.Split(envValue, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			fieldVal.Set(reflect.ValueOf(out))
		}
	}
	return nil
}

func nonEmpty(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultDur(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
