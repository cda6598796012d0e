// Package config loads the service configuration from a YAML file and
// can watch it for live log-level changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
}

type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ModelConfig struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	Trees     int    `yaml:"trees"`
	MaxDepth  int    `yaml:"max_depth"`
	Seed      int64  `yaml:"seed"`
	CacheSize int    `yaml:"cache_size"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "iris-inference-service"
	}
	if c.Service.Version == "" {
		c.Service.Version = "1.0.0"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 30 * time.Second
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 1 << 20
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Model.Type == "" {
		c.Model.Type = "forest"
	}
	if c.Model.Trees == 0 {
		c.Model.Trees = 100
	}
	if c.Model.MaxDepth == 0 {
		c.Model.MaxDepth = 5
	}
	if c.Model.Seed == 0 {
		c.Model.Seed = 42
	}
	if c.Model.CacheSize == 0 {
		c.Model.CacheSize = 256
	}
}

// Watch re-reads the config file whenever it changes and applies the
// log level to the given atomic level. Only the level is live; every
// other setting needs a restart. The returned func stops the watcher.
func Watch(path string, level zap.AtomicLevel, logger *zap.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := Load(path)
				if err != nil {
					logger.Warn("config reload failed", zap.Error(err))
					continue
				}
				var parsed zapcore.Level
				if err := parsed.Set(reloaded.Log.Level); err != nil {
					logger.Warn("invalid log level in config", zap.String("level", reloaded.Log.Level))
					continue
				}
				if level.Level() != parsed {
					level.SetLevel(parsed)
					logger.Info("log level changed", zap.String("level", parsed.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
