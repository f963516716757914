package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Console   ConsoleConfig   `mapstructure:"console" yaml:"console"`
	Download  DownloadConfig  `mapstructure:"download" yaml:"download"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`

	// Port is shared by the client and the content server.
	Port int `mapstructure:"port" yaml:"port"`
}

type DiscoveryConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Policy      string        `mapstructure:"policy" yaml:"policy"` // first | all
	AnnounceTTL time.Duration `mapstructure:"announce_ttl" yaml:"announce_ttl"`
}

// ConsoleConfig is the identity used when announcing.
type ConsoleConfig struct {
	Name    string `mapstructure:"name" yaml:"name"`
	ID      string `mapstructure:"id" yaml:"id"`
	Address string `mapstructure:"address" yaml:"address"`
}

type DownloadConfig struct {
	OutDir    string `mapstructure:"out_dir" yaml:"out_dir"`
	ChunkSize int64  `mapstructure:"chunk_size" yaml:"chunk_size"`
}

type ServerConfig struct {
	ContentDir string `mapstructure:"content_dir" yaml:"content_dir"`
	Manifest   string `mapstructure:"manifest" yaml:"manifest"`
	DriveID    string `mapstructure:"drive_id" yaml:"drive_id"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	// DSN is a SQLite file path or a postgres:// URL. Empty disables history.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

const (
	PolicyFirst = "first"
	PolicyAll   = "all"
)

// Load reads the YAML file at path, applies GOCOL_ environment overrides and
// finally any flags that were set on the command line. flags maps config keys
// to the flag overriding them. An empty path falls back to ./config.yaml and
// then to defaults only.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	// Set Defaults
	v.SetDefault("port", 10248)
	v.SetDefault("discovery.timeout", 60*time.Second)
	v.SetDefault("discovery.policy", PolicyFirst)
	v.SetDefault("discovery.announce_ttl", 5*time.Minute)
	v.SetDefault("console.name", "XBOXTEST")
	v.SetDefault("console.id", "X1234")
	v.SetDefault("console.address", "")
	v.SetDefault("download.out_dir", "./downloads")
	v.SetDefault("download.chunk_size", 4*1024*1024)
	v.SetDefault("server.content_dir", "./content")
	v.SetDefault("server.manifest", "")
	v.SetDefault("server.drive_id", "A89ECE52-7E8E-444F-BBD0-C68B76C2ECA4")
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.dsn", "gocol.db")
	v.SetDefault("cache.dir", "./cache")

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("GOCOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if c.Download.ChunkSize <= 0 {
		return errors.New("download.chunk_size must be positive")
	}

	if c.Discovery.Timeout <= 0 {
		return errors.New("discovery.timeout must be positive")
	}

	switch strings.ToLower(c.Discovery.Policy) {
	case PolicyFirst, PolicyAll:
		c.Discovery.Policy = strings.ToLower(c.Discovery.Policy)
	default:
		return fmt.Errorf("discovery.policy must be %q or %q, got %q", PolicyFirst, PolicyAll, c.Discovery.Policy)
	}

	if c.Console.Address != "" {
		if ip := net.ParseIP(c.Console.Address); ip == nil || ip.To4() == nil {
			return fmt.Errorf("console.address %q is not an IPv4 address", c.Console.Address)
		}
	}

	if _, err := uuid.Parse(c.Server.DriveID); err != nil {
		return fmt.Errorf("server.drive_id: %w", err)
	}

	if c.Download.OutDir == "" {
		c.Download.OutDir = "./downloads"
	}

	return nil
}
