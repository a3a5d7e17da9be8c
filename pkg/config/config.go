// Package config loads the node configuration with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/korthochain/korthoattest/pkg/logger"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override the file, e.g.
// KATTEST_SERVERCONFIG_ADDRESS.
const EnvPrefix = "KATTEST"

type CfgInfo struct {
	LogConfig     *logger.Config `mapstructure:"logconfig"`
	StorageConfig *StorageConfig `mapstructure:"storageconfig"`
	P2PConfig     *P2PConfig     `mapstructure:"p2pconfig"`
	ServerConfig  *ServerConfig  `mapstructure:"serverconfig"`
	NtpConfig     *NtpConfig     `mapstructure:"ntpconfig"`
}

type StorageConfig struct {
	Dir       string `mapstructure:"dir"`
	CacheSize int    `mapstructure:"cachesize"`
}

type P2PConfig struct {
	NodeName      string   `mapstructure:"nodename"`
	AdvertiseAddr string   `mapstructure:"advertiseaddr"`
	Port          int      `mapstructure:"port"`
	JoinMembers   []string `mapstructure:"joinmembers"`
	MessageBuffer int      `mapstructure:"messagebuffer"`
	RateLimit     float64  `mapstructure:"ratelimit"`
	RateBurst     int      `mapstructure:"rateburst"`
}

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	MaxBodySize int    `mapstructure:"maxbodysize"`
}

type NtpConfig struct {
	Enable   bool          `mapstructure:"enable"`
	Servers  []string      `mapstructure:"servers"`
	Interval time.Duration `mapstructure:"interval"`
}

func setDefaults(v *viper.Viper) {
	lc := logger.DefaultConfig()
	v.SetDefault("logconfig.level", lc.Level)
	v.SetDefault("logconfig.filename", lc.FileName)
	v.SetDefault("logconfig.maxsize", lc.MaxSize)
	v.SetDefault("logconfig.maxage", lc.MaxAge)
	v.SetDefault("logconfig.maxbackups", lc.MaxBackups)
	v.SetDefault("logconfig.compress", lc.Compress)
	v.SetDefault("logconfig.stdout", lc.Stdout)

	v.SetDefault("storageconfig.dir", "./data")
	v.SetDefault("storageconfig.cachesize", 1024)

	v.SetDefault("p2pconfig.advertiseaddr", "127.0.0.1")
	v.SetDefault("p2pconfig.port", 7946)
	v.SetDefault("p2pconfig.joinmembers", []string{})
	v.SetDefault("p2pconfig.messagebuffer", 10000)
	v.SetDefault("p2pconfig.ratelimit", 50)
	v.SetDefault("p2pconfig.rateburst", 100)

	v.SetDefault("serverconfig.address", ":8090")
	v.SetDefault("serverconfig.maxbodysize", 4*1024*1024)

	v.SetDefault("ntpconfig.enable", true)
	v.SetDefault("ntpconfig.servers", []string{})
	v.SetDefault("ntpconfig.interval", 30*time.Minute)
}

// LoadConfig load configuration information from the YAML file at path. An empty
// path looks for korthoattest.yaml in ./ and ./config/.
func LoadConfig(path string) (*CfgInfo, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("korthoattest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config/")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg CfgInfo
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.P2PConfig.Port <= 0 || cfg.P2PConfig.Port > 65535 {
		return nil, fmt.Errorf("invalid p2p port %d", cfg.P2PConfig.Port)
	}
	return &cfg, nil
}
