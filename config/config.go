package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type DB struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Bus struct {
	Channel string
}

type Notify struct {
	QueueSize int
}

type Monitor struct {
	TimeoutInterval   time.Duration
	ResyncInterval    time.Duration
	StatsInterval     time.Duration
	RetentionInterval time.Duration
	RetentionDays     int
}

type Config struct {
	LogLevel string
	LogPath  string
	DB       DB
	Redis    Redis
	Bus      Bus
	Notify   Notify
	Monitor  Monitor

	v *viper.Viper
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")
	v.SetDefault("db.host", "127.0.0.1")
	v.SetDefault("db.port", 3306)
	v.SetDefault("db.user", "root")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "satguard")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("bus.channel", "satellite-telemetry")
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("monitor.timeout_interval", "60s")
	v.SetDefault("monitor.resync_interval", "30s")
	v.SetDefault("monitor.stats_interval", "5m")
	v.SetDefault("monitor.retention_interval", "24h")
	v.SetDefault("monitor.retention_days", 7)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := fromViper(v)
	cfg.v = v
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		LogLevel: v.GetString("log.level"),
		LogPath:  v.GetString("log.path"),
		DB: DB{
			Host: v.GetString("db.host"),
			Port: v.GetInt("db.port"),
			User: v.GetString("db.user"),
			Pass: v.GetString("db.pass"),
			Name: v.GetString("db.name"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Bus:    Bus{Channel: v.GetString("bus.channel")},
		Notify: Notify{QueueSize: v.GetInt("notify.queue_size")},
		Monitor: Monitor{
			TimeoutInterval:   v.GetDuration("monitor.timeout_interval"),
			ResyncInterval:    v.GetDuration("monitor.resync_interval"),
			StatsInterval:     v.GetDuration("monitor.stats_interval"),
			RetentionInterval: v.GetDuration("monitor.retention_interval"),
			RetentionDays:     v.GetInt("monitor.retention_days"),
		},
	}
}

// Watch re-reads the file on change and hands the fresh snapshot to
// onChange. Only settings read at use time (log level) take effect
// without a restart.
func (c *Config) Watch(onChange func(*Config)) {
	c.v.OnConfigChange(func(fsnotify.Event) {
		onChange(fromViper(c.v))
	})
	c.v.WatchConfig()
}
