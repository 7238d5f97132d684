package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	OSVBaseURL     = "https://api.osv.dev/v1"
	DepsDevBaseURL = "https://api.deps.dev/v3alpha"

	DefaultMaxConcurrent = 10
	DefaultHTTPTimeout   = 10 * time.Second
	DefaultSQLitePath    = "./data/app.db"
	DefaultPort          = "8080"
	DefaultCacheTTL      = 24 * time.Hour
	DefaultRefreshCron   = "0 0 * * *"
	DefaultCORSOrigin    = "http://localhost:5173"

	EnvPrefix = "MVN_AUDIT"
)

type Settings struct {
	OSVBaseURL     string
	DepsDevBaseURL string
	MaxConcurrent  int
	HTTPTimeout    time.Duration

	SQLitePath     string
	Port           string
	CacheTTL       time.Duration
	InitialRefresh bool
	DailyRefresh   bool
	RefreshCron    string
	CORSOrigins    []string
}

// aliases keeps the bare variable names working next to the prefixed ones.
var aliases = map[string]string{
	"sqlite_path":     "SQLITE_PATH",
	"port":            "PORT",
	"initial_refresh": "WITH_INITIAL_DATA_REFRESH",
	"daily_refresh":   "WITH_DAILY_DATA_REFRESH",
}

// Load reads settings from defaults, an optional YAML file, .env and the
// environment, in increasing order of precedence. An explicit cfgFile must
// exist; otherwise ./mvn-audit.yaml is used when present.
func Load(cfgFile string) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("osv_base_url", OSVBaseURL)
	v.SetDefault("depsdev_base_url", DepsDevBaseURL)
	v.SetDefault("max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)
	v.SetDefault("sqlite_path", DefaultSQLitePath)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("initial_refresh", false)
	v.SetDefault("daily_refresh", false)
	v.SetDefault("refresh_cron", DefaultRefreshCron)
	v.SetDefault("cors_origins", []string{DefaultCORSOrigin})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range aliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), alias); err != nil {
			return nil, err
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("mvn-audit")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	s := &Settings{
		OSVBaseURL:     v.GetString("osv_base_url"),
		DepsDevBaseURL: v.GetString("depsdev_base_url"),
		MaxConcurrent:  v.GetInt("max_concurrent"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		SQLitePath:     v.GetString("sqlite_path"),
		Port:           v.GetString("port"),
		CacheTTL:       v.GetDuration("cache_ttl"),
		InitialRefresh: v.GetBool("initial_refresh"),
		DailyRefresh:   v.GetBool("daily_refresh"),
		RefreshCron:    v.GetString("refresh_cron"),
		CORSOrigins:    v.GetStringSlice("cors_origins"),
	}
	if s.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max_concurrent must be positive, got %d", s.MaxConcurrent)
	}

	return s, nil
}
