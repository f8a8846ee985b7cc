package cmd

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/spigell/job-alerter/internal/store"
)

type Config struct {
	Interval        time.Duration  `mapstructure:"interval"`
	Sources         []string       `mapstructure:"sources"`
	FetchLimit      int            `mapstructure:"fetch-limit"`
	RecentJobsLimit int            `mapstructure:"recent-jobs-limit"`
	ItemTimeout     time.Duration  `mapstructure:"item-timeout"`
	LockFile        string         `mapstructure:"lock-file"`
	Database        store.Config   `mapstructure:"database"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	AI              AIConfig       `mapstructure:"ai"`
	Cache           CacheConfig    `mapstructure:"cache"`
	Metrics         MetricsConfig  `mapstructure:"metrics"`
}

type TelegramConfig struct {
	BotToken          string        `mapstructure:"bot-token" json:"-"`
	BotTokenFile      string        `mapstructure:"bot-token-file"`
	APIURL            string        `mapstructure:"api-url"`
	WebURL            string        `mapstructure:"web-url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
}

type AIConfig struct {
	Provider            string             `mapstructure:"provider"`
	MinScore            float64            `mapstructure:"min-score"`
	TopK                int                `mapstructure:"top-k"`
	JobPostThreshold    float64            `mapstructure:"job-post-threshold"`
	FieldThreshold      float64            `mapstructure:"field-threshold"`
	ExperienceThreshold float64            `mapstructure:"experience-threshold"`
	Timeout             time.Duration      `mapstructure:"timeout"`
	RequestsPerSecond   float64            `mapstructure:"requests-per-second"`
	HuggingFace         HuggingFaceConfig  `mapstructure:"huggingface"`
	Gemini              GeminiConfig       `mapstructure:"gemini"`
}

type HuggingFaceConfig struct {
	APIKey     string `mapstructure:"api-key" json:"-"`
	APIKeyFile string `mapstructure:"api-key-file"`
	APIURL     string `mapstructure:"api-url"`
	Model      string `mapstructure:"model"`
	NERModel   string `mapstructure:"ner-model"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CacheConfig struct {
	Backend    string           `mapstructure:"backend"`
	MaxEntries int              `mapstructure:"max-entries"`
	Redis      RedisCacheConfig `mapstructure:"redis"`
}

type RedisCacheConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password" json:"-"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// envBindings maps config keys to the environment variables that may set them.
// The first variable that is set wins.
var envBindings = map[string][]string{
	"interval":                {"JOB_SCRAPE_INTERVAL", "JOB_SCRAPE_INTERVAL_MINUTES"},
	"sources":                 {"TELEGRAM_CHANNELS"},
	"database.driver":         {"DATABASE_DRIVER"},
	"database.dsn":            {"DATABASE_DSN"},
	"telegram.bot-token":      {"TELEGRAM_BOT_TOKEN"},
	"telegram.bot-token-file": {"TELEGRAM_BOT_TOKEN_FILE"},
	"ai.provider":             {"AI_MATCH_PROVIDER"},
	"ai.min-score":            {"AI_MIN_SCORE"},
	"ai.top-k":                {"AI_TOP_K"},
	"ai.huggingface.api-key":  {"HF_API_KEY"},
	"ai.huggingface.model":    {"AI_MODEL_ID"},
	"ai.gemini.api-key":       {"GEMINI_API_KEY"},
	"ai.gemini.api-key-file":  {"GEMINI_API_KEY_FILE"},
	"cache.backend":           {"CACHE_BACKEND"},
	"cache.redis.addr":        {"REDIS_ADDR"},
	"metrics.addr":            {"METRICS_ADDR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", "30m")
	v.SetDefault("fetch-limit", 20)
	v.SetDefault("recent-jobs-limit", 200)
	v.SetDefault("item-timeout", "2m")
	v.SetDefault("lock-file", app+".lock")
	v.SetDefault("database.driver", store.DriverSQLite)
	v.SetDefault("database.dsn", app+".db")
	v.SetDefault("telegram.timeout", "15s")
	v.SetDefault("telegram.requests-per-second", 1)
	v.SetDefault("ai.provider", providerHuggingFace)
	v.SetDefault("ai.min-score", 0.5)
	v.SetDefault("ai.top-k", 5)
	v.SetDefault("ai.job-post-threshold", 0.6)
	v.SetDefault("ai.field-threshold", 0.5)
	v.SetDefault("ai.experience-threshold", 0.4)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.requests-per-second", 2)
	v.SetDefault("cache.backend", cacheMemory)
	v.SetDefault("cache.max-entries", 512)
}

func bindEnv(v *viper.Viper) error {
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("binding %s environment variables: %w", strings.Join(envs, ", "), err)
		}
	}
	return nil
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config, viper.DecodeHook(decodeHook())); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, fmt.Errorf("config is empty")
	}
	return config, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.DecodeHookFuncType(durationHook),
		mapstructure.DecodeHookFuncType(stringListHook),
	)
}

// durationHook accepts Go durations and bare numbers, which are minutes.
func durationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}

	s := strings.TrimSpace(data.(string))
	if s == "" {
		return time.Duration(0), nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(s)
}

// stringListHook accepts a list either as a JSON array or comma separated.
func stringListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return parseList(data.(string))
}

func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}

	var items []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("parse list %q: %w", raw, err)
		}
	} else {
		items = strings.Split(raw, ",")
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
