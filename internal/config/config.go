package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Store         StoreConfig
	Tables        TablesConfig
	Query         QueryConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Driver      string
	DSN         string
	PingTimeout time.Duration
}

type TablesConfig struct {
	Customer    string
	Sales       string
	Transaction string
	SampleRows  int
}

type QueryConfig struct {
	ReadOnly bool
}

type ObjectStoreConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type AIConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type ObservabilityConfig struct {
	LogLevel    slog.Level
	LogJSON     bool
	TraceStdout bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("SALESQA_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid SALESQA_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "SALESQA_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "SALESQA_HTTP_ADDR", &cfg.HTTP.Address) },
		func() error { return applyDuration(lookup, "SALESQA_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "SALESQA_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "SALESQA_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "SALESQA_STORE_DRIVER", &cfg.Store.Driver) },
		func() error { return applyString(lookup, "SALESQA_STORE_DSN", &cfg.Store.DSN) },
		func() error { return applyDuration(lookup, "SALESQA_STORE_PING_TIMEOUT", &cfg.Store.PingTimeout) },
		func() error { return applyString(lookup, "SALESQA_TABLE_CUSTOMER", &cfg.Tables.Customer) },
		func() error { return applyString(lookup, "SALESQA_TABLE_SALES", &cfg.Tables.Sales) },
		func() error { return applyString(lookup, "SALESQA_TABLE_TRANSACTION", &cfg.Tables.Transaction) },
		func() error { return applyInt(lookup, "SALESQA_SAMPLE_ROWS", &cfg.Tables.SampleRows) },
		func() error { return applyBool(lookup, "SALESQA_QUERY_READ_ONLY", &cfg.Query.ReadOnly) },
		func() error { return applyBool(lookup, "SALESQA_OBJECTSTORE_ENABLED", &cfg.ObjectStore.Enabled) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey) },
		func() error { return applyBool(lookup, "SALESQA_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "SALESQA_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "SALESQA_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyString(lookup, "SALESQA_AI_PROVIDER", &cfg.AI.Provider) },
		func() error { return applyString(lookup, "SALESQA_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyString(lookup, "SALESQA_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "SALESQA_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "SALESQA_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "SALESQA_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyBool(lookup, "SALESQA_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "SALESQA_LOG_LEVEL", &cfg.Observability.LogLevel) },
		func() error { return applyBool(lookup, "SALESQA_TRACE_STDOUT", &cfg.Observability.TraceStdout) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Store.Driver == "" {
		return Config{}, fmt.Errorf("store driver is required")
	}
	if cfg.Tables.Customer == "" || cfg.Tables.Sales == "" || cfg.Tables.Transaction == "" {
		return Config{}, fmt.Errorf("all three table names are required")
	}
	if cfg.Tables.SampleRows <= 0 {
		return Config{}, fmt.Errorf("invalid SALESQA_SAMPLE_ROWS: must be > 0")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "salesqa-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver:      "sqlite",
			DSN:         "file:salesqa.db",
			PingTimeout: 5 * time.Second,
		},
		Tables: TablesConfig{
			Customer:    "CustomerTable",
			Sales:       "SalesTable",
			Transaction: "TransactionLog",
			SampleRows:  3,
		},
		Query: QueryConfig{
			ReadOnly: false,
		},
		ObjectStore: ObjectStoreConfig{
			Enabled:          false,
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "salesqa",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "exports",
			AutoCreateBucket: true,
		},
		AI: AIConfig{
			Provider:    "gemini",
			Temperature: 0,
			Timeout:     60 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Store.Driver = "sqlserver"
		cfg.Store.DSN = ""
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
