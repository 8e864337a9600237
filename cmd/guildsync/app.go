package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"guildsync/pkg/client"
	"guildsync/pkg/guildsync"
)

const (
	envConfigFile           = "GUILDSYNC_CONFIG_FILE"
	envToken                = "GUILDSYNC_TOKEN"
	defaultConfigFilePath   = "config/guildsync.json"
	alternateConfigFilePath = "bin/config/guildsync.json"
	defaultShutdownTimeout  = 10 * time.Second
)

type appConfig struct {
	logLevel        slog.Level
	token           string
	shutdownTimeout time.Duration

	restBaseURL   string
	maxRetries    int
	retryInterval time.Duration

	gatewayURL           string
	reconnect            bool
	maxReconnectAttempts int
	heartbeatTimeout     time.Duration
	lastMessageID        string

	cacheLimits         guildsync.CacheLimits
	subscriptionBuffer  int
	subscriptionWorkers int
	logKinds            []guildsync.EventKind
}

type fileConfig struct {
	LogLevel        string             `json:"log_level"`
	Token           string             `json:"token"`
	ShutdownTimeout string             `json:"shutdown_timeout"`
	REST            fileRESTConfig     `json:"rest"`
	Gateway         fileGatewayConfig  `json:"gateway"`
	Cache           *fileCacheConfig   `json:"cache"`
	Subscription    fileSubscription   `json:"subscription"`
	Events          fileEventLogConfig `json:"events"`
}

type fileRESTConfig struct {
	BaseURL       string `json:"base_url"`
	MaxRetries    *int   `json:"max_retries"`
	RetryInterval string `json:"retry_interval"`
}

type fileGatewayConfig struct {
	URL                  string `json:"url"`
	Reconnect            *bool  `json:"reconnect"`
	MaxReconnectAttempts *int   `json:"max_reconnect_attempts"`
	HeartbeatTimeout     string `json:"heartbeat_timeout"`
	LastMessageID        string `json:"last_message_id"`
}

type fileCacheConfig struct {
	Servers        int `json:"servers"`
	Channels       int `json:"channels"`
	Users          int `json:"users"`
	Members        int `json:"members"`
	Bans           int `json:"bans"`
	Webhooks       int `json:"webhooks"`
	Messages       int `json:"messages"`
	Docs           int `json:"docs"`
	CalendarEvents int `json:"calendar_events"`
	ForumTopics    int `json:"forum_topics"`
	ListItems      int `json:"list_items"`
}

type fileSubscription struct {
	Buffer  *int `json:"buffer"`
	Workers *int `json:"workers"`
}

type fileEventLogConfig struct {
	Kinds []string `json:"kinds"`
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.logLevel}))
	syncClient, err := buildClient(logger, cfg)
	if err != nil {
		return err
	}
	if _, err := subscribeEventLog(syncClient, logger, cfg.logKinds); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	logger.Info("guildsync connecting", "gateway_url", cfg.gatewayURL)
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()
	if err := syncClient.Close(shutdownCtx); err != nil {
		return fmt.Errorf("close client: %w", err)
	}
	logger.Info("guildsync stopped", "last_message_id", syncClient.LastMessageID())

	return nil
}

func loadConfig() (appConfig, error) {
	cfg := defaultAppConfig()
	configFile, err := resolveConfigFilePath()
	if err != nil {
		return appConfig{}, err
	}

	if err := applyConfigFile(&cfg, configFile); err != nil {
		return appConfig{}, err
	}
	if token := strings.TrimSpace(os.Getenv(envToken)); token != "" {
		cfg.token = token
	}
	if cfg.token == "" {
		return appConfig{}, fmt.Errorf("validate config file %s: token is required (or set %s)", configFile, envToken)
	}

	return cfg, nil
}

func resolveConfigFilePath() (string, error) {
	if configFile := strings.TrimSpace(os.Getenv(envConfigFile)); configFile != "" {
		return configFile, nil
	}

	candidates := []string{defaultConfigFilePath, alternateConfigFilePath}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("config file %s is a directory", candidate)
			}
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}

	return "", fmt.Errorf(
		"config file not found; create %s or %s, or set %s",
		defaultConfigFilePath,
		alternateConfigFilePath,
		envConfigFile,
	)
}

func defaultAppConfig() appConfig {
	return appConfig{
		logLevel:        slog.LevelInfo,
		shutdownTimeout: defaultShutdownTimeout,
		reconnect:       true,
		cacheLimits:     guildsync.DefaultCacheLimits(),
	}
}

func applyConfigFile(cfg *appConfig, path string) error {
	if cfg == nil {
		return fmt.Errorf("apply config file: nil config")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed fileConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if rawLevel := strings.TrimSpace(parsed.LogLevel); rawLevel != "" {
		level, err := parseLogLevel(rawLevel)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		cfg.logLevel = level
	}
	cfg.token = strings.TrimSpace(parsed.Token)
	if err := parsePositiveDuration(parsed.ShutdownTimeout, "shutdown_timeout", &cfg.shutdownTimeout); err != nil {
		return err
	}

	cfg.restBaseURL = strings.TrimSpace(parsed.REST.BaseURL)
	if parsed.REST.MaxRetries != nil {
		if *parsed.REST.MaxRetries < 0 {
			return fmt.Errorf("parse rest.max_retries: must be >= 0")
		}
		cfg.maxRetries = *parsed.REST.MaxRetries
		if cfg.maxRetries == 0 {
			cfg.maxRetries = -1
		}
	}
	if err := parsePositiveDuration(parsed.REST.RetryInterval, "rest.retry_interval", &cfg.retryInterval); err != nil {
		return err
	}

	cfg.gatewayURL = strings.TrimSpace(parsed.Gateway.URL)
	if parsed.Gateway.Reconnect != nil {
		cfg.reconnect = *parsed.Gateway.Reconnect
	}
	if parsed.Gateway.MaxReconnectAttempts != nil {
		if *parsed.Gateway.MaxReconnectAttempts < 0 {
			return fmt.Errorf("parse gateway.max_reconnect_attempts: must be >= 0")
		}
		cfg.maxReconnectAttempts = *parsed.Gateway.MaxReconnectAttempts
	}
	if err := parsePositiveDuration(parsed.Gateway.HeartbeatTimeout, "gateway.heartbeat_timeout", &cfg.heartbeatTimeout); err != nil {
		return err
	}
	cfg.lastMessageID = strings.TrimSpace(parsed.Gateway.LastMessageID)

	if parsed.Cache != nil {
		limits, err := parseCacheLimits(*parsed.Cache)
		if err != nil {
			return err
		}
		cfg.cacheLimits = limits
	}

	if parsed.Subscription.Buffer != nil {
		if *parsed.Subscription.Buffer <= 0 {
			return fmt.Errorf("parse subscription.buffer: must be > 0")
		}
		cfg.subscriptionBuffer = *parsed.Subscription.Buffer
	}
	if parsed.Subscription.Workers != nil {
		if *parsed.Subscription.Workers <= 0 {
			return fmt.Errorf("parse subscription.workers: must be > 0")
		}
		cfg.subscriptionWorkers = *parsed.Subscription.Workers
	}

	cfg.logKinds = make([]guildsync.EventKind, 0, len(parsed.Events.Kinds))
	for index, rawKind := range parsed.Events.Kinds {
		kind := guildsync.EventKind(strings.TrimSpace(rawKind))
		if kind == "" {
			return fmt.Errorf("parse events.kinds[%d]: empty kind", index)
		}
		cfg.logKinds = append(cfg.logKinds, kind)
	}

	return nil
}

func parsePositiveDuration(raw, field string, dst *time.Duration) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", field, err)
	}
	if value <= 0 {
		return fmt.Errorf("parse %s: must be > 0", field)
	}
	*dst = value

	return nil
}

func parseCacheLimits(raw fileCacheConfig) (guildsync.CacheLimits, error) {
	limits := guildsync.CacheLimits{
		Servers:        raw.Servers,
		Channels:       raw.Channels,
		Users:          raw.Users,
		Members:        raw.Members,
		Bans:           raw.Bans,
		Webhooks:       raw.Webhooks,
		Messages:       raw.Messages,
		Docs:           raw.Docs,
		CalendarEvents: raw.CalendarEvents,
		ForumTopics:    raw.ForumTopics,
		ListItems:      raw.ListItems,
	}
	for field, value := range map[string]int{
		"servers": limits.Servers, "channels": limits.Channels, "users": limits.Users,
		"members": limits.Members, "bans": limits.Bans, "webhooks": limits.Webhooks,
		"messages": limits.Messages, "docs": limits.Docs, "calendar_events": limits.CalendarEvents,
		"forum_topics": limits.ForumTopics, "list_items": limits.ListItems,
	} {
		if value < 0 {
			return guildsync.CacheLimits{}, fmt.Errorf("parse cache.%s: must be >= 0", field)
		}
	}

	return limits, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unsupported level %q", raw)
	}
}

func buildClient(logger *slog.Logger, cfg appConfig) (*client.Client, error) {
	opts := []client.Option{
		client.WithLogger(logger),
		client.WithRESTBaseURL(cfg.restBaseURL),
		client.WithGatewayURL(cfg.gatewayURL),
		client.WithRetry(cfg.maxRetries, cfg.retryInterval),
		client.WithReconnect(cfg.reconnect, cfg.maxReconnectAttempts),
		client.WithHeartbeatTimeout(cfg.heartbeatTimeout),
		client.WithLastMessageID(cfg.lastMessageID),
		client.WithCacheLimits(cfg.cacheLimits),
		client.WithSubscriptionDefaults(cfg.subscriptionBuffer, cfg.subscriptionWorkers),
	}

	syncClient, err := client.New(cfg.token, opts...)
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}

	return syncClient, nil
}

// subscribeEventLog logs every event of kinds, or every event when kinds is empty.
func subscribeEventLog(
	syncClient *client.Client,
	logger *slog.Logger,
	kinds []guildsync.EventKind,
) (guildsync.Subscription, error) {
	sub, err := syncClient.Subscribe(context.Background(), guildsync.SubscriptionSpec{
		Name:   "event-log",
		Filter: guildsync.InterestSet{Kinds: kinds},
	}, func(ctx context.Context, event *guildsync.Event) error {
		logger.InfoContext(ctx, "guildsync event", eventLogAttrs(event)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe event log: %w", err)
	}

	return sub, nil
}

func eventLogAttrs(event *guildsync.Event) []any {
	attrs := []any{
		"event_id", event.ID,
		"event", event.Kind,
		"sequence", event.Sequence,
	}
	if event.ServerID != "" {
		attrs = append(attrs, "server_id", event.ServerID)
	}
	if event.ChannelID != "" {
		attrs = append(attrs, "channel_id", event.ChannelID)
	}
	if event.Message != nil {
		attrs = append(attrs, "message_id", event.Message.ID, "author_id", event.Message.CreatedBy)
	}
	if event.Member != nil {
		attrs = append(attrs, "user_id", event.Member.UserID)
	}
	if event.Session != nil {
		attrs = append(attrs, "state", event.Session.State, "attempt", event.Session.Attempt)
		if event.Session.Err != nil {
			attrs = append(attrs, "error", event.Session.Err)
		}
	}

	return attrs
}
