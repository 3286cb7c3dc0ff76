package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Chat   ChatConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Chat:   chat,
		Log:    LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr          string
	AllowedOrigin string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origin := getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*")

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigin: origin}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigin: origin}, nil
}

// ChatConfig 描述聊天小组件的节奏与会话回收。
type ChatConfig struct {
	ReplyDelay      time.Duration
	OpenScrollDelay time.Duration
	SessionIdleTTL  time.Duration
	SweepInterval   time.Duration
	RulesFile       string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

func loadChatConfig() (ChatConfig, error) {
	replyDelay, err := parseDurationEnv("CHAT_REPLY_DELAY", 1500*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}

	scrollDelay, err := parseDurationEnv("CHAT_OPEN_SCROLL_DELAY", 300*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}

	idleTTL, err := parseDurationEnv("CHAT_SESSION_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}

	sweep, err := parseDurationEnv("CHAT_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{
		ReplyDelay:      replyDelay,
		OpenScrollDelay: scrollDelay,
		SessionIdleTTL:  idleTTL,
		SweepInterval:   sweep,
		RulesFile:       strings.TrimSpace(os.Getenv("CHAT_RULES_FILE")),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseDurationEnv accepts Go durations ("1.5s") or plain milliseconds ("1500").
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}
