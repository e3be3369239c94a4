package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	MsgTemplateDir string

	MaxRoomsPerServer int
	ArchiveTTL        time.Duration

	// Outbound buffer per websocket session; full buffer means the slow
	// participant misses the event rather than stalling the room.
	SendQueueSize int
	WriteTimeout  time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:        ":8080",
		MaxRoomsPerServer: 500,
		ArchiveTTL:        24 * time.Hour,
		SendQueueSize:     32,
		WriteTimeout:      5 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("MAX_ROOMS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRoomsPerServer = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ArchiveTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEND_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueueSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WRITE_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.WriteTimeout = d
		}
	}

	if !strings.Contains(cfg.ListenAddr, ":") {
		return nil, errors.New("LISTEN_ADDR must be host:port or :port")
	}

	return cfg, nil
}
