package config

import "time"

// WebSocketConfig controls spectator connections on /ws
type WebSocketConfig struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// LoadWebSocketConfig loads spectator connection settings
func LoadWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		PingInterval:   getEnvDuration("WS_PING_INTERVAL", 54*time.Second),
		WriteWait:      getEnvDuration("WS_WRITE_WAIT", 10*time.Second),
		PongWait:       getEnvDuration("WS_PONG_WAIT", 60*time.Second),
		MaxMessageSize: getEnvInt64("WS_MAX_MESSAGE_SIZE", 512),
		SendBuffer:     getEnvInt("WS_SEND_BUFFER", 256),
	}
}
