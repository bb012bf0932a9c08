// Package config is the broker's JSON-backed configuration record.
// The broker core itself never reads config.json — only the
// cmd/stompd binary does.
package config

import (
	"encoding/json"
	"errors"
	"os"
)

// Config enumerates the broker runtime options. The broker persists
// nothing itself.
type Config struct {
	Server                 string         `json:"server"`
	ServerName             string         `json:"server_name"`
	Path                   string         `json:"path"`
	Heartbeat              [2]int         `json:"heartbeat"`
	HeartbeatErrorMarginMS int            `json:"heartbeat_error_margin_ms"`
	DebugMode              bool           `json:"debug_mode"`
	Protocol               string         `json:"protocol"`
	ProtocolConfig         map[string]any `json:"protocol_config"`
}

// defaultConfig holds the built-in defaults.
func defaultConfig() Config {
	return Config{
		ServerName:             "STOMP-JS/1.1",
		Path:                   "/stomp",
		Heartbeat:              [2]int{10000, 10000},
		HeartbeatErrorMarginMS: 1000,
		Protocol:               "ws",
	}
}

var config = defaultConfig()
var initialized = false

func ReadConfig() (Config, error) {
	bytes, err := os.ReadFile("config.json")

	if err != nil {
		cfg := defaultConfig()
		writer, _ := os.OpenFile("config.json", os.O_RDONLY|os.O_CREATE, 0777)
		data, _ := json.MarshalIndent(cfg, "", "\t")
		_, _ = writer.Write(data)
		_ = writer.Close()
		return cfg, errors.New("the configuration file does not exist and has been created. Please try again after editing the configuration file")
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return cfg, errors.New("the configuration file does not contain valid JSON")
	}

	config = cfg
	initialized = true
	return config, nil
}

func GetConfig() (Config, error) {
	if initialized {
		return config, nil
	}
	return ReadConfig()
}
