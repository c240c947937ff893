package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config - конфигурация сервера (TOML).
// Отсутствующий файл - не ошибка: работаем на дефолтах.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Data       DataConfig       `toml:"data"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type SimulationConfig struct {
	// Интервал реального времени между тиками, миллисекунды
	TickIntervalMS int `toml:"tick_interval_ms"`
	// Сид прогона (пишется в ленту реплея)
	Seed int64 `toml:"seed"`
	// Запись ленты запросов
	RecordReplay bool `toml:"record_replay"`
}

type DataConfig struct {
	// Каталог определений мира (World.yaml, Recipes.yaml, Entities/)
	Dir string `toml:"dir"`
	// Каталог лент реплея
	ReplayDir string `toml:"replay_dir"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Simulation: SimulationConfig{
			TickIntervalMS: 1000,
			Seed:           1,
			RecordReplay:   true,
		},
		Data: DataConfig{
			Dir:       "data",
			ReplayDir: "replays",
		},
	}
}

// Load читает конфиг поверх дефолтов
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Simulation.TickIntervalMS <= 0 {
		return fmt.Errorf("simulation.tick_interval_ms must be positive, got %d", c.Simulation.TickIntervalMS)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}

func (c Config) TickInterval() time.Duration {
	return time.Duration(c.Simulation.TickIntervalMS) * time.Millisecond
}
