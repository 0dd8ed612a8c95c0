package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	JournalPath       string
	SessionIdleTTL    time.Duration
	EvictInterval     time.Duration
	BooleanDeflection float64
	DefaultQuality    float64
	DisplaySize       float64
}

const configFileKey = "CAD_CONFIG"

// Load загружает конфигурацию из переменных окружения и, если задан
// CAD_CONFIG, из TOML-файла. Переменные окружения важнее файла.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()
	if path := v.GetString(configFileKey); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			log.Printf("[CONFIG] Failed to read %s: %v", path, err)
		}
	}
	return LoadFrom(v)
}

// LoadFrom читает конфигурацию из готового экземпляра viper.
func LoadFrom(v *viper.Viper) *Config {
	setDefaults(v)
	return &Config{
		Port:              v.GetString("PORT"),
		Environment:       v.GetString("ENV"),
		ReadTimeout:       v.GetInt("READ_TIMEOUT"),
		WriteTimeout:      v.GetInt("WRITE_TIMEOUT"),
		JournalPath:       v.GetString("CAD_JOURNAL_PATH"),
		SessionIdleTTL:    v.GetDuration("CAD_SESSION_IDLE_TTL"),
		EvictInterval:     v.GetDuration("CAD_EVICT_INTERVAL"),
		BooleanDeflection: v.GetFloat64("CAD_BOOLEAN_DEFLECTION"),
		DefaultQuality:    v.GetFloat64("CAD_DEFAULT_QUALITY"),
		DisplaySize:       v.GetFloat64("CAD_DISPLAY_SIZE"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("READ_TIMEOUT", 10)
	v.SetDefault("WRITE_TIMEOUT", 10)
	v.SetDefault("CAD_JOURNAL_PATH", "./data/journal.db")
	v.SetDefault("CAD_SESSION_IDLE_TTL", 30*time.Minute)
	v.SetDefault("CAD_EVICT_INTERVAL", time.Minute)
	v.SetDefault("CAD_BOOLEAN_DEFLECTION", 0.1)
	v.SetDefault("CAD_DEFAULT_QUALITY", 0.1)
	v.SetDefault("CAD_DISPLAY_SIZE", 100.0)
}
