package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret           string `yaml:"secret"`
	AccessTTLMinutes int    `yaml:"access_ttl_minutes"`
	RefreshTTLDays   int    `yaml:"refresh_ttl_days"`
}

func (c JWTConfig) AccessTTL() time.Duration  { return time.Duration(c.AccessTTLMinutes) * time.Minute }
func (c JWTConfig) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// EskizConfig — доступ к SMS-шлюзу Eskiz.
type EskizConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`    // nickname отправителя
	DryRun   bool   `yaml:"dry_run"` // dry-run режим (без реальных отправок)
}

// UpayConfig — доступ к платежному шлюзу UPAY (STAPI).
type UpayConfig struct {
	URL        string `yaml:"url"`
	PartnerKey string `yaml:"partner_key"`
	Login      string `yaml:"login"`
	Password   string `yaml:"password"`
	ServiceID  string `yaml:"service_id"`
}

type SecurityConfig struct {
	APIKey      string `yaml:"api_key"`       // ключ для создания суперпользователей
	CardHashKey string `yaml:"card_hash_key"` // ключ HMAC для дедупликации карт
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Eskiz    EskizConfig    `yaml:"eskiz"`
	Upay     UpayConfig     `yaml:"upay"`
	Security SecurityConfig `yaml:"security"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	if cfg.JWT.AccessTTLMinutes == 0 {
		cfg.JWT.AccessTTLMinutes = 60
	}
	if cfg.JWT.RefreshTTLDays == 0 {
		cfg.JWT.RefreshTTLDays = 180
	}
	if cfg.Upay.URL == "" {
		cfg.Upay.URL = "https://api.upay.uz/STAPI/STWS?wsdl"
	}
	return &cfg
}
