package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type PlanConfig struct {
	// ProviderPlanID is the Razorpay plan the checkout is created against.
	ProviderPlanID string  `yaml:"provider_plan_id"`
	Price          float64 `yaml:"price"`
	Currency       string  `yaml:"currency"`
}

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	// App.PublicOrigin is used to build the post-checkout callback URLs.
	App struct {
		PublicOrigin string `yaml:"public_origin"`
	} `yaml:"app"`

	Auth struct {
		// JWTSecret is shared with the external identity provider.
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Razorpay struct {
		KeyID         string `yaml:"key_id"`
		KeySecret     string `yaml:"key_secret"`
		WebhookSecret string `yaml:"webhook_secret"`
		BaseURL       string `yaml:"base_url"`
	} `yaml:"razorpay"`

	Gemini struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"gemini"`

	// Plans maps plan type (week/month/year) to its provider plan and price.
	Plans map[string]PlanConfig `yaml:"plans"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`
}

var AppConfig *Config

// LoadConfig loads config.yaml and lets environment variables override the
// secrets and connection settings. A .env file is honored when present.
func LoadConfig() {
	_ = godotenv.Load()

	var cfg Config

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	if f, err := os.Open(configPath); err == nil {
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			f.Close()
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}
		f.Close()
	} else if os.Getenv("DATABASE_URL") == "" {
		// Without a config file the env must carry at least the DSN.
		log.Fatalf("Failed to open config file at %s: %v", configPath, err)
	}

	overrideString(&cfg.Database.DSN, "DATABASE_URL")
	overrideString(&cfg.Server.Env, "SERVER_ENV")
	overrideInt(&cfg.Server.Port, "SERVER_PORT")
	overrideString(&cfg.App.PublicOrigin, "APP_PUBLIC_ORIGIN")
	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideString(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	overrideString(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")
	overrideString(&cfg.Razorpay.WebhookSecret, "RAZORPAY_WEBHOOK_SECRET")
	overrideString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.Gemini.Model, "GEMINI_MODEL")

	applyDefaults(&cfg)

	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Razorpay.BaseURL == "" {
		cfg.Razorpay.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-flash"
	}
	if cfg.App.PublicOrigin == "" {
		cfg.App.PublicOrigin = "http://localhost:3000"
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
