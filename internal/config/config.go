package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Quiz struct {
		Size          int    `yaml:"size"`
		PerTopicQuota int    `yaml:"perTopicQuota"`
		MaxPasses     int    `yaml:"maxPasses"`
		MaxRandom     int    `yaml:"maxRandom"`
		RankLimit     int    `yaml:"rankLimit"`
		PoolTTL       string `yaml:"poolTTL"`
	} `yaml:"quiz"`
	RapidFire struct {
		Timezone string `yaml:"timezone"`
		ClaimTTL string `yaml:"claimTTL"`
	} `yaml:"rapidFire"`
	Stats struct {
		MaxRetries int `yaml:"maxRetries"`
	} `yaml:"stats"`
	Seed struct {
		File string `yaml:"file"`
	} `yaml:"seed"`
}

// Load reads .env, then the YAML config at path, then environment overrides.
// A missing config file leaves the defaults in place.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("config %s not found, using defaults", path)
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Postgres.URL, "POSTGRES_URL")
	override(&c.Mongo.URI, "MONGO_URI")
	override(&c.AMQP.URL, "RABBITMQ_URI")
	override(&c.AMQP.Exchange, "RABBITMQ_EXCHANGE")
	override(&c.Auth.Secret, "JWT_SECRET")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Location resolves the rapid fire time zone, defaulting to the process zone.
func (c Config) Location() (*time.Location, error) {
	if c.RapidFire.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.RapidFire.Timezone)
}

// PoolTTL is how long a cached level pool lives: quiz.poolTTL, else redis.ttl, else ten minutes.
func (c Config) PoolTTL() time.Duration {
	return TTLDuration(c.Quiz.PoolTTL, TTLDuration(c.Redis.TTL, 10*time.Minute))
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
