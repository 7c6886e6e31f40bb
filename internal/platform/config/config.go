// Package config handles environment-based configuration loading.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTP struct {
		Addr string `default:":8080"`
	}
	Log struct {
		Level string `default:"info"`
	}
	DB struct {
		URL             string        `required:"true"`
		MaxIdleConns    int           `default:"2"`
		MaxOpenConns    int           `default:"10"`
		ConnMaxLifetime time.Duration `default:"1h"`
		ConnMaxIdleTime time.Duration `default:"0"`
		PingTimeout     time.Duration `default:"5s"`
	}
	Redis struct {
		Addr     string        `default:"localhost:6379"`
		Password string        `default:""`
		CacheDB  int           `default:"0"`
		QueueDB  int           `default:"1"`
		Timeout  time.Duration `default:"5s"`
	}
	Geocoder struct {
		BaseURL     string        `default:"https://nominatim.openstreetmap.org"`
		UserAgent   string        `default:"geo-discovery-service/1.0"`
		CountryBias string        `default:""`
		Timeout     time.Duration `default:"10s"`
		CacheSize   int           `default:"1024"`
	}
	Cache struct {
		ListTTL time.Duration `default:"60s"`
	}
	Workers struct {
		Webhook struct {
			Stream   string `default:"location_events"`
			Group    string `default:"webhook_group"`
			Consumer string `default:"webhook_consumer"`
			URL      string `default:"http://localhost:3000/webhook"`
		}
		OutboxRelay struct {
			Stream string `default:"location_events"`
		}
	}
	Security struct {
		APIKey string `default:""`
	}
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("GEO", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
