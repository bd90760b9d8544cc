package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Rutero"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"rutero"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	}

	// Depot is the raw address every route starts and ends at. It goes
	// through the same normalization and geocoding cache as any stop.
	Depot struct {
		Address string `envconfig:"DEPOT_ADDRESS" default:"Mendoza 8195, Rosario, Santa Fe, Argentina"`
	}

	Nominatim struct {
		BaseURL   string `envconfig:"NOMINATIM_BASE_URL" default:"https://nominatim.openstreetmap.org"`
		UserAgent string `envconfig:"NOMINATIM_USER_AGENT" default:"rutero/1.0"`
		Region    string `envconfig:"GEOCODE_REGION" default:"Rosario, Santa Fe, Argentina"`
		Country   string `envconfig:"GEOCODE_COUNTRY" default:"ar"`
		// Viewbox biases the first lookup attempt: lon1,lat1,lon2,lat2.
		Viewbox string `envconfig:"GEOCODE_VIEWBOX" default:"-60.80,-33.05,-60.55,-32.85"`
	}

	OSRM struct {
		BaseURL string `envconfig:"OSRM_BASE_URL" default:"https://router.project-osrm.org"`
	}

	Route struct {
		OptimizeBudget time.Duration `envconfig:"ROUTE_OPTIMIZE_BUDGET" default:"2s"`
	}

	Storage struct {
		Endpoint      string `envconfig:"STORAGE_ENDPOINT" default:""`
		Region        string `envconfig:"STORAGE_REGION" default:""`
		Bucket        string `envconfig:"STORAGE_BUCKET" default:"rutero-invoices"`
		AccessKey     string `envconfig:"STORAGE_ACCESS_KEY" default:""`
		SecretKey     string `envconfig:"STORAGE_SECRET_KEY" default:""`
		UsePathStyle  bool   `envconfig:"STORAGE_USE_PATH_STYLE" default:"true"`
		PublicBaseURL string `envconfig:"STORAGE_PUBLIC_BASE_URL" default:""`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
