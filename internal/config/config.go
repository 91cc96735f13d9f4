package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the service.
// Tags used:
// - mapstructure: environment key read by viper
// - default: value used when the key is missing
// - required: if "true", Load fails when the value is empty
type AppConfig struct {
	Environment string `mapstructure:"APP_ENV" default:"development"`
	LogLevel    string `mapstructure:"LOG_LEVEL" default:"info"`
	Port        int    `mapstructure:"PORT" default:"8080"`
	// Store selects the persistence backend: "postgres" or "memory".
	Store    string `mapstructure:"STORE" default:"postgres"`
	SeedPath string `mapstructure:"SEED_PATH" default:"data/seeds/network.json"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS" default:"*"`

	Database DatabaseConfig `mapstructure:",squash"`
	Redis    RedisConfig    `mapstructure:",squash"`
	ORS      ORSConfig      `mapstructure:",squash"`
	Planning PlanningConfig `mapstructure:",squash"`
	Shipment ShipmentConfig `mapstructure:",squash"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"DATABASE_URL"`
}

type RedisConfig struct {
	URL string `mapstructure:"REDIS_URL" default:"redis://localhost:6379/0"`
}

// ORSConfig holds the OpenRouteService credentials used for geocoding and routing.
type ORSConfig struct {
	APIKey  string        `mapstructure:"ORS_API_KEY" required:"true"`
	BaseURL string        `mapstructure:"ORS_BASE_URL" default:"https://api.openrouteservice.org"`
	Profile string        `mapstructure:"ORS_PROFILE" default:"driving-hgv"`
	Timeout time.Duration `mapstructure:"ORS_TIMEOUT" default:"8s"`
	// Country restricts geocoding results (ISO 3166-1 alpha-2). Empty means worldwide.
	Country string `mapstructure:"GEOCODE_COUNTRY"`
}

// PlanningConfig tunes route-option synthesis and pricing.
type PlanningConfig struct {
	AverageSpeedKmh      float64       `mapstructure:"AVERAGE_SPEED_KMH" default:"60"`
	DetourBudgetKm       float64       `mapstructure:"DETOUR_BUDGET_KM" default:"150"`
	MaxDepositCandidates int           `mapstructure:"MAX_DEPOSIT_CANDIDATES" default:"5"`
	DistanceConcurrency  int           `mapstructure:"DISTANCE_CONCURRENCY" default:"4"`
	OptionTTL            time.Duration `mapstructure:"OPTION_TTL" default:"30m"`
	TariffCacheTTL       time.Duration `mapstructure:"TARIFF_CACHE_TTL" default:"5m"`
}

// ShipmentConfig configures the shipment-completion notification transport.
type ShipmentConfig struct {
	// Notifier is "http" or "redis".
	Notifier           string        `mapstructure:"SHIPMENT_NOTIFIER" default:"http"`
	ServiceURL         string        `mapstructure:"SHIPMENT_SERVICE_URL" default:"http://localhost:8081"`
	Timeout            time.Duration `mapstructure:"SHIPMENT_SERVICE_TIMEOUT" default:"5s"`
	Stream             string        `mapstructure:"SHIPMENT_STREAM" default:"shipment-completions"`
	RetryQueue         string        `mapstructure:"CASCADE_RETRY_QUEUE" default:"cascade-retry"`
	RetryInterval      time.Duration `mapstructure:"CASCADE_RETRY_INTERVAL" default:"30s"`
	RetryMaxAttempts   int           `mapstructure:"CASCADE_RETRY_MAX_ATTEMPTS" default:"10"`
	ServiceBearerToken string        `mapstructure:"SHIPMENT_SERVICE_TOKEN"`
}

// Load reads an optional .env file from path and the process environment.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if config.Store == "postgres" && config.Database.URL == "" {
		return nil, fmt.Errorf("missing required configuration: DATABASE_URL")
	}

	return &config, nil
}

// processTags binds every tagged key and registers its default.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			if err := v.BindEnv(key); err != nil {
				return fmt.Errorf("bind env %s: %w", key, err)
			}
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks that fields marked as required are non-zero.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		if field.Tag.Get("required") == "true" && isZero(val.Field(i)) {
			return fmt.Errorf("missing required configuration: %s", field.Tag.Get("mapstructure"))
		}
	}
	return nil
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
