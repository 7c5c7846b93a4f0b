package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Port        string
	Environment string

	Store       string
	DatabaseURL string

	CarSpots  int
	BikeSpots int

	CarRatePerHour    decimal.Decimal
	BikeRatePerHour   decimal.Decimal
	FreeGracePeriod   time.Duration
	ReturningDiscount decimal.Decimal

	OTelServiceName string
	OTelEndpoint    string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Store:           getEnv("STORE", StoreMemory),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", parking.DefaultServiceName),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", parking.DefaultOTLPEndpoint),
	}

	var err error
	if cfg.CarSpots, err = getInt("CAR_SPOTS", 3); err != nil {
		return nil, err
	}
	if cfg.BikeSpots, err = getInt("BIKE_SPOTS", 2); err != nil {
		return nil, err
	}
	if cfg.CarRatePerHour, err = getDecimal("CAR_RATE_PER_HOUR", "1.5"); err != nil {
		return nil, err
	}
	if cfg.BikeRatePerHour, err = getDecimal("BIKE_RATE_PER_HOUR", "1.0"); err != nil {
		return nil, err
	}
	if cfg.ReturningDiscount, err = getDecimal("RETURNING_DISCOUNT", "0.05"); err != nil {
		return nil, err
	}

	grace := getEnv("FREE_GRACE_PERIOD", "30m")
	if cfg.FreeGracePeriod, err = time.ParseDuration(grace); err != nil {
		return nil, fmt.Errorf("invalid FREE_GRACE_PERIOD: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("invalid STORE %q: must be %s or %s", c.Store, StoreMemory, StorePostgres)
	}
	if c.CarSpots < 0 || c.BikeSpots < 0 {
		return fmt.Errorf("spot counts must not be negative")
	}
	if c.CarRatePerHour.IsNegative() || c.BikeRatePerHour.IsNegative() {
		return fmt.Errorf("hourly rates must not be negative")
	}
	if c.FreeGracePeriod < 0 {
		return fmt.Errorf("FREE_GRACE_PERIOD must not be negative")
	}
	if c.ReturningDiscount.IsNegative() || c.ReturningDiscount.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("RETURNING_DISCOUNT must be between 0 and 1")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) FareCalculator() *parking.FareCalculator {
	return parking.NewFareCalculator(parking.RateTable{
		parking.CategoryCar:  c.CarRatePerHour,
		parking.CategoryBike: c.BikeRatePerHour,
	}, c.FreeGracePeriod, c.ReturningDiscount)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
