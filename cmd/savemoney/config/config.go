package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	RunAddress            string        `env:"RUN_ADDRESS" envDefault:":8080"`
	DatabaseURI           string        `env:"DATABASE_URI"`
	DBTimeout             time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`
	JWTSecret             string        `env:"JWT_SECRET"`
	AdminKeyHash          string        `env:"ADMIN_KEY_HASH"`
	TrackingSystemAddress string        `env:"TRACKING_SYSTEM_ADDRESS"`
	TrackingInterval      time.Duration `env:"TRACKING_INTERVAL" envDefault:"30s"`
	RedisAddr             string        `env:"REDIS_ADDR"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	RedisDB               int           `env:"REDIS_DB" envDefault:"0"`
	BalanceCacheTTL       time.Duration `env:"BALANCE_CACHE_TTL" envDefault:"30s"`
	CORSOrigins           []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	WithdrawRatePerMinute int           `env:"WITHDRAW_RATE_PER_MINUTE" envDefault:"6"`
	WithdrawBurst         int           `env:"WITHDRAW_BURST" envDefault:"3"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile               string        `env:"LOG_FILE"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

var (
	ErrNoDatabaseURI = errors.New("не задан адрес БД (DATABASE_URI или -d)")
	ErrNoJWTSecret   = errors.New("не задан секрет JWT (JWT_SECRET или -s)")
)

// New читает конфигурацию из окружения, флаги командной строки имеют приоритет.
func New() (*Config, error) {
	return parse(os.Args[1:])
}

func parse(args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}

	fs := flag.NewFlagSet("savemoney", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "адрес и порт запуска сервиса")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "адрес подключения к БД")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "секрет проверки JWT")
	fs.StringVar(&cfg.TrackingSystemAddress, "t", cfg.TrackingSystemAddress, "адрес системы отслеживания заказов")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "адрес Redis для кэша балансов")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.DatabaseURI == "" {
		return nil, ErrNoDatabaseURI
	}
	if cfg.JWTSecret == "" {
		return nil, ErrNoJWTSecret
	}
	if cfg.DBTimeout <= 0 {
		return nil, fmt.Errorf("DB_TIMEOUT должен быть положительным: %s", cfg.DBTimeout)
	}
	if cfg.TrackingInterval <= 0 {
		return nil, fmt.Errorf("TRACKING_INTERVAL должен быть положительным: %s", cfg.TrackingInterval)
	}
	if cfg.WithdrawRatePerMinute <= 0 || cfg.WithdrawBurst <= 0 {
		return nil, fmt.Errorf("лимиты вывода должны быть положительными: rate=%d burst=%d", cfg.WithdrawRatePerMinute, cfg.WithdrawBurst)
	}
	return cfg, nil
}
