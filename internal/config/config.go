package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Gateway    GatewayConfig
	Reconciler ReconcilerConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	PoolSize int
}

type GatewayConfig struct {
	BaseURL      string
	PrivateKey   string
	IntegrityKey string
	Timeout      time.Duration
}

type ReconcilerConfig struct {
	Delay time.Duration
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/checkout?parseTime=true"),
			MaxOpenConns:    getEnvInt("MYSQL_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("MYSQL_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 100),
		},
		Gateway: GatewayConfig{
			BaseURL:      getEnv("PAYMENT_GATEWAY_URL", "https://api-sandbox.co.uat.wompi.dev/v1"),
			PrivateKey:   getEnv("PAYMENT_GATEWAY_PRIVATE_KEY", ""),
			IntegrityKey: getEnv("PAYMENT_GATEWAY_INTEGRITY_KEY", ""),
			Timeout:      getEnvDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		},
		Reconciler: ReconcilerConfig{
			Delay: getEnvDuration("RECONCILE_DELAY", 5*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
