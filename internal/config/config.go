package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	MySQLDSN     string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment, with a .env file as
// fallback for local runs.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		MySQLDSN:     getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getenv("KAFKA_NOTIFICATIONS_TOPIC", "order-notifications"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
