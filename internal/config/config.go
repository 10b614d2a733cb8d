package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries the env-driven settings for the server. Mapping thresholds
// are exposed here rather than hard-coded in the cascade so they can be tuned
// per deployment.
type Config struct {
	Port       string
	CORSOrigin string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RAGThreshold      float64
	PatternThreshold  float64
	MatcherConfidence float64
}

func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "ledger_mapping"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RAGThreshold:      getEnvFloat("MAPPING_RAG_THRESHOLD", 0.8),
		PatternThreshold:  getEnvFloat("MAPPING_PATTERN_THRESHOLD", 0.7),
		MatcherConfidence: getEnvFloat("MAPPING_MATCHER_CONFIDENCE", 0.6),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// InitDB opens the postgres connection or dies trying.
func InitDB(c *Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(c.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return f
}
