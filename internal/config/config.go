package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	ServerPort string

	// ValkeyAddr selects the broadcast-channel fan-out backend when set.
	// When empty the in-process websocket hub is used instead. The choice is
	// made once at startup and never mixed within one deployment.
	ValkeyAddr string

	SessionTTLMinutes int
	SessionMaxPlayers int

	QuizBankPath string

	LogLevel string
	LogDir   string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "quizgame"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		ValkeyAddr:        getEnv("VALKEY_ADDR", ""),
		SessionTTLMinutes: getEnvInt("SESSION_TTL_MINUTES", 120),
		SessionMaxPlayers: getEnvInt("SESSION_MAX_PLAYERS", 50),
		QuizBankPath:      getEnv("QUIZ_BANK_PATH", "data/quiz-bank.json"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogDir:            getEnv("LOG_DIR", ""),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
