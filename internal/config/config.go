package config

import (
	"os"
	"strconv"
)

type Config struct {
	Addr          string
	JWTSecret     string
	JWTTTLMin     int
	DBDriver      string // "sqlite" or "postgres"
	SQLiteDsn     string
	PostgresDsn   string
	MaxMessageLen int

	SendGridAPIKey string
	SendGridFrom   string
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func MustLoad() Config {
	jwtttl, _ := strconv.Atoi(getenv("JWT_TTL_MIN", "1440"))
	maxlen, _ := strconv.Atoi(getenv("MAX_MESSAGE_LEN", "2000"))

	cfg := Config{
		Addr:           getenv("HTTP_ADDR", ":8080"),
		JWTSecret:      getenv("JWT_SECRET", ""),
		JWTTTLMin:      jwtttl,
		DBDriver:       getenv("DB_DRIVER", "sqlite"),
		SQLiteDsn:      getenv("SQLITE_DSN", "file:chirp.db?_pragma=foreign_keys(ON)"),
		PostgresDsn:    getenv("POSTGRES_DSN", ""),
		MaxMessageLen:  maxlen,
		SendGridAPIKey: getenv("SENDGRID_API_KEY", ""),
		SendGridFrom:   getenv("SENDGRID_FROM", ""),
	}
	return cfg
}
