package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DBDSN         string
	LogFile       string
	SweepSecret   string
	AdminSecret   string
	SweepInterval time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "saleroom.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./saleroom.log"
	}
	secret := os.Getenv("SWEEP_SECRET")
	if secret == "" {
		secret = "dev-sweep-secret" // override in any non-dev environment
	}
	adminSecret := os.Getenv("ADMIN_SECRET")
	if adminSecret == "" {
		adminSecret = "dev-admin-secret" // override in any non-dev environment
	}
	interval := 30 * time.Second
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}

	cfg := Config{Port: port, DBDSN: dsn, LogFile: logFile, SweepSecret: secret, AdminSecret: adminSecret, SweepInterval: interval}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s SWEEP_INTERVAL=%s", cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.SweepInterval)
	return cfg
}
