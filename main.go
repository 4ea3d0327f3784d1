package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/config"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/database"
	"github.com/finance-tracker-dsii-p3/Finanzas-Backend-sub002/internal/router"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		log.Error("create data dir", "err", err)
		os.Exit(1)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Error("init database", "err", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Error("migrate database", "err", err)
		os.Exit(1)
	}

	r := router.SetupRouter(cfg, db, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Info("server listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Error("run server", "err", err)
		os.Exit(1)
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
