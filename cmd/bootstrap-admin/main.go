package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/config"
	"github.com/spec-kit/points-service/internal/observability"
	"github.com/spec-kit/points-service/internal/persistence"
	"github.com/spec-kit/points-service/internal/repository"
	"github.com/spec-kit/points-service/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email within the organization domain")
	departments := flag.String("departments", "", "comma separated departments, e.g. HR,IT")
	flag.Parse()

	if *email == "" || *departments == "" {
		flag.Usage()
		log.Fatal("-email and -departments are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if !pg.Enabled() {
		logger.Fatal("POSTGRES_DSN is required to bootstrap an admin")
	}

	admin, err := service.BootstrapAdmin(ctx, repository.NewAdminRepository(pg.PoolHandle()), *email, strings.Split(*departments, ","), cfg.Auth.EmailDomain, time.Now())
	if err != nil {
		logger.Fatal("bootstrap admin failed", zap.Error(err))
	}

	depts := make([]string, 0, len(admin.Departments))
	for _, d := range admin.Departments {
		depts = append(depts, string(d))
	}
	logger.Info("admin ready", zap.String("email", admin.Email), zap.Strings("departments", depts))
}
