// Package main provides the dice server binary: a TCP server that hosts
// one liar's dice match per process.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/liarsdice/internal/audit"
	"github.com/cory-johannsen/liarsdice/internal/config"
	"github.com/cory-johannsen/liarsdice/internal/game/dice"
	"github.com/cory-johannsen/liarsdice/internal/game/table"
	"github.com/cory-johannsen/liarsdice/internal/gameserver"
	"github.com/cory-johannsen/liarsdice/internal/observability"
	"github.com/cory-johannsen/liarsdice/internal/server"
	"github.com/cory-johannsen/liarsdice/internal/storage/postgres"
	"github.com/cory-johannsen/liarsdice/internal/transport"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	flag.Parse()

	ctx := context.Background()

	var cfg config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	lifecycle := server.NewLifecycle(logger)

	// Pick the audit recorder: PostgreSQL when enabled, otherwise the
	// structured log.
	var recorder audit.Recorder = audit.NewLogRecorder(logger)
	if cfg.Audit.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		recorder = postgres.NewGameEventRepository(pool)

		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	roller := dice.NewRoller(dice.NewCryptoSource(), logger)
	tbl := table.New(cfg.Server.Players, cfg.Server.DicePerPlayer, roller, recorder, logger)
	handler := gameserver.NewHandler(tbl, logger)
	acceptor := transport.NewAcceptor(cfg.Server, handler, logger)

	lifecycle.Add("acceptor", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("dice server initialized",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("match_id", tbl.MatchID()),
		zap.Int("players", cfg.Server.Players),
		zap.Int("dice_per_player", cfg.Server.DicePerPlayer),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
