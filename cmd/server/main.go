// cmd/server/main.go
package main

import (
	"net/http"
	"os"

	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/jason-s-yu/literature/internal/cache"
	"github.com/jason-s-yu/literature/internal/database"
	"github.com/jason-s-yu/literature/internal/game"
	"github.com/jason-s-yu/literature/internal/handlers"
	"github.com/jason-s-yu/literature/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	// Postgres and Redis are optional: without them games still run, only history is lost.
	if err := database.ConnectDB(); err != nil {
		logger.Warnf("running without database: %v", err)
	} else {
		defer database.Close()
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("running without redis: %v", err)
	} else {
		defer cache.Rdb.Close()
	}

	srv := handlers.NewGameServer(logger)
	srv.Rules.BotDelayMs = cache.GetEnvInt("BOT_DELAY_MS", srv.Rules.BotDelayMs)
	srv.MaxBotRun = cache.GetEnvInt("BOT_MAX_RUN", srv.MaxBotRun)
	if script := os.Getenv("BOT_SCRIPT"); script != "" {
		// Fail fast on a broken script instead of at the first bot turn.
		check, err := game.LoadLuaPolicyFile(script, nil)
		if err != nil {
			logger.Fatalf("bot script: %v", err)
		}
		check.Close()
		srv.NewPolicy = func() game.Policy {
			p, err := game.LoadLuaPolicyFile(script, game.NewRandomPolicy(nil))
			if err != nil {
				logger.Errorf("bot script: %v; using random bot", err)
				return game.NewRandomPolicy(nil)
			}
			return p
		}
		logger.Infof("bots use script %s", script)
	}

	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	// user endpoints
	mux.Handle("/user/create", logged(handlers.CreateUserHandler(logger)))
	mux.Handle("/user/login", logged(handlers.LoginHandler(logger)))
	mux.Handle("/user/me", logged(http.HandlerFunc(handlers.MeHandler)))

	// game endpoints
	mux.Handle("/game/create", logged(handlers.CreateGameHandler(logger, srv)))
	mux.Handle("/game/list", logged(handlers.ListGamesHandler(srv)))
	mux.Handle("/game/state/", logged(handlers.GameStateHandler(srv)))
	mux.Handle("/game/ws/", logged(handlers.GameWSHandler(logger, srv)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}
