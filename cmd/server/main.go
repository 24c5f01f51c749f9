// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/dareloop/dareloop/internal/handlers"
	"github.com/dareloop/dareloop/internal/journal"
	"github.com/dareloop/dareloop/internal/middleware"
	"github.com/dareloop/dareloop/internal/standings"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Turn journal is best-effort; the engine runs fine without Redis.
	if err := journal.Connect(); err != nil {
		logger.Warnf("Turn journal disabled: %v", err)
	}

	srv := handlers.NewSessionServer(logger)

	// Optional commentary table override, JSON on disk.
	if path := os.Getenv("COMMENTARY_TABLE"); path != "" {
		table, err := standings.LoadTable(path)
		if err != nil {
			log.Fatalf("failed to load commentary table %s: %v", path, err)
		}
		srv.Commentary = table
	}

	mux := http.NewServeMux()

	// session endpoints
	mux.Handle("/session/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateSessionHandler(srv),
	)))
	mux.Handle("/session/state/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.StateHandler(srv),
	)))
	mux.Handle("/session/outcome/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.OutcomeHandler(srv),
	)))
	mux.Handle("/session/players/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PlayersHandler(srv),
	)))
	mux.Handle("/session/pending/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PendingHandler(srv),
	)))
	mux.Handle("/session/standings/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.StandingsHandler(srv),
	)))

	// session event stream
	mux.Handle("/session/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionWSHandler(logger, srv),
	)))

	// pack catalog
	mux.Handle("/packs", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.PacksHandler(srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
