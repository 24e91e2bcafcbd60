package main

import (
	"log"
	"net/http"
	"time"

	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/config"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/cotation"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/db"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/migrations"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/seed"
	"github.com/sylvain-nomadays/nomadays-api-sub000/internal/store"
)

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}

	stats, err := seed.Run(database, seed.Config{DemoTrip: cfg.IsDev()})
	if err != nil {
		log.Fatalf("failed to seed reference data: %v", err)
	}
	log.Printf("seed: inserts=%d", stats.Inserts)

	engine := cfg.Engine()
	svc := cotation.NewService(store.New(database), cotation.Options{
		Workers:         engine.Workers,
		DefaultCurrency: engine.DefaultCurrency,
		Logger:          log.Default(),
	})

	srv := &server{cotations: svc}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s env=%s workers=%d", httpServer.Addr, cfg.Env, engine.Workers)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
