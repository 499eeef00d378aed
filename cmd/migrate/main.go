// Command migrate applies or rolls back the database schema.
//
//	migrate            apply pending migrations
//	migrate -down 1    roll back one migration
//	migrate -version   print the applied version
package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"salon-booking/internal/config"
	"salon-booking/internal/store"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations")
	version := flag.Bool("version", false, "print the applied migration version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch {
	case *version:
		v, dirty, err := store.MigrationVersion(pool)
		if err != nil {
			log.Fatalf("version: %v", err)
		}
		log.Printf("version %d (dirty=%t)", v, dirty)
	case *down > 0:
		if err := store.MigrateDown(pool, *down); err != nil {
			log.Fatalf("%v", err)
		}
		log.Printf("rolled back %d migration(s)", *down)
	default:
		if err := store.Migrate(pool); err != nil {
			log.Fatalf("%v", err)
		}
		log.Println("migrations applied")
	}
}
