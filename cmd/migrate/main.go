// Command migrate applies and inspects the discovery schema migrations
// compiled into the binary.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"ms-discovery/internal/config"
	"ms-discovery/internal/migrations"
	"ms-discovery/internal/services"
)

func main() {
	command := flag.String("command", "up", "Migration command: up, status, pending, list")
	flag.Parse()

	// list only reads the embedded files and needs no database.
	if *command == "list" {
		if err := printMigrations(os.Stdout, "Embedded migrations", mustList()); err != nil {
			log.Fatalf("Failed to list migrations: %v", err)
		}
		return
	}

	cfg := config.Load()
	dbService, err := services.NewDatabaseService(services.DatabaseConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		DBName:   cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database service: %v", err)
	}
	defer dbService.Close()

	switch *command {
	case "up":
		pending, err := dbService.PendingMigrations()
		if err != nil {
			log.Fatalf("Failed to read pending migrations: %v", err)
		}
		log.Printf("Applying %d pending discovery migration(s)", len(pending))
		if err := dbService.RunMigrations(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Discovery schema is up to date")

	case "status":
		if err := dbService.MigrationStatus(); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}

	case "pending":
		pending, err := dbService.PendingMigrations()
		if err != nil {
			log.Fatalf("Failed to read pending migrations: %v", err)
		}
		if err := printMigrations(os.Stdout, "Pending migrations", pending); err != nil {
			log.Fatalf("Failed to print pending migrations: %v", err)
		}

	default:
		log.Printf("Unknown command: %s", *command)
		log.Println("Available commands: up, status, pending, list")
		os.Exit(1)
	}
}

func mustList() []migrations.Migration {
	all, err := migrations.List(migrations.Files())
	if err != nil {
		log.Fatalf("Failed to read embedded migrations: %v", err)
	}
	return all
}

func printMigrations(w io.Writer, title string, list []migrations.Migration) error {
	if _, err := fmt.Fprintf(w, "%s (%d):\n", title, len(list)); err != nil {
		return err
	}
	for _, m := range list {
		if _, err := fmt.Fprintf(w, "  %s  %s\n", m.Version, m.Name); err != nil {
			return err
		}
	}
	return nil
}
