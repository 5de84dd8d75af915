package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"cryptofolio/src/config"
	"cryptofolio/src/database"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		log.Fatalf("Error loading config for environment: %v", err)
	}

	dsn, err := database.DSN(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to resolve database credentials: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB from GORM DB: %v", err)
	}
	defer sqlDB.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("Failed to set goose dialect: %v", err)
	}

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "up":
		err = goose.Up(sqlDB, "./migrations")
	case "down":
		err = goose.Down(sqlDB, "./migrations")
	case "status":
		err = goose.Status(sqlDB, "./migrations")
	default:
		err = fmt.Errorf("unknown command %q (want up, down or status)", command)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", command, err)
	}

	log.Printf("Database migration %s completed successfully", command)
}
