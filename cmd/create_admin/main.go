package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"visadesk/internal/auth"
	"visadesk/internal/config"
	"visadesk/internal/database"
	"visadesk/internal/logger"
	apperrors "visadesk/pkg/errors"
)

func main() {
	username := flag.String("username", "admin", "administrator username")
	email := flag.String("email", "admin@visadesk.com", "administrator email")
	fullName := flag.String("name", "System Administrator", "full name")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD must be set")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Initialize database
	db, err := database.Open(cfg.Database, zlog)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	user, err := auth.NewUsers(db).Create(context.Background(), auth.NewAccount{
		Username: *username,
		Email:    *email,
		Password: password,
		FullName: *fullName,
		IsAdmin:  true,
	})
	if apperrors.IsConflict(err) {
		fmt.Println("Admin user already exists!")
		return
	}
	if err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	fmt.Println("Admin user created successfully!")
	fmt.Printf("Username: %s\n", user.Username)
}
