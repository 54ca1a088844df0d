package main

import (
	"net/http"
	"os"

	"inkpad/config/database"
	"inkpad/pkg/logger"
	"inkpad/router"
	"inkpad/socket"

	"github.com/joho/godotenv"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Sugar.Fatal("JWT_SECRET environment variable not set")
	}

	db := database.Connect()
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		logger.Sugar.Fatalf("Failed to migrate database: %v", err)
	}

	hub := socket.NewHub()
	handler := router.Setup(db, hub, []byte(jwtSecret))

	logger.Sugar.Info("Backend listening on :8080")
	if err := http.ListenAndServe(":8080", handler); err != nil {
		logger.Sugar.Fatalf("Server exited: %v", err)
	}
}
