package main

import (
	"time"

	"ledger-mapping-backend/internal/config"
	"ledger-mapping-backend/internal/logger"
	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.New()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	cfg := config.Load()
	db := config.InitDB(cfg)

	db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.TransactionEntry{},
		&models.MappingBatch{},
		&models.MappingAuditLog{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, log)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
