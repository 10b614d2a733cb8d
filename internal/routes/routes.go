package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ledger-mapping-backend/internal/config"
	handler "ledger-mapping-backend/internal/handlers"
	"ledger-mapping-backend/internal/logger"
	"ledger-mapping-backend/internal/repository"
	service "ledger-mapping-backend/internal/services/mapping"
	"ledger-mapping-backend/internal/services/textproc"
)

// RegisterRoutes wires the whole dependency graph explicitly: text
// processing at the bottom, the stage components above it, the orchestrator
// over those, and the store-facing service on top.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	proc := textproc.NewProcessor()
	calc := textproc.NewCalculator(proc)
	extractor := service.NewFeatureExtractor(proc)

	builder := service.NewPatternBuilder(proc, calc, logger.Component(log, "patterns"))
	matcher := service.NewMatcher(proc, calc, logger.Component(log, "matcher"))
	patternMatcher := service.NewPatternMatcher(proc, calc, logger.Component(log, "learned"))
	rag := service.NewRAGMapper(proc, calc, extractor, logger.Component(log, "rag"))

	thresholds := service.Thresholds{
		RAGAcceptance:     cfg.RAGThreshold,
		PatternAcceptance: cfg.PatternThreshold,
		MatcherConfidence: cfg.MatcherConfidence,
	}
	orch := service.NewOrchestrator(builder, matcher, patternMatcher, rag, calc, thresholds, logger.Component(log, "orchestrator"))

	mappingService := service.NewService(orch, accountRepo, transactionRepo, logger.Component(log, "service"))
	mappingHandler := handler.NewMappingHandler(mappingService, accountRepo, logger.Component(log, "http"))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Chart of accounts
	accounts := api.Group("/accounts")
	accounts.POST("", mappingHandler.CreateAccount)
	accounts.GET("", mappingHandler.ListAccounts)
	accounts.POST("/upload", mappingHandler.UploadAccounts)
	accounts.GET("/similar", mappingHandler.SimilarAccounts)

	// Mapping batch routes
	mapping := api.Group("/mapping")
	mapping.POST("/initialize", mappingHandler.Initialize)
	mapping.GET("/:batchId", mappingHandler.GetBatchProgress)
	mapping.GET("/:batchId/transactions", mappingHandler.ListTransactions)
	mapping.GET("/:batchId/stats", mappingHandler.GetStats)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.POST("/upload", mappingHandler.UploadTransactions)
	tx.POST("/:id/map", mappingHandler.MapTransaction)
	tx.POST("/:id/confirm", mappingHandler.ConfirmMapping)
	tx.POST("/:id/reject", mappingHandler.RejectMapping)
}
