package mapping

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"ledger-mapping-backend/internal/models"
	"ledger-mapping-backend/internal/repository"
)

// Service bridges the external store and the mapping core: it loads the
// chart of accounts, runs the cascade over stored transactions, persists
// results, and feeds confirmed mappings back into the learned tables.
type Service struct {
	orch        *Orchestrator
	accountRepo *repository.AccountRepository
	txRepo      *repository.TransactionRepository
	db          *gorm.DB
	log         zerolog.Logger

	progressCache sync.Map // batchID -> *Progress
}

type Progress struct {
	ProcessedCount int    `json:"processed_count"`
	Total          int    `json:"total"`
	Status         string `json:"status"`
}

func NewService(
	orch *Orchestrator,
	accountRepo *repository.AccountRepository,
	txRepo *repository.TransactionRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		orch:        orch,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		db:          accountRepo.DB(),
		log:         log,
	}
}

func (s *Service) Orchestrator() *Orchestrator {
	return s.orch
}

// InitializeFromStore loads the active chart of accounts and rebuilds every
// stage index. Setup is all-or-nothing; an error here leaves the service
// unusable for mapping.
func (s *Service) InitializeFromStore(standard *models.AccountingStandard) (int, error) {
	accounts, err := s.accountRepo.GetActive()
	if err != nil {
		return 0, err
	}
	if standard == nil {
		standard = models.DefaultStandard()
	}
	if err := s.orch.Initialize(accounts, standard); err != nil {
		return 0, err
	}
	return len(accounts), nil
}

// CreateBatch creates a new MappingBatch in DB
func (s *Service) CreateBatch(filename string) *models.MappingBatch {
	batch := &models.MappingBatch{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    "processing",
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	s.db.Create(batch)
	return batch
}

// CreateTransaction inserts one transaction with its debit and credit entry.
func (s *Service) CreateTransaction(
	batchID uuid.UUID,
	description, customerName string,
	date time.Time,
	amount string,
	debitAccountNumber, creditAccountNumber string,
) *models.Transaction {
	txID := uuid.New()
	tx := &models.Transaction{
		ID:              txID,
		UploadBatchID:   batchID,
		TransactionDate: date,
		Description:     description,
		CustomerName:    customerName,
		Status:          models.StatusPending,
		CreatedAt:       time.Now(),
		Entries: []models.TransactionEntry{
			{
				ID:            uuid.New(),
				TransactionID: txID,
				AccountNumber: debitAccountNumber,
				Type:          models.EntryTypeDebit,
				Amount:        amount,
			},
			{
				ID:            uuid.New(),
				TransactionID: txID,
				AccountNumber: creditAccountNumber,
				Type:          models.EntryTypeCredit,
				Amount:        amount,
			},
		},
	}
	s.db.Create(tx)
	return tx
}

// MapTransaction runs the cascade for one stored transaction and persists
// the outcome.
func (s *Service) MapTransaction(txID uuid.UUID) (*models.Transaction, error) {
	tx, err := s.txRepo.GetByID(txID)
	if err != nil {
		return nil, err
	}
	result, err := s.orch.MapTransaction(tx)
	if err != nil {
		return nil, err
	}
	s.applyResult(tx, result)
	if err := s.txRepo.Save(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Service) applyResult(tx *models.Transaction, result models.MappingResult) {
	if result.Mapped() {
		debitID := result.DebitAccount.ID
		creditID := result.CreditAccount.ID
		tx.Status = models.StatusMapped
		tx.MappedDebitAccountID = &debitID
		tx.MappedCreditAccountID = &creditID
	} else {
		tx.Status = models.StatusUnmapped
		tx.MappedDebitAccountID = nil
		tx.MappedCreditAccountID = nil
	}
	tx.ConfidenceScore = result.Confidence

	details := map[string]interface{}{
		"stage":      result.Stage,
		"confidence": result.Confidence,
		"mapped":     result.Mapped(),
	}
	if result.DebitAccount != nil {
		details["debit_account_code"] = result.DebitAccount.Code
	}
	if result.CreditAccount != nil {
		details["credit_account_code"] = result.CreditAccount.Code
	}
	detailsJSON, _ := json.Marshal(details)
	tx.MappingDetails = detailsJSON
}

// RunBatch maps every pending transaction in the batch. Meant to run in a
// background goroutine; progress is observable through GetProgress.
func (s *Service) RunBatch(batchID uuid.UUID) {
	txs, err := s.txRepo.PendingByBatch(batchID)
	if err != nil {
		s.log.Error().Err(err).Str("batch_id", batchID.String()).Msg("loading pending transactions failed")
		s.markBatchFailed(batchID)
		return
	}

	s.progressCache.Store(batchID, &Progress{Total: len(txs), Status: "processing"})

	mapped := 0
	for i := range txs {
		tx := &txs[i]
		result, err := s.orch.MapTransaction(tx)
		if err != nil {
			s.log.Error().Err(err).Str("transaction_id", tx.ID.String()).Msg("mapping aborted")
			s.markBatchFailed(batchID)
			return
		}
		s.applyResult(tx, result)
		if err := s.txRepo.Save(tx); err != nil {
			s.log.Error().Err(err).Str("transaction_id", tx.ID.String()).Msg("persisting mapping failed")
		}
		if result.Mapped() {
			mapped++
		}
		if (i+1)%100 == 0 {
			s.updateProgress(batchID, i+1)
		}
	}

	s.completeBatch(batchID, len(txs), mapped)
}

func (s *Service) updateProgress(batchID uuid.UUID, count int) {
	if val, ok := s.progressCache.Load(batchID); ok {
		val.(*Progress).ProcessedCount = count
	}
	s.db.Model(&models.MappingBatch{}).
		Where("id = ?", batchID).
		Update("processed_count", count)
}

func (s *Service) completeBatch(batchID uuid.UUID, total, mapped int) {
	s.progressCache.Store(batchID, &Progress{ProcessedCount: total, Total: total, Status: "completed"})
	now := time.Now()
	s.db.Model(&models.MappingBatch{}).
		Where("id = ?", batchID).
		Updates(map[string]interface{}{
			"processed_count":    total,
			"total_transactions": total,
			"mapped_count":       mapped,
			"unmapped_count":     total - mapped,
			"status":             "completed",
			"completed_at":       &now,
		})
}

func (s *Service) markBatchFailed(batchID uuid.UUID) {
	s.progressCache.Store(batchID, &Progress{Status: "failed"})
	s.db.Model(&models.MappingBatch{}).
		Where("id = ?", batchID).
		Update("status", "failed")
}

// GetProgress returns the in-memory batch progress, falling back to the
// persisted batch row after a restart.
func (s *Service) GetProgress(batchID uuid.UUID) (*Progress, error) {
	if val, ok := s.progressCache.Load(batchID); ok {
		return val.(*Progress), nil
	}
	var batch models.MappingBatch
	if err := s.db.First(&batch, "id = ?", batchID).Error; err != nil {
		return nil, err
	}
	return &Progress{
		ProcessedCount: batch.ProcessedCount,
		Total:          batch.TotalTransactions,
		Status:         batch.Status,
	}, nil
}

// ConfirmMapping approves a mapping, writes an audit row and feeds the
// confirmed pair into the learned pattern tables.
func (s *Service) ConfirmMapping(txID, debitAccountID, creditAccountID uuid.UUID, performedBy string) (*models.Transaction, error) {
	tx, err := s.txRepo.GetByID(txID)
	if err != nil {
		return nil, err
	}

	audit := &models.MappingAuditLog{
		ID:                    uuid.New(),
		TransactionID:         tx.ID,
		Action:                "confirm",
		PreviousDebitAccount:  tx.MappedDebitAccountID,
		PreviousCreditAccount: tx.MappedCreditAccountID,
		NewDebitAccount:       &debitAccountID,
		NewCreditAccount:      &creditAccountID,
		PerformedBy:           performedBy,
		CreatedAt:             time.Now(),
	}
	s.db.Create(audit)

	s.orch.LearnFromMatch(tx, debitAccountID, creditAccountID)

	tx.Status = models.StatusApproved
	tx.MappedDebitAccountID = &debitAccountID
	tx.MappedCreditAccountID = &creditAccountID
	tx.ConfidenceScore = 1.0
	if err := s.txRepo.Save(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RejectMapping clears an automatic mapping and flags the transaction for
// manual review.
func (s *Service) RejectMapping(txID uuid.UUID, performedBy string) (*models.Transaction, error) {
	tx, err := s.txRepo.GetByID(txID)
	if err != nil {
		return nil, err
	}

	audit := &models.MappingAuditLog{
		ID:                    uuid.New(),
		TransactionID:         tx.ID,
		Action:                "reject",
		PreviousDebitAccount:  tx.MappedDebitAccountID,
		PreviousCreditAccount: tx.MappedCreditAccountID,
		PerformedBy:           performedBy,
		CreatedAt:             time.Now(),
	}
	s.db.Create(audit)

	tx.Status = models.StatusUnmapped
	tx.MappedDebitAccountID = nil
	tx.MappedCreditAccountID = nil
	tx.ConfidenceScore = 0
	if err := s.txRepo.Save(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ListTransactions pages through a batch for review UIs.
func (s *Service) ListTransactions(batchID uuid.UUID, status, cursor string, limit int, search string) ([]models.Transaction, string, bool) {
	return s.txRepo.List(batchID, status, cursor, limit, search)
}

type ServiceStats struct {
	StatusCounts  map[string]int64 `json:"status_counts"`
	Attempts      MetricsSummary   `json:"attempts"`
	Patterns      PatternStats     `json:"patterns"`
	Learned       LearnedStats     `json:"learned"`
	RAGVocabulary int              `json:"rag_vocabulary_size"`
	CacheSize     int              `json:"similarity_cache_size"`
}

// Stats collects the per-batch status breakdown plus the core's pull-based
// counters for the dashboard.
func (s *Service) Stats(batchID uuid.UUID) (ServiceStats, error) {
	stats := ServiceStats{
		StatusCounts:  make(map[string]int64),
		Attempts:      s.orch.MetricsSummary(),
		Patterns:      s.orch.PatternStats(),
		Learned:       s.orch.LearnedStats(),
		RAGVocabulary: s.orch.VocabularySize(),
		CacheSize:     s.orch.CacheSize(),
	}
	rows, err := s.txRepo.CountsByStatus(batchID)
	if err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.StatusCounts[row.Status] = row.Count
	}
	return stats, nil
}
