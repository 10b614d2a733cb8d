package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-mapping-backend/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) DB() *gorm.DB {
	return r.db
}

func (r *TransactionRepository) GetByID(id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.Preload("Entries").First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

func (r *TransactionRepository) Save(tx *models.Transaction) error {
	return r.db.Save(tx).Error
}

// PendingByBatch loads the batch's pending transactions with entries, for
// the background mapping run.
func (r *TransactionRepository) PendingByBatch(batchID uuid.UUID) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.
		Preload("Entries").
		Where("upload_batch_id = ? AND status = ?", batchID, models.StatusPending).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

// List pages through transactions with optional status and search filters,
// cursor-based on id.
func (r *TransactionRepository) List(batchID uuid.UUID, status, cursor string, limit int, search string) ([]models.Transaction, string, bool) {
	var txs []models.Transaction
	query := r.db.
		Preload("Entries").
		Where("upload_batch_id = ?", batchID).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("description ILIKE ? OR customer_name ILIKE ?", like, like)
	}

	query.Find(&txs)

	hasMore := false
	var nextCursor string
	if len(txs) > limit {
		hasMore = true
		nextCursor = txs[limit-1].ID.String()
		txs = txs[:limit]
	}
	return txs, nextCursor, hasMore
}

type StatusCount struct {
	Status string
	Count  int64
}

// CountsByStatus groups the batch's transactions by mapping status.
func (r *TransactionRepository) CountsByStatus(batchID uuid.UUID) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.Model(&models.Transaction{}).
		Where("upload_batch_id = ?", batchID).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	return rows, err
}
