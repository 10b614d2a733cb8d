package repository

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ledger-mapping-backend/internal/models"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Expose DB if needed
func (r *AccountRepository) DB() *gorm.DB {
	return r.db
}

// GetActive returns the active chart of accounts ordered by code, so that
// derived indexes see a stable account order across rebuilds.
func (r *AccountRepository) GetActive() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("is_active = ?", true).Order("code ASC").Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) GetAll() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Order("code ASC").Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) GetByID(id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) FindByCode(code string) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// Search does a simple LIKE lookup on code and name for admin tooling.
func (r *AccountRepository) Search(query string) ([]models.Account, error) {
	var accounts []models.Account
	like := "%" + strings.ToLower(query) + "%"
	err := r.db.
		Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like).
		Order("code ASC").
		Find(&accounts).Error
	return accounts, err
}
