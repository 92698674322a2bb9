package repository

import (
	"time"

	accountdomain "inboxpilot-backend/internal/account/domain"

	"gorm.io/gorm"
)

// accountRepository implements AccountRepository using GORM
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new GORM-based AccountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// FindEligibleForReconciliation returns premium accounts that have at least one
// enabled automation rule. Ordered least-recently-updated first so accounts
// that haven't been touched in a while come up before recently-synced ones.
func (r *accountRepository) FindEligibleForReconciliation() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.
		Preload("Rules", "enabled = ?", true).
		Where("is_premium = ?", true).
		Where("EXISTS (SELECT 1 FROM automation_rules WHERE automation_rules.account_id = accounts.id AND automation_rules.enabled = ?)", true).
		Order("updated_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Preload("Rules").Where("id = ?", id).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(email string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Preload("Rules").Where("email = ?", email).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdateWatermark(accountID, watermark string) error {
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"history_watermark": watermark,
			"updated_at":        time.Now(),
		}).Error
}

func (r *accountRepository) RecordWebhookReceipt(accountID string) error {
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).
		Update("webhook_last_seen_at", time.Now()).Error
}

func (r *accountRepository) UpdateTokens(accountID, accessToken, refreshToken string) error {
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
		}).Error
}
