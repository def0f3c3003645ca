package callbacklog

import (
	"context"
	"fmt"

	models "github.com/sankofatours/paygate/internal/models"
	"github.com/sankofatours/paygate/pkg/tool"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Append durably records one provider callback before the caller answers the
// provider. The write is synchronous: a 2xx must never be sent for a callback
// that was not persisted. Nil input is ignored.
func (s *Service) Append(ctx context.Context, entry *models.ProviderCallbackLog) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append callback log: %w", err)
	}
	return nil
}

// ListByPayment returns the callback history for one payment, oldest first.
func (s *Service) ListByPayment(ctx context.Context, paymentReference string) ([]*models.ProviderCallbackLog, error) {
	var rows []*models.ProviderCallbackLog
	err := s.db.WithContext(ctx).
		Where("payment_reference = ?", paymentReference).
		Order("received_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list callback logs: %w", err)
	}
	return rows, nil
}
