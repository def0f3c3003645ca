package catalog

import (
	"errors"
	"fmt"

	models "github.com/sankofatours/paygate/internal/models"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnresolvable means the purchase target is missing or inactive. The
	// money has already moved when fulfillment hits this, so callers flag
	// the payment for review instead of failing it.
	ErrUnresolvable = errors.New("catalog item cannot be resolved")
	ErrSoldOut      = errors.New("not enough tickets remaining")
)

// Service reads the catalog tables the booking platform owns. Methods take
// the caller's transaction so catalog resolution and fulfillment writes
// commit or roll back together.
type Service struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Service { return &Service{log: log} }

func (s *Service) LockDestination(tx *gorm.DB, id string) (*models.Destination, error) {
	var d models.Destination
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND active = true", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: destination %s", ErrUnresolvable, id)
		}
		return nil, fmt.Errorf("failed to lock destination: %w", err)
	}
	return &d, nil
}

// LockTicketTypeAndReserve locks the ticket type row and decrements its
// remaining stock by quantity. The decrement rides the caller's transaction,
// so an aborted fulfillment releases the stock automatically.
func (s *Service) LockTicketTypeAndReserve(tx *gorm.DB, id string, quantity int) (*models.TicketType, error) {
	var tt models.TicketType
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND active = true", id).First(&tt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ticket type %s", ErrUnresolvable, id)
		}
		return nil, fmt.Errorf("failed to lock ticket type: %w", err)
	}
	if tt.Remaining < quantity {
		return nil, fmt.Errorf("%w: ticket type %s has %d left, wanted %d", ErrSoldOut, id, tt.Remaining, quantity)
	}
	if err := tx.Model(&models.TicketType{}).Where("id = ?", id).
		Update("remaining", gorm.Expr("remaining - ?", quantity)).Error; err != nil {
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}
	tt.Remaining -= quantity
	return &tt, nil
}

// Module exposes the catalog reader via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
