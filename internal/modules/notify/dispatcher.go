package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldtrace/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome aggregates per-recipient results of one fan-out.
type Outcome struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Dispatcher fans a message out to push tokens. Sends run sequentially
// per recipient; each send fails independently and never short-circuits
// the rest.
type Dispatcher struct {
	db        *gorm.DB
	notifiers map[models.PushProvider]Notifier
	logger    *zap.Logger
}

func NewDispatcher(db *gorm.DB, notifiers map[models.PushProvider]Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{db: db, notifiers: notifiers, logger: logger}
}

// DispatchToTokens sends msg to each token and aggregates outcomes.
func (d *Dispatcher) DispatchToTokens(ctx context.Context, tokens []models.PushTokenModel, msg Message) Outcome {
	var out Outcome
	for _, t := range tokens {
		if err := d.sendOne(ctx, t, msg); err != nil {
			out.Failed++
			if d.logger != nil {
				d.logger.Warn("push send failed",
					zap.String("provider", string(t.Provider)),
					zap.String("owner", t.OwnerID),
					zap.Error(err),
				)
			}
			continue
		}
		out.Sent++
	}
	return out
}

// DispatchToAdmins loads all active admin tokens for a tenant and fans
// msg out to them.
func (d *Dispatcher) DispatchToAdmins(ctx context.Context, tenantID string, msg Message) (Outcome, error) {
	tokens, err := d.ActiveAdminTokens(tenantID)
	if err != nil {
		return Outcome{}, err
	}
	return d.DispatchToTokens(ctx, tokens, msg), nil
}

// ActiveAdminTokens lists active push tokens for the tenant's admins.
func (d *Dispatcher) ActiveAdminTokens(tenantID string) ([]models.PushTokenModel, error) {
	var tokens []models.PushTokenModel
	tx := d.db.Where("active = ?", true)
	if tenantID != "" {
		tx = tx.Where("tenant_id = ?", tenantID)
	}
	if err := tx.Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// RegisterToken creates or refreshes a push token row. The provider tag
// is fixed here, at registration, so sends never sniff token shapes.
func (d *Dispatcher) RegisterToken(ownerID, tenantID, token string, provider models.PushProvider) (*models.PushTokenModel, error) {
	if _, ok := d.notifiers[provider]; !ok {
		return nil, fmt.Errorf("unknown push provider %q", provider)
	}

	var existing models.PushTokenModel
	err := d.db.Where("token = ?", token).First(&existing).Error
	if err == nil {
		updates := map[string]interface{}{
			"owner_id":  ownerID,
			"tenant_id": tenantID,
			"provider":  provider,
			"active":    true,
		}
		if err := d.db.Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row := models.PushTokenModel{
		OwnerID:  ownerID,
		TenantID: tenantID,
		Token:    token,
		Provider: provider,
		Active:   true,
	}
	if err := d.db.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, t models.PushTokenModel, msg Message) error {
	n, ok := d.notifiers[t.Provider]
	if !ok {
		return fmt.Errorf("no notifier for provider %q", t.Provider)
	}
	return n.Send(ctx, t.Token, msg)
}
