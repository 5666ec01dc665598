package models

// PushProvider selects which notifier delivers to a token. It is chosen
// once at registration time, never re-inferred from the token string.
type PushProvider string

const (
	PushProviderExpo   PushProvider = "expo"
	PushProviderNative PushProvider = "native"
)

// PushTokenModel is a notification destination owned by an admin device.
type PushTokenModel struct {
	Base
	OwnerID  string       `json:"owner_id" gorm:"type:char(36);not null;index"`
	TenantID string       `json:"tenant_id" gorm:"type:char(36);index"`
	Token    string       `json:"token"    gorm:"type:varchar(191);not null;uniqueIndex"`
	Provider PushProvider `json:"provider" gorm:"type:varchar(16);not null;default:'expo'"`
	// No column default on purpose: a default:true tag makes GORM omit
	// an explicit false on insert, silently reviving deactivated tokens.
	Active bool `json:"active" gorm:"not null"`
}

func (PushTokenModel) TableName() string { return "push_tokens" }
