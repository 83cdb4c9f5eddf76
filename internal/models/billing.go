package models

import (
	"time"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeAddonEnable  TransactionType = "addon_enable"
	TransactionTypeAddonDisable TransactionType = "addon_disable"
	TransactionTypePlanChange   TransactionType = "plan_change"
	TransactionTypePromoRedeem  TransactionType = "promo_redeem"
)

// Transaction records a billing-relevant change to a user account
type Transaction struct {
	ID          uint            `gorm:"column:id;primaryKey" json:"id"`
	Type        TransactionType `gorm:"column:type;size:50;not null;index" json:"type"`
	Amount      float64         `gorm:"column:amount;type:decimal(15,2);not null" json:"amount"`
	TotalBefore float64         `gorm:"column:total_before;type:decimal(15,2)" json:"total_before"`
	TotalAfter  float64         `gorm:"column:total_after;type:decimal(15,2)" json:"total_after"`
	Description string          `gorm:"column:description;size:500" json:"description"`
	Reference   string          `gorm:"column:reference;size:100;uniqueIndex" json:"reference"`

	UserID uint  `gorm:"column:user_id;not null;index" json:"user_id"`
	User   *User `gorm:"-" json:"user,omitempty"`

	// Metadata
	IPAddress string `gorm:"column:ip_address;size:50" json:"ip_address"`
	CreatedBy uint   `gorm:"column:created_by" json:"created_by"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// PromoCode represents a redeemable subscription code
type PromoCode struct {
	ID   uint   `gorm:"column:id;primaryKey" json:"id"`
	Code string `gorm:"column:code;size:50;uniqueIndex;not null" json:"code"`

	// What redemption grants
	PlanPrice float64 `gorm:"column:plan_price;type:decimal(15,2);not null" json:"plan_price"`
	Days      int     `gorm:"column:days;not null" json:"days"`

	// Batch tracking
	BatchID     string `gorm:"column:batch_id;size:50;index" json:"batch_id"`
	BatchNumber int    `gorm:"column:batch_number" json:"batch_number"`

	IsUsed     bool       `gorm:"column:is_used;default:false;index" json:"is_used"`
	IsActive   bool       `gorm:"column:is_active;default:true" json:"is_active"`
	UsedBy     *uint      `gorm:"column:used_by" json:"used_by"`
	UsedAt     *time.Time `gorm:"column:used_at" json:"used_at"`
	ExpiryDate *time.Time `gorm:"column:expiry_date" json:"expiry_date"`
	CreatedBy  uint       `gorm:"column:created_by" json:"created_by"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}
