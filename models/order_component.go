package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderComponent is a requirement line: a quantity of a sub-item needed to
// fulfill the order. Reserved and consumed quantities are written by the
// inventory collaborators, never by this service.
type OrderComponent struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"not null;index" json:"order_id"`
	Order       Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemID      uint            `gorm:"not null" json:"item_id"`
	Item        Item            `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"item"`
	RequiredQty decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"required_qty"`
	ReservedQty decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"reserved_qty"`
	ConsumedQty decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"consumed_qty"`
	Unit        string          `gorm:"type:varchar(16);not null;default:'un'" json:"unit"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}
