package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Billing status of a delivery. Only meaningful for processing orders.
const (
	BillingNotBilled   = "not_billed"
	BillingReadyToBill = "ready_to_bill"
	BillingBilled      = "billed"
)

// OrderDelivery is a partial or final fulfillment event against the order's
// planned quantity. While the parent order is unpersisted (or the record has
// not been saved yet) the delivery carries a provisional ClientKey of the
// shape "draft:<n>" instead of a database ID.
type OrderDelivery struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ClientKey     string          `gorm:"-" json:"client_key,omitempty"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	Order         Order           `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"quantity"`
	DeliveryDate  time.Time       `gorm:"not null" json:"delivery_date"`
	BillingStatus string          `gorm:"type:varchar(20);not null;default:'not_billed'" json:"billing_status"`
	DocumentRef   string          `gorm:"type:varchar(128)" json:"document_ref"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`
}

// Draft reports whether the delivery still holds a provisional identity.
func (d *OrderDelivery) Draft() bool {
	return d.ID == 0
}

// Key returns the stable identifier the caller should use to address this
// delivery: the provisional key while draft, the database ID afterwards.
func (d *OrderDelivery) Key() string {
	if d.Draft() {
		return d.ClientKey
	}
	return strconv.FormatUint(uint64(d.ID), 10)
}
