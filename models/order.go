package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order kinds. Immutable once the order leaves draft.
const (
	OrderKindProduction = "production"
	OrderKindProcessing = "processing"
)

// Order is the aggregate root of the work-order workflow. It owns component
// requirements, delivery records and, for production orders with generated
// operations, the production report scaffold.
type Order struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Number int    `gorm:"uniqueIndex" json:"number"`
	Kind   string `gorm:"type:varchar(20);not null;default:'production'" json:"kind"`
	Status string `gorm:"type:varchar(30);not null;default:'draft'" json:"status"`

	ItemID   *uint   `gorm:"index" json:"item_id,omitempty"`
	Item     *Item   `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"item,omitempty"`
	ItemName string  `gorm:"type:varchar(255)" json:"item_name"`
	ClientID *uint   `gorm:"index" json:"client_id,omitempty"`
	Client   *Client `gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"client,omitempty"`

	PlannedQty decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"planned_qty"`
	Unit       string          `gorm:"type:varchar(16);not null;default:'un'" json:"unit"`
	Priority   int             `gorm:"not null;default:0" json:"priority"`

	// Processing orders working on client-owned stock.
	UseClientMaterial bool            `gorm:"not null;default:false" json:"use_client_material"`
	ClientMaterialID  *uint           `json:"client_material_id,omitempty"`
	ClientMaterial    *ClientMaterial `gorm:"foreignKey:ClientMaterialID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"client_material,omitempty"`

	// Template references with display snapshots captured at apply time.
	AppliedBomID       *uint  `json:"applied_bom_id,omitempty"`
	AppliedBomDesc     string `gorm:"type:varchar(255)" json:"applied_bom_desc"`
	AppliedRoutingID   *uint  `json:"applied_routing_id,omitempty"`
	AppliedRoutingDesc string `gorm:"type:varchar(255)" json:"applied_routing_desc"`

	// Once operations exist the header and routing reference are frozen.
	OperationsGenerated bool `gorm:"not null;default:false" json:"operations_generated"`

	PlannedStart    *time.Time `json:"planned_start,omitempty"`
	PlannedEnd      *time.Time `json:"planned_end,omitempty"`
	PlannedDelivery *time.Time `json:"planned_delivery,omitempty"`

	DocumentRef    string `gorm:"type:varchar(128)" json:"document_ref"`
	ClientOrderRef string `gorm:"type:varchar(128)" json:"client_order_ref"`
	ClientBatch    string `gorm:"type:varchar(128)" json:"client_batch"`
	Notes          string `gorm:"type:text" json:"notes"`

	Components []OrderComponent `gorm:"foreignKey:OrderID" json:"components"`
	Deliveries []OrderDelivery  `gorm:"foreignKey:OrderID" json:"deliveries"`
	Operations []OrderOperation `gorm:"foreignKey:OrderID" json:"operations,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// DeliveredTotal sums the delivered quantity over all delivery records,
// persisted and draft alike.
func (o *Order) DeliveredTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.Deliveries {
		total = total.Add(d.Quantity)
	}
	return total
}

// Persisted reports whether the order has a durable identity.
func (o *Order) Persisted() bool {
	return o.ID != 0
}
