package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Template usage kinds. A template declared "both" can be applied to
// production and processing orders alike.
const (
	TemplateUsageProduction = "production"
	TemplateUsageProcessing = "processing"
	TemplateUsageBoth       = "both"
)

// Bom is a bill-of-materials template: the component lines needed to
// produce one unit of the target item.
type Bom struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ItemID               uint      `gorm:"not null;index" json:"item_id"`
	Item                 Item      `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Code                 string    `gorm:"type:varchar(64)" json:"code"`
	Description          string    `gorm:"type:varchar(255)" json:"description"`
	Version              int       `gorm:"not null;default:1" json:"version"`
	UsageKind            string    `gorm:"type:varchar(20);not null;default:'production'" json:"usage_kind"`
	DefaultForProduction bool      `gorm:"not null;default:false" json:"default_for_production"`
	DefaultForProcessing bool      `gorm:"not null;default:false" json:"default_for_processing"`
	Active               bool      `gorm:"not null;default:true" json:"active"`
	Items                []BomItem `gorm:"foreignKey:BomID" json:"items"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

// Label is the display snapshot captured on the order when the BOM is applied.
func (b *Bom) Label() string {
	code := b.Code
	if code == "" {
		code = b.Description
	}
	if code == "" {
		code = "BOM"
	}
	return code + " (v" + strconv.Itoa(b.Version) + ")"
}

type BomItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	BomID       uint            `gorm:"not null;index" json:"bom_id"`
	ItemID      uint            `gorm:"not null" json:"item_id"`
	Item        Item            `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"item"`
	QtyPerUnit  decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"qty_per_unit"`
	Unit        string          `gorm:"type:varchar(16);not null;default:'un'" json:"unit"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}
