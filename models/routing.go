package models

import (
	"strconv"
	"time"
)

// Routing is an ordered-steps template. The order keeps only a reference and a
// description snapshot; the step detail lives with the execution module.
type Routing struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	ItemID               uint      `gorm:"not null;index" json:"item_id"`
	Item                 Item      `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Code                 string    `gorm:"type:varchar(64)" json:"code"`
	Description          string    `gorm:"type:varchar(255)" json:"description"`
	Version              int       `gorm:"not null;default:1" json:"version"`
	UsageKind            string    `gorm:"type:varchar(20);not null;default:'production'" json:"usage_kind"`
	DefaultForProduction bool      `gorm:"not null;default:false" json:"default_for_production"`
	DefaultForProcessing bool      `gorm:"not null;default:false" json:"default_for_processing"`
	OperationCount       int       `gorm:"not null;default:1" json:"operation_count"`
	OperationNames       string    `gorm:"type:text" json:"operation_names"` // comma separated, in sequence
	Active               bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (r *Routing) Label() string {
	code := r.Code
	if code == "" {
		code = r.Description
	}
	if code == "" {
		code = "Routing"
	}
	return code + " (v" + strconv.Itoa(r.Version) + ")"
}
