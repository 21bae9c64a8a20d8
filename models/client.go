package models

import "time"

type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Document  string    `gorm:"type:varchar(32)" json:"document"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// ClientMaterial links a client-owned material to an internal catalog item.
// Processing orders that work on client stock must reference one of these.
type ClientMaterial struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClientID   uint      `gorm:"not null;uniqueIndex:idx_client_item" json:"client_id"`
	Client     Client    `gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	ItemID     uint      `gorm:"not null;uniqueIndex:idx_client_item" json:"item_id"`
	Item       Item      `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	ClientCode string    `gorm:"type:varchar(64)" json:"client_code"`
	ClientName string    `gorm:"type:varchar(255)" json:"client_name"`
	Unit       string    `gorm:"type:varchar(16)" json:"unit"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
