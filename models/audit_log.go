package models

import "time"

// AuditLog records who changed what on the order aggregate. Written
// synchronously by the store on every mutation; read by the order history
// endpoint.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	TableName string    `gorm:"type:varchar(64);not null" json:"table_name"`
	RecordID  uint      `gorm:"not null" json:"record_id"`
	Action    string    `gorm:"type:varchar(20);not null" json:"action"` // create, update, delete
	UserID    *uint     `json:"user_id,omitempty"`
	Summary   string    `gorm:"type:varchar(512)" json:"summary"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
