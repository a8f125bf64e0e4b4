// Package domain defines the persistence models for deliveries, settings,
// logs, shares and profiles.
package domain

import "time"

// Delivery records that a webhook delivery id has been claimed for
// processing. A row is live until ExpiresAt; expired rows are treated as
// absent and purged opportunistically.
type Delivery struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Delivery) TableName() string { return "deliveries" }
