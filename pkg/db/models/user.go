package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the minimal identity the engine needs. Profiles, credentials and
// seller-mode switching live in the excluded presentation layer.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
