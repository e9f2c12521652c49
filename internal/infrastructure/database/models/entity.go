package models

import (
	"time"
)

type ReceivedEntity struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	EntityType string    `json:"entity_type" gorm:"type:text;index"`
	GUID       string    `json:"guid" gorm:"type:text;uniqueIndex:idx_entity_guid,where:guid <> ''"`
	Author     string    `json:"author" gorm:"type:text;index"`
	Body       string    `json:"body" gorm:"type:jsonb"`
	Private    bool      `json:"private"`
	ReceivedAt time.Time `json:"received_at" gorm:"type:timestamp with time zone;index"`
}
