package models

import (
	"time"
)

type Person struct {
	GUID       string `json:"guid" gorm:"type:text"`
	DiasporaID string `json:"diaspora_id" gorm:"primaryKey;type:text"`
	Pod        string `json:"pod" gorm:"type:text;index"`
	URL        string `json:"url" gorm:"type:text"`
	PublicKey  string `json:"public_key" gorm:"type:text"`
	// PrivateKey is only populated for local users.
	PrivateKey string    `json:"-" gorm:"type:text"`
	CDate      time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate      time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
