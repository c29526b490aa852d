package models

import "github.com/google/uuid"

type File struct {
	BaseModel
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID   uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"parentID" gorm:"type:uuid;index"`
	Size      int64      `json:"size" gorm:"not null;default:0"`
	MimeType  string     `json:"mimeType" gorm:"type:varchar(255);not null"`
	Extension string     `json:"extension" gorm:"type:varchar(64)"`
	URL       string     `json:"url" gorm:"type:text;not null"`
	ObjectID  string     `json:"objectID" gorm:"type:text;not null"`
}
