package models

import "github.com/google/uuid"

// Folder is a node of a user's hierarchy. A nil ParentID places it at the root.
// RemotePath stays nil until the remote store has materialized the folder.
type Folder struct {
	BaseModel
	Name       string     `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID    uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	ParentID   *uuid.UUID `json:"parentID" gorm:"type:uuid;index"`
	RemotePath *string    `json:"remotePath,omitempty" gorm:"type:text"`
}

// FolderNode is a Folder with its nested subfolders, as returned by tree assembly.
type FolderNode struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	ParentID *uuid.UUID    `json:"parentID"`
	Children []*FolderNode `json:"children"`
}
