package models

import "time"

// Artifact is the persisted record of one published transformation result.
type Artifact struct {
	ID         string    `badgerhold:"key" json:"id"`
	Identifier string    `badgerholdIndex:"Identifier" json:"identifier"`
	Variant    string    `json:"variant"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	Reference  string    `json:"reference"`
	CreatedAt  time.Time `json:"created_at"`
}
