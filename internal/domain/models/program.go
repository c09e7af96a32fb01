// internal/domain/models/program.go
package models

import "time"

// Program is an academic program (course) that a private organization may admit.
// IDs are small integers allocated from the counters collection.
type Program struct {
	ID        int64     `bson:"_id" json:"id"`
	Code      string    `bson:"code" json:"code"`
	CodeCI    string    `bson:"code_ci" json:"-"`
	Name      string    `bson:"name" json:"name"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
