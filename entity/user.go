package entity

import "time"

type User struct {
	ID           string    `db:"id" bson:"_id,omitempty" json:"id"`
	Username     string    `db:"username" bson:"username" json:"username"`
	PasswordHash string    `db:"password_hash" bson:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at" json:"created_at"`
}
