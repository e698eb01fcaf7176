package models

import "github.com/lib/pq"

// User is a registered chat user and the rooms they belong to.
type User struct {
	ID         string         `db:"id" json:"id"`
	Email      string         `db:"email" json:"email"`
	Username   string         `db:"username" json:"username"`
	MyRoomsIDs pq.StringArray `db:"my_rooms_ids" json:"myRoomsIds"`
}
