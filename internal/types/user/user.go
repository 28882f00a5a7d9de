package user

import "github.com/google/uuid"

// Identity links the two ids a user is known by: the numeric id owning
// calendar rows and the auth id owning participation and nutrient rows.
type Identity struct {
	ClerkID      string    `json:"-"`
	PublicUserID int64     `json:"public_user_id"`
	AuthUserID   uuid.UUID `json:"auth_user_id"`
}
