package model

// User is a registered account. HashedPassword is opaque and must never be
// logged or serialized.
type User struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	PhoneNumber    string `db:"phone_number" json:"phoneNumber"`
	Email          string `db:"email" json:"email"`
	HashedPassword string `db:"hashed_password" json:"-"`
	ReferrerID     *int64 `db:"referrer_id" json:"referrerId,omitempty"`
}
