package model

// Referral records that referrer invited referee. Each user can be the
// referee of at most one referral.
type Referral struct {
	ReferrerID int64 `db:"referrer_id" json:"referrerId"`
	RefereeID  int64 `db:"referee_id" json:"refereeId"`
}
