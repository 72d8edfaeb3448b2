package integration_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/enrollio/referral-backend/internal/config"
	"github.com/enrollio/referral-backend/internal/credential"
	"github.com/enrollio/referral-backend/internal/repository"
	"github.com/enrollio/referral-backend/internal/service"
)

// TestIntegration_ReferralFlow exercises the full registration, referral,
// sign-in and purchase flow against a real postgres. Set INTEGRATION_TEST=1
// (plus POSTGRES_* overrides as needed) to run it.
func TestIntegration_ReferralFlow(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("set INTEGRATION_TEST=1 to run against postgres")
	}

	ctx := context.Background()

	// Load config (will pick up ENV overrides, e.g. POSTGRES_*, JWT_SIGNING_KEY)
	cfg, err := config.LoadConfig("../../configs")
	assert.NoError(t, err)

	db, err := sqlx.Connect("postgres", cfg.Postgres.DSN())
	assert.NoError(t, err)
	defer db.Close()

	// (Re-)create the tables afresh for a clean test state
	_, err = db.Exec(`DROP TABLE IF EXISTS purchases, referrals, users;`)
	assert.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE users (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			phone_number TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			hashed_password TEXT NOT NULL,
			referrer_id INTEGER REFERENCES users(id)
		);
	`)
	assert.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE referrals (
			referrer_id INTEGER NOT NULL REFERENCES users(id),
			referee_id INTEGER NOT NULL UNIQUE REFERENCES users(id)
		);
	`)
	assert.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE purchases (
			id UUID PRIMARY KEY,
			student_id INTEGER NOT NULL REFERENCES users(id),
			course_id SMALLINT NOT NULL,
			UNIQUE (student_id, course_id)
		);
	`)
	assert.NoError(t, err)

	creds := credential.NewManager([]byte(cfg.JWT.SigningKey), 1*time.Hour)
	users := repository.NewUserRepository(db)
	referrals := repository.NewReferralRepository(db)
	purchases := repository.NewPurchaseRepository(db)
	svc := service.NewService(users, referrals, purchases, creds, nil, nil, zap.NewNop().Sugar())

	// Register alice with no referrer
	aliceToken, err := svc.Register(ctx, service.RegisterInput{
		Name:        "Alice",
		PhoneNumber: "1-202-456-1111",
		Email:       "alice@x.org",
		Password:    "alicepass",
	})
	assert.NoError(t, err)
	subject, err := creds.VerifyToken(aliceToken)
	assert.NoError(t, err)
	assert.Equal(t, "alice@x.org", subject)

	aliceID, found, err := svc.IDByEmail(ctx, "alice@x.org")
	assert.NoError(t, err)
	assert.True(t, found)

	// A second registration with the same email is rejected, and exactly one
	// row exists for it
	_, err = svc.Register(ctx, service.RegisterInput{
		Name:        "Alice Again",
		PhoneNumber: "1-202-456-1111",
		Email:       "alice@x.org",
		Password:    "otherpass",
	})
	assert.ErrorIs(t, err, service.ErrEmailInUse)
	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM users WHERE email = $1;`, "alice@x.org")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	// Register bob with alice as referrer: exactly one edge (alice, bob)
	_, err = svc.Register(ctx, service.RegisterInput{
		Name:        "Bob",
		PhoneNumber: "1-202-456-2222",
		Email:       "bob@x.org",
		Password:    "bobpass",
		ReferrerID:  &aliceID,
	})
	assert.NoError(t, err)

	bobID, found, err := svc.IDByEmail(ctx, "bob@x.org")
	assert.NoError(t, err)
	assert.True(t, found)

	var edges int
	err = db.Get(&edges, `SELECT COUNT(*) FROM referrals WHERE referrer_id = $1 AND referee_id = $2;`, aliceID, bobID)
	assert.NoError(t, err)
	assert.Equal(t, 1, edges)

	// Register carol with a referrer that does not exist: the user is still
	// created, with no edge recorded
	_, err = svc.Register(ctx, service.RegisterInput{
		Name:        "Carol",
		PhoneNumber: "1-202-456-3333",
		Email:       "carol@x.org",
		Password:    "carolpass",
		ReferrerID:  func() *int64 { id := int64(9999); return &id }(),
	})
	assert.NoError(t, err)

	carolID, found, err := svc.IDByEmail(ctx, "carol@x.org")
	assert.NoError(t, err)
	assert.True(t, found)
	err = db.Get(&edges, `SELECT COUNT(*) FROM referrals WHERE referee_id = $1;`, carolID)
	assert.NoError(t, err)
	assert.Equal(t, 0, edges)

	// Bob already has an inbound edge; a second one for the same referee is
	// rejected by the unique constraint on referee_id
	err = referrals.Link(ctx, carolID, bobID)
	assert.ErrorIs(t, err, repository.ErrDuplicateReferral)
	err = db.Get(&edges, `SELECT COUNT(*) FROM referrals WHERE referee_id = $1;`, bobID)
	assert.NoError(t, err)
	assert.Equal(t, 1, edges)

	// Statistics: alice referred exactly bob
	referees, err := svc.Referees(ctx, "alice@x.org")
	assert.NoError(t, err)
	if assert.Len(t, referees, 1) {
		assert.Equal(t, "bob@x.org", referees[0].Email)
		assert.Equal(t, bobID, referees[0].ID)
	}

	// Sign-in with correct and wrong credentials
	bobToken, err := svc.SignIn(ctx, "bob@x.org", "bobpass")
	assert.NoError(t, err)
	subject, err = creds.VerifyToken(bobToken)
	assert.NoError(t, err)
	assert.Equal(t, "bob@x.org", subject)

	_, err = svc.SignIn(ctx, "bob@x.org", "wrongpass")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	// Bob buys course 0 once, then tries again
	outcome, err := svc.Purchase(ctx, bobID, 0, "4242424242424242", "12/34")
	assert.NoError(t, err)
	assert.Equal(t, service.PurchaseSuccess, outcome)

	outcome, err = svc.Purchase(ctx, bobID, 0, "4242424242424242", "12/34")
	assert.NoError(t, err)
	assert.Equal(t, service.PurchaseAlreadyOwned, outcome)

	var owned int
	err = db.Get(&owned, `SELECT COUNT(*) FROM purchases WHERE student_id = $1 AND course_id = 0;`, bobID)
	assert.NoError(t, err)
	assert.Equal(t, 1, owned)
}
