package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/enrollio/referral-backend/internal/credential"
	"github.com/enrollio/referral-backend/internal/model"
	"github.com/enrollio/referral-backend/internal/repository"
)

// Expected business failures, returned as values so callers can map them to
// responses without digging through wrapped store errors.
var (
	ErrEmailInUse         = errors.New("this email is already in use")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

// PurchaseOutcome is the result of a purchase attempt. Validation failure
// takes precedence over ownership.
type PurchaseOutcome int

const (
	PurchaseIncorrectInfo PurchaseOutcome = iota
	PurchaseAlreadyOwned
	PurchaseSuccess
)

// CardValidator checks payment details. The reference implementation accepts
// everything; a real deployment plugs in a payment-processor contract.
type CardValidator func(ctx context.Context, cardNumber, expiryDate string) (bool, error)

// AcceptAllCards is the reference CardValidator.
func AcceptAllCards(ctx context.Context, cardNumber, expiryDate string) (bool, error) {
	return true, nil
}

// RegisterInput is a pre-validated registration request. ReferrerID, when
// set, is advisory: a referrer that no longer exists degrades the signup to
// a referrer-less one instead of failing it.
type RegisterInput struct {
	Name        string
	PhoneNumber string
	Email       string
	Password    string
	ReferrerID  *int64
}

// RefereeCache keeps computed referee lists per referrer. A miss is not an
// error; cache failures must never fail the statistics request.
type RefereeCache interface {
	Get(ctx context.Context, referrerID int64) ([]model.User, bool, error)
	Set(ctx context.Context, referrerID int64, referees []model.User) error
	Invalidate(ctx context.Context, referrerID int64) error
}

// Service is the domain facade the transport layer calls into.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	IDByEmail(ctx context.Context, email string) (int64, bool, error)
	Referees(ctx context.Context, referrerEmail string) ([]model.User, error)
	Purchase(ctx context.Context, studentID int64, courseID int32, cardNumber, expiryDate string) (PurchaseOutcome, error)
	Courses() []model.Course
}

var defaultCourses = []model.Course{
	{ID: 0, Name: "Course 1"},
	{ID: 1, Name: "Course 2"},
	{ID: 2, Name: "Course 3"},
	{ID: 3, Name: "Course 4"},
}

type referralService struct {
	users        repository.UserRepository
	referrals    repository.ReferralRepository
	purchases    repository.PurchaseRepository
	creds        *credential.Manager
	refereeCache RefereeCache
	validateCard CardValidator
	logger       *zap.SugaredLogger
}

// NewService constructs the domain facade. refereeCache may be nil to run
// without caching; validateCard may be nil to use AcceptAllCards.
func NewService(
	users repository.UserRepository,
	referrals repository.ReferralRepository,
	purchases repository.PurchaseRepository,
	creds *credential.Manager,
	refereeCache RefereeCache,
	validateCard CardValidator,
	logger *zap.SugaredLogger,
) Service {
	if validateCard == nil {
		validateCard = AcceptAllCards
	}
	return &referralService{
		users:        users,
		referrals:    referrals,
		purchases:    purchases,
		creds:        creds,
		refereeCache: refereeCache,
		validateCard: validateCard,
		logger:       logger,
	}
}

// Register creates a user, links the referral edge if the referrer exists,
// and returns a token bound to the new email. A taken email fails with
// ErrEmailInUse.
func (s *referralService) Register(ctx context.Context, in RegisterInput) (string, error) {
	// Fast-path check; the unique constraint on email remains the source of
	// truth under concurrent registrations.
	_, taken, err := s.users.GetIDByEmail(ctx, in.Email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailInUse
	}

	hashed, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return "", err
	}

	// Check that the referrer id exists to satisfy the foreign key
	// constraint. An invalid referrer never blocks registration: the signup
	// proceeds without a referral edge.
	referrerID := in.ReferrerID
	if referrerID != nil {
		exists, err := s.users.Exists(ctx, *referrerID)
		if err != nil {
			return "", err
		}
		if !exists {
			s.logger.Infow("skipping unknown referrer", "referrer_id", *referrerID)
			referrerID = nil
		}
	}

	u, err := s.users.Create(ctx, in.Name, in.PhoneNumber, in.Email, hashed, referrerID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			// Lost the race with a concurrent registration.
			return "", ErrEmailInUse
		}
		return "", err
	}

	if referrerID != nil {
		if err := s.referrals.Link(ctx, *referrerID, u.ID); err != nil {
			return "", err
		}
		s.invalidateReferees(ctx, *referrerID)
	}

	return s.creds.IssueToken(u.Email)
}

// SignIn verifies email+password and returns a fresh token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *referralService) SignIn(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil || !s.creds.CheckPassword(password, u.HashedPassword) {
		return "", ErrInvalidCredentials
	}
	return s.creds.IssueToken(u.Email)
}

// IDByEmail resolves an email to a user id. Absence is not an error.
func (s *referralService) IDByEmail(ctx context.Context, email string) (int64, bool, error) {
	return s.users.GetIDByEmail(ctx, email)
}

// Referees returns the users invited by the given referrer, in insertion
// order. An unknown referrer email yields an empty list.
func (s *referralService) Referees(ctx context.Context, referrerEmail string) ([]model.User, error) {
	referrerID, found, err := s.users.GetIDByEmail(ctx, referrerEmail)
	if err != nil {
		return nil, err
	}
	if !found {
		return []model.User{}, nil
	}

	if s.refereeCache != nil {
		cached, hit, err := s.refereeCache.Get(ctx, referrerID)
		if err != nil {
			s.logger.Warnw("referee cache read failed", "error", err)
		} else if hit {
			return cached, nil
		}
	}

	referees, err := s.referrals.RefereesOf(ctx, referrerID)
	if err != nil {
		return nil, err
	}

	if s.refereeCache != nil {
		if err := s.refereeCache.Set(ctx, referrerID, referees); err != nil {
			s.logger.Warnw("referee cache write failed", "error", err)
		}
	}
	return referees, nil
}

// Purchase validates payment details and records course ownership. The
// detail validation and the ownership check are independent reads and run
// concurrently; IncorrectInfo wins over AlreadyOwned in the outcome.
func (s *referralService) Purchase(
	ctx context.Context,
	studentID int64,
	courseID int32,
	cardNumber, expiryDate string,
) (PurchaseOutcome, error) {
	var valid, owned bool

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		valid, err = s.validateCard(gctx, cardNumber, expiryDate)
		return err
	})
	g.Go(func() error {
		var err error
		owned, err = s.purchases.Exists(gctx, studentID, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return PurchaseIncorrectInfo, err
	}

	if !valid {
		return PurchaseIncorrectInfo, nil
	}
	if owned {
		return PurchaseAlreadyOwned, nil
	}

	if _, err := s.purchases.Create(ctx, studentID, courseID); err != nil {
		if errors.Is(err, repository.ErrAlreadyOwned) {
			// Lost the race with a concurrent purchase of the same course.
			return PurchaseAlreadyOwned, nil
		}
		return PurchaseIncorrectInfo, fmt.Errorf("record purchase: %w", err)
	}
	return PurchaseSuccess, nil
}

// Courses returns the static course catalog.
func (s *referralService) Courses() []model.Course {
	courses := make([]model.Course, len(defaultCourses))
	copy(courses, defaultCourses)
	return courses
}

func (s *referralService) invalidateReferees(ctx context.Context, referrerID int64) {
	if s.refereeCache == nil {
		return
	}
	if err := s.refereeCache.Invalidate(ctx, referrerID); err != nil {
		s.logger.Warnw("referee cache invalidation failed", "error", err)
	}
}
