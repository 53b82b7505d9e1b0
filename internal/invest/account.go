package invest

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const maxInviteCodeAttempts = 10

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := NormalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return User{}, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, Dependency("hash password", err)
	}
	inviterCode := NormalizeInviteCode(in.InviteCode)

	for attempt := 0; attempt < maxInviteCodeAttempts; attempt++ {
		code, err := GenerateInviteCode()
		if err != nil {
			return User{}, Dependency("generate invite code", err)
		}
		u := User{
			ID:             newID(),
			Email:          email,
			PasswordHash:   hash,
			Balance:        decimal.Zero,
			TotalEarned:    decimal.Zero,
			TotalWithdrawn: decimal.Zero,
			InviteCode:     code,
			CreatedAt:      s.now(),
		}
		err = s.store.WithinTx(ctx, func(tx Tx) error {
			if inviterCode != "" {
				inviterID, err := tx.UserIDByInviteCode(ctx, inviterCode)
				if err != nil {
					return err
				}
				u.InvitedBy = inviterID
			}
			return tx.InsertUser(ctx, u)
		})
		if errors.Is(err, ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return User{}, err
		}
		s.log.Info("user registered", "user_id", u.ID, "invited_by", u.InvitedBy)
		return u, nil
	}
	return User{}, Dependency("allocate invite code", ErrInviteCodeTaken)
}

// Login verifies credentials and returns the user snapshot. Unknown emails
// and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	u, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:             u.ID,
		Email:          u.Email,
		InviteCode:     u.InviteCode,
		Balance:        u.Balance,
		TotalEarned:    u.TotalEarned,
		TotalWithdrawn: u.TotalWithdrawn,
		CreatedAt:      u.CreatedAt,
	}, nil
}
