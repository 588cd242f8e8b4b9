package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stake-plus/crisistruth/src/api/types"
)

// Account roles.
const (
	RoleAdmin       = "admin"
	RoleFactChecker = "factchecker"
	RoleUser        = "user"
)

var ErrBadCredentials = errors.New("data: invalid email or password")

var builtinAccounts = []struct {
	email, password, name, role string
}{
	{"admin@crisistruth.org", "admin123", "Administrator", RoleAdmin},
	{"factchecker@crisistruth.org", "checker123", "Fact Checker", RoleFactChecker},
}

// SeedAccounts creates the built-in staff accounts when missing.
func SeedAccounts(ctx context.Context, db *gorm.DB) error {
	for _, a := range builtinAccounts {
		var n int64
		if err := db.WithContext(ctx).Model(&types.Account{}).Where("email = ?", a.email).Count(&n).Error; err != nil {
			return fmt.Errorf("seed accounts: %w", err)
		}
		if n > 0 {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		acct := types.Account{Email: a.email, PasswordHash: string(hash), Name: a.name, Role: a.role}
		if err := db.WithContext(ctx).Create(&acct).Error; err != nil {
			return fmt.Errorf("seed account %s: %w", a.email, err)
		}
	}
	return nil
}

// Authenticate resolves a login. A staff account gets its role only with the
// right password; every other non-empty pair signs in as a regular user.
func (s *Store) Authenticate(ctx context.Context, email, password string) (types.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return types.Account{}, ErrBadCredentials
	}

	var acct types.Account
	err := s.db.WithContext(ctx).First(&acct, "email = ?", email).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return types.Account{Email: email, Role: RoleUser}, nil
	case err != nil:
		return types.Account{}, fmt.Errorf("lookup account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return types.Account{Email: email, Role: RoleUser}, nil
	}
	return acct, nil
}
