package booking

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/canerconnect/terminflow/libs/auth"
	"github.com/canerconnect/terminflow/services/booking-service/internal/model"
	"github.com/canerconnect/terminflow/services/booking-service/internal/storage"
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// Authenticate checks admin credentials. Unknown users still pay for one
// bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, username, password string) (model.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.AdminUser{}, invalid("username and password are required")
	}
	user, err := s.store.GetAdminByUsername(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		dummyHashOnce.Do(func() { dummyHash, _ = auth.HashPassword("terminflow-placeholder") })
		auth.VerifyPassword(dummyHash, password)
		return model.AdminUser{}, ErrInvalidCredentials
	case err != nil:
		return model.AdminUser{}, unexpected("load admin user", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		s.logger.Warn("admin login failed", "username", username, "customer_id", user.CustomerID)
		return model.AdminUser{}, ErrInvalidCredentials
	}
	return user, nil
}
