package service

import (
	"context"
	"errors"
	"testing"

	"bazar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(repo *userRepoStub) *UserService {
	return NewUserService(repo).WithHashCost(bcrypt.MinCost)
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestUserService_Register_Validation(t *testing.T) {
	t.Parallel()

	valid := RegisterInput{Username: "jana", Email: "jana@example.com", Password: "secret1", ConfirmPassword: "secret1"}
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"username too short", func(in *RegisterInput) { in.Username = "j" }, "username"},
		{"username too long", func(in *RegisterInput) { in.Username = "abcdefghijklmnopqrstu" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, "password"},
		{"confirm mismatch", func(in *RegisterInput) { in.ConfirmPassword = "secret2" }, "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := valid
			tt.mutate(&in)
			_, err := newTestUserService(noopUserRepo()).Register(context.Background(), in)
			assertValidationError(t, err, tt.field)
		})
	}
}

func TestUserService_Register_Conflicts(t *testing.T) {
	t.Parallel()

	in := RegisterInput{Username: "jana", Email: "Jana@Example.com", Password: "secret1", ConfirmPassword: "secret1"}

	t.Run("username taken", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.getByUsernameFn = func(_ context.Context, name string) (*models.User, error) {
			return &models.User{ID: 4, Username: name}, nil
		}
		_, err := newTestUserService(repo).Register(context.Background(), in)
		appErr := assertCode(t, err, models.CodeConflict)
		assert.Equal(t, "username", appErr.Field)
		assert.Equal(t, "Toto meno je už obsadené. Zvoľte si iné.", appErr.Message)
	})

	t.Run("email taken", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var looked string
		repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
			looked = email
			return &models.User{ID: 4}, nil
		}
		_, err := newTestUserService(repo).Register(context.Background(), in)
		appErr := assertCode(t, err, models.CodeConflict)
		assert.Equal(t, "email", appErr.Field)
		assert.Equal(t, "jana@example.com", looked)
	})
}

func TestUserService_Register_HashesPassword(t *testing.T) {
	t.Parallel()

	repo := noopUserRepo()
	var saved *models.User
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 12
		saved = u
		return nil
	}
	user, err := newTestUserService(repo).Register(context.Background(), RegisterInput{
		Username: "  jana ", Email: "jana@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, uint(12), user.ID)
	assert.Equal(t, "jana", saved.Username)
	assert.Equal(t, models.RoleUser, saved.Role)
	assert.NotEqual(t, "secret1", saved.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.Password), []byte("secret1")))
}

func TestUserService_Authenticate(t *testing.T) {
	t.Parallel()

	hash := hashFor(t, "secret1")
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		if email == "jana@example.com" {
			return &models.User{ID: 3, Email: email, Password: hash}, nil
		}
		return nil, nil
	}
	svc := newTestUserService(repo)

	user, err := svc.Authenticate(context.Background(), " JANA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uint(3), user.ID)

	_, err = svc.Authenticate(context.Background(), "jana@example.com", "wrong")
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "secret1")
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(context.Background(), "", "")
	assertCode(t, err, models.CodeValidation)
}

func TestUserService_ChangePassword(t *testing.T) {
	t.Parallel()

	hash := hashFor(t, "oldpass")
	newRepo := func(updated *string) *userRepoStub {
		repo := noopUserRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Password: hash}, nil
		}
		repo.updatePasswordFn = func(_ context.Context, _ uint, h string) error {
			*updated = h
			return nil
		}
		return repo
	}

	tests := []struct {
		name  string
		in    ChangePasswordInput
		code  string
		field string
	}{
		{"missing current", ChangePasswordInput{New: "newpass", Confirm: "newpass"}, models.CodeValidation, "all"},
		{"missing confirm when required", ChangePasswordInput{Current: "oldpass", New: "newpass", RequireConfirm: true}, models.CodeValidation, "all"},
		{"new too short", ChangePasswordInput{Current: "oldpass", New: "abc", Confirm: "abc"}, models.CodeValidation, "new_password"},
		{"confirm mismatch", ChangePasswordInput{Current: "oldpass", New: "newpass", Confirm: "other1"}, models.CodeValidation, "confirm_password"},
		{"wrong current", ChangePasswordInput{Current: "nope12", New: "newpass", Confirm: "newpass"}, models.CodeUnauthorized, "current_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var updated string
			tt.in.UserID = 1
			err := newTestUserService(newRepo(&updated)).ChangePassword(context.Background(), tt.in)
			appErr := assertCode(t, err, tt.code)
			assert.Equal(t, tt.field, appErr.Field)
			assert.Empty(t, updated)
		})
	}

	t.Run("success without confirm", func(t *testing.T) {
		t.Parallel()
		var updated string
		err := newTestUserService(newRepo(&updated)).ChangePassword(context.Background(), ChangePasswordInput{
			UserID: 1, Current: "oldpass", New: "newpass",
		})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated), []byte("newpass")))
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		t.Parallel()
		var updated string
		repo := newRepo(&updated)
		repoErr := errors.New("disk full")
		repo.updatePasswordFn = func(context.Context, uint, string) error { return repoErr }
		err := newTestUserService(repo).ChangePassword(context.Background(), ChangePasswordInput{
			UserID: 1, Current: "oldpass", New: "newpass", Confirm: "newpass",
		})
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestUserService_CheckPassword(t *testing.T) {
	t.Parallel()

	hash := hashFor(t, "secret1")
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Password: hash}, nil
	}
	svc := newTestUserService(repo)

	ok, err := svc.CheckPassword(context.Background(), 1, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckPassword(context.Background(), 1, "secret2")
	require.NoError(t, err)
	assert.False(t, ok)
}
