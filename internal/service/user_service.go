package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/repository"
	"bazar/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts and credentials.
type UserService struct {
	users repository.UserRepository
	cost  int
}

// NewUserService creates a UserService hashing with bcrypt.DefaultCost.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// RegisterInput is a submitted registration form.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register validates the form and creates a regular user account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := trimmed(in.Username)
	email := strings.ToLower(trimmed(in.Email))

	if err := validation.ValidateUsername(username); err != nil {
		return nil, fieldValidationError(err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fieldValidationError(err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, fieldValidationError(err)
	}
	if in.Password != in.ConfirmPassword {
		return nil, models.NewValidationError("Heslá sa musia zhodovať.").WithField("confirm_password")
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Toto meno je už obsadené. Zvoľte si iné.").WithField("username")
	}
	existing, err = s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Táto emailová adresa je už zaregistrovaná.").WithField("email")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Username: username, Email: email, Password: hash, Role: models.RoleUser}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate returns the user owning email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(trimmed(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Zadajte email a heslo.")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !checkHash(user.Password, password) {
		return nil, models.NewUnauthorizedError("Prihlásenie neúspešné. Skontrolujte email a heslo.")
	}
	return user, nil
}

// GetByID loads a user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// CheckPassword reports whether password is the current password of userID.
func (s *UserService) CheckPassword(ctx context.Context, userID uint, password string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return checkHash(user.Password, password), nil
}

// ChangePasswordInput is a password change request. RequireConfirm makes an
// empty Confirm count as a missing field.
type ChangePasswordInput struct {
	UserID         uint
	Current        string
	New            string
	Confirm        string
	RequireConfirm bool
}

// ChangePassword verifies the current password and stores the new one.
func (s *UserService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if in.Current == "" || in.New == "" || (in.RequireConfirm && in.Confirm == "") {
		return models.NewValidationError("Všetky polia sú povinné.").WithField("all")
	}
	if err := validation.ValidatePassword(in.New); err != nil {
		return models.NewValidationError("Nové heslo musí mať aspoň 6 znakov.").WithField("new_password")
	}
	if in.Confirm != "" && in.Confirm != in.New {
		return models.NewValidationError("Nové heslá sa nezhodujú.").WithField("confirm_password")
	}

	ok, err := s.CheckPassword(ctx, in.UserID, in.Current)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewUnauthorizedError("Nesprávne aktuálne heslo.").WithField("current_password")
	}

	hash, err := s.hash(in.New)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, in.UserID, hash); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "password changed", slog.Uint64("user_id", uint64(in.UserID)))
	return nil
}

func (s *UserService) hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("Heslo je príliš dlhé.").WithField("password")
		}
		return "", models.NewInternalError(err)
	}
	return string(out), nil
}

func checkHash(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
