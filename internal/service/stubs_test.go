package service

import (
	"context"
	"errors"
	"testing"

	"bazar/internal/models"
	"bazar/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn        func(ctx context.Context, id uint) (*models.User, error)
	getByEmailFn     func(ctx context.Context, email string) (*models.User, error)
	getByUsernameFn  func(ctx context.Context, username string) (*models.User, error)
	usernamesByIDsFn func(ctx context.Context, ids []uint) (map[uint]string, error)
	createFn         func(ctx context.Context, user *models.User) error
	updatePasswordFn func(ctx context.Context, id uint, hash string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *userRepoStub) UsernamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	return s.usernamesByIDsFn(ctx, ids)
}

func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}

// noopUserRepo returns a stub that finds nobody and accepts every write.
func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		usernamesByIDsFn: func(context.Context, []uint) (map[uint]string, error) {
			return map[uint]string{}, nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updatePasswordFn: func(context.Context, uint, string) error { return nil },
	}
}

type messageRepoStub struct {
	createFn            func(ctx context.Context, msg *models.Message) error
	getByIDFn           func(ctx context.Context, id uint) (*models.Message, error)
	loadConversationsFn func(ctx context.Context, userID uint) (*repository.ConversationData, error)
	threadFn            func(ctx context.Context, userID, otherID uint, listingID *uint) ([]models.Message, error)
	listForUserFn       func(ctx context.Context, userID uint) ([]models.Message, error)
	unreadCountFn       func(ctx context.Context, userID uint) (int64, error)
	markReadFn          func(ctx context.Context, id uint) error
}

func (s *messageRepoStub) Create(ctx context.Context, msg *models.Message) error {
	return s.createFn(ctx, msg)
}

func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}

func (s *messageRepoStub) LoadConversations(ctx context.Context, userID uint) (*repository.ConversationData, error) {
	return s.loadConversationsFn(ctx, userID)
}

func (s *messageRepoStub) Thread(ctx context.Context, userID, otherID uint, listingID *uint) ([]models.Message, error) {
	return s.threadFn(ctx, userID, otherID, listingID)
}

func (s *messageRepoStub) ListForUser(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.listForUserFn(ctx, userID)
}

func (s *messageRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}

func (s *messageRepoStub) MarkRead(ctx context.Context, id uint) error {
	return s.markReadFn(ctx, id)
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn: func(context.Context, *models.Message) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Message, error) {
			return nil, models.NewNotFoundError("Message", id)
		},
		loadConversationsFn: func(context.Context, uint) (*repository.ConversationData, error) {
			return &repository.ConversationData{}, nil
		},
		threadFn:      func(context.Context, uint, uint, *uint) ([]models.Message, error) { return nil, nil },
		listForUserFn: func(context.Context, uint) ([]models.Message, error) { return nil, nil },
		unreadCountFn: func(context.Context, uint) (int64, error) { return 0, nil },
		markReadFn:    func(context.Context, uint) error { return nil },
	}
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

// assertValidationError asserts a VALIDATION_ERROR tagged with field.
func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	appErr := assertCode(t, err, models.CodeValidation)
	assert.Equal(t, field, appErr.Field)
}
