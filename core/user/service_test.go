package user

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkoren/kehila/core"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]User
	seq   int
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]User)}
}

func (r *fakeRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range r.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && usr.Username == username {
			return ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return ErrEmailExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateUser(ctx context.Context, usr User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	usr.ID = fmt.Sprintf("u%d", r.seq)
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) GetUserByID(ctx context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if usr, ok := r.users[id]; ok {
		return usr, nil
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, usr := range r.users {
		if usr.Username == uname || usr.Email == uname {
			return usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *fakeRepo) UpdateOrCreateUser(ctx context.Context, usr User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if usr.ID == "" {
		r.seq++
		usr.ID = fmt.Sprintf("u%d", r.seq)
	}
	r.users[usr.ID] = usr
	return usr, nil
}

func (r *fakeRepo) SetLastLogin(ctx context.Context, usr User) (User, error) {
	return r.UpdateOrCreateUser(ctx, usr)
}

type fakeMailSvc struct {
	mu       sync.Mutex
	messages []*core.EmailMessage
}

func (svc *fakeMailSvc) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.messages = append(svc.messages, messages...)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	mailSvc := new(fakeMailSvc)
	svc := NewService(repo, mailSvc)

	usr, err := svc.Register(ctx, NewUser{
		Name:            "Jane Doe",
		Username:        "janedoe",
		Email:           "jane@test.il",
		Password:        "V3ry$ecret!x",
		PasswordConfirm: "V3ry$ecret!x",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.Active())
	assert.False(t, usr.IsAdmin)
	assert.NoError(t, usr.CheckPassword("V3ry$ecret!x"))

	require.Len(t, mailSvc.messages, 1)
	assert.Equal(t, "welcome", mailSvc.messages[0].TemplateName)
	assert.Equal(t, "jane@test.il", mailSvc.messages[0].To[0].Address)
}

func TestService_Register_noEmailNoWelcome(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	mailSvc := new(fakeMailSvc)
	svc := NewService(repo, mailSvc)

	_, err := svc.Register(ctx, NewUser{
		Name:            "Jane Doe",
		Username:        "janedoe",
		Password:        "V3ry$ecret!x",
		PasswordConfirm: "V3ry$ecret!x",
	})
	require.NoError(t, err)
	assert.Empty(t, mailSvc.messages)
}

func TestNewUser_Validate_uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, new(fakeMailSvc))
	CreateUser(t, repo, "Taken", "takenuser", "taken@test.il", "", false, true)

	nu := NewUser{
		Name:            "Jane Doe",
		Username:        "TakenUser", // cleaned to lowercase before the check
		Email:           "jane@test.il",
		Password:        "V3ry$ecret!x",
		PasswordConfirm: "V3ry$ecret!x",
	}
	err := nu.Validate(ctx, svc)
	require.Error(t, err)

	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "expected a ValidationError, got %T", err)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "username", vErr.Fields[0].Field)

	nu.Username = "janedoe"
	assert.NoError(t, nu.Validate(ctx, svc))
}

func TestService_GetByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, new(fakeMailSvc))
	usr := CreateUser(t, repo, "Jane", "janedoe", "jane@test.il", "", false, true)

	for _, uname := range []string{"janedoe", "JaneDoe", " jane@test.il "} {
		got, err := svc.GetByUsernameOrEmail(ctx, uname)
		require.NoError(t, err, "uname %q", uname)
		assert.Equal(t, usr.ID, got.ID)
	}

	_, err := svc.GetByUsernameOrEmail(ctx, "nobody")
	assert.Equal(t, ErrNotFound, err)
}
