package user

import (
	"context"
	"testing"
	"time"
)

func CreateUser(
	t *testing.T,
	repo Repository,
	name, uname, email, pwd string,
	isAdmin, isActive bool,
	createdAt ...time.Time,
) User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsAdmin:   isAdmin,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
