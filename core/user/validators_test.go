package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkoren/kehila/core"
)

func validationTags(err error) []string {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(vErrs))
	for _, vErr := range vErrs {
		tags = append(tags, vErr.Tag())
	}
	return tags
}

func TestNewUser_passwordPolicy(t *testing.T) {
	newUser := func(pwd string) NewUser {
		return NewUser{
			Name:            "Jane Doe",
			Username:        "janedoe",
			Email:           "jane@test.il",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "aB1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "aB1! aB1!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "12345678", wantTag: pwdNotAllNumTag},
		{name: "no uppercase", pwd: "secret!123", wantTag: pwdComplexityTag},
		{name: "no special char", pwd: "Secret123", wantTag: pwdComplexityTag},
		{name: "similar to email", pwd: "Jane@test.il1", wantTag: pwdAttrSimTag},
		{name: "ok", pwd: "V3ry$ecret!x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := core.Validate.Struct(newUser(tt.pwd))
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, validationTags(err), tt.wantTag)
		})
	}
}

func TestNewUser_usernameOrEmailRequired(t *testing.T) {
	nu := NewUser{
		Name:            "Jane Doe",
		Password:        "V3ry$ecret!x",
		PasswordConfirm: "V3ry$ecret!x",
	}
	err := core.Validate.Struct(nu)
	require.Error(t, err)
	assert.Contains(t, validationTags(err), usernameOrEmailTag)

	nu.Email = "jane@test.il"
	assert.NoError(t, core.Validate.Struct(nu))
}

func TestNewUser_passwordConfirmMustMatch(t *testing.T) {
	nu := NewUser{
		Name:            "Jane Doe",
		Email:           "jane@test.il",
		Password:        "V3ry$ecret!x",
		PasswordConfirm: "V3ry$ecret!y",
	}
	err := core.Validate.Struct(nu)
	require.Error(t, err)
	assert.Contains(t, validationTags(err), "eqfield")
}
