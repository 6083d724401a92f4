package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_userApi_register(t *testing.T) {
	deps := setup(t)
	createUser(t, deps.usrRepo, "Taken", "takenuser", "taken@test.il", "", true)

	tests := []httpTest{
		{
			name:     "empty body fails validation",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "weak password rejected",
			body: marshallObj(t, map[string]string{
				"name":             "Jane Doe",
				"username":         "janedoe",
				"email":            "jane@test.il",
				"password":         "password",
				"password_confirm": "password",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "password confirm mismatch",
			body: marshallObj(t, map[string]string{
				"name":             "Jane Doe",
				"password":         "V3ry$ecret!x",
				"password_confirm": "V3ry$ecret!y",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate username rejected",
			body: marshallObj(t, map[string]string{
				"name":             "Jane Doe",
				"username":         "takenuser",
				"password":         "V3ry$ecret!x",
				"password_confirm": "V3ry$ecret!x",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "ok",
			body: marshallObj(t, map[string]string{
				"name":             "Jane Doe",
				"username":         "janedoe",
				"email":            "jane@test.il",
				"password":         "V3ry$ecret!x",
				"password_confirm": "V3ry$ecret!x",
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/register"
			rec := tt.run(t, deps.server)

			if tt.wantCode == http.StatusCreated {
				var body map[string]interface{}
				decodeBody(t, rec, &body)
				assert.Equal(t, "janedoe", body["username"])
				assert.NotContains(t, rec.Body.String(), "password")
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	deps := setup(t)
	createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)
	createUser(t, deps.usrRepo, "Gone", "goneuser", "gone@test.il", "V3ry$ecret!x", false)

	tests := []httpTest{
		{
			name:     "unknown user",
			body:     marshallObj(t, map[string]string{"username": "nobody", "password": "V3ry$ecret!x"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			body:     marshallObj(t, map[string]string{"username": "janedoe", "password": "nope"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "deactivated account",
			body:     marshallObj(t, map[string]string{"username": "goneuser", "password": "V3ry$ecret!x"}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "ok with username",
			body: marshallObj(t, map[string]string{"username": "janedoe", "password": "V3ry$ecret!x"}),
		},
		{
			name: "ok with email",
			body: marshallObj(t, map[string]string{"username": "jane@test.il", "password": "V3ry$ecret!x"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/login"
			rec := tt.run(t, deps.server)

			if rec.Code == http.StatusOK {
				var body LoginResponse
				decodeBody(t, rec, &body)
				assert.NotEmpty(t, body.Token)
			}
		})
	}
}

func Test_userApi_me(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)

	tests := []httpTest{
		{name: "no token", path: "/v1/users/me", wantCode: http.StatusUnauthorized},
		{name: "ok", path: "/v1/users/me", token: getToken(t, usr), wantData: marshallObj(t, usr)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, deps.server)
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	deps := setup(t)
	usr := createUser(t, deps.usrRepo, "Jane", "janedoe", "jane@test.il", "V3ry$ecret!x", true)

	tt := httpTest{
		method: http.MethodPost,
		path:   "/v1/users/token-refresh",
		token:  getToken(t, usr),
	}
	rec := tt.run(t, deps.server)

	var body LoginResponse
	decodeBody(t, rec, &body)
	require.NotEmpty(t, body.Token)
}
