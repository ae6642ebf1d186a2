package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/educa/apps/api/echo"
	"github.com/trezcool/educa/core/user"
	emailsvc "github.com/trezcool/educa/services/email"
	testutil "github.com/trezcool/educa/tests"
)

func lastActivationMailData(t *testing.T) user.ActivationMailData {
	t.Helper()

	require.NotEmpty(t, emailsvc.SentMessages, "no activation email was sent")
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	data, ok := msg.TemplateData.(user.ActivationMailData)
	require.True(t, ok, "unexpected mail template data: %T", msg.TemplateData)
	return data
}

func Test_userApi_signupActivate(t *testing.T) {
	app := setup(t)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	body := marchallObj(t, user.NewUser{
		Name:            "Pavlov Lompo",
		Username:        "pavlov",
		Email:           "pavlov@test.cd",
		Password:        "S3cret!pass",
		PasswordConfirm: "S3cret!pass",
	})

	// sign up
	req, rec := newRequest(http.MethodPost, "/api/users/signup", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// the account exists but cannot log in yet
	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "pavlov"})
	require.NoError(t, err)
	assert.False(t, usr.IsActive)

	loginBody := marchallObj(t, LoginRequest{Username: "pavlov", Password: "S3cret!pass"})
	req, rec = newRequest(http.MethodPost, "/api/users/login", loginBody)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// an activation email went out with the link parameters
	mailData := lastActivationMailData(t)
	assert.Equal(t, "pavlov", mailData.Username)
	require.NotEmpty(t, mailData.UID)
	require.NotEmpty(t, mailData.Token)

	// activate
	req, rec = newRequest(http.MethodGet, "/api/users/activate/"+mailData.UID+"/"+mailData.Token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ActivationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token, "activation should log the user in")

	usr, err = usrRepo.GetUser(context.Background(), user.GetFilter{Username: "pavlov"})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)

	// the consumed link can never be replayed
	req, rec = newRequest(http.MethodGet, "/api/users/activate/"+mailData.UID+"/"+mailData.Token)
	app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "wrong link"})}
	checkCodeAndData(t, tt, rec)

	// login now works
	req, rec = newRequest(http.MethodPost, "/api/users/login", loginBody)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var loginRes LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginRes))
	assert.NotEmpty(t, loginRes.Token)
}

func Test_userApi_signup_invalidData(t *testing.T) {
	app := setup(t)

	testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "S3cret!pass", nil, true)

	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, user.NewUser{Name: "Lol"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "password mismatch", body: marchallObj(t, user.NewUser{
				Username: "pav", Email: "pav@test.cd", Password: "S3cret!pass", PasswordConfirm: "nope",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate username", body: marchallObj(t, user.NewUser{
				Username: "awe", Email: "new@test.cd", Password: "S3cret!pass", PasswordConfirm: "S3cret!pass",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "duplicate email", body: marchallObj(t, user.NewUser{
				Username: "newuser", Email: "awe@test.cd", Password: "S3cret!pass", PasswordConfirm: "S3cret!pass",
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/signup", tt.body)
			app.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func Test_userApi_activate_invalidLinks(t *testing.T) {
	app := setup(t)
	emailsvc.SentMessages = emailsvc.SentMessages[:0]

	body := marchallObj(t, user.NewUser{
		Username: "pavlov", Email: "pavlov@test.cd",
		Password: "S3cret!pass", PasswordConfirm: "S3cret!pass",
	})
	req, rec := newRequest(http.MethodPost, "/api/users/signup", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	mailData := lastActivationMailData(t)

	wrongLink := marchallObj(t, httpErr{Error: "wrong link"})
	tests := []httpTest{
		{name: "garbage uid", path: "/api/users/activate/!!!/" + mailData.Token},
		{name: "unknown user", path: "/api/users/activate/bG9s/" + mailData.Token},
		{name: "tampered token", path: "/api/users/activate/" + mailData.UID + "/" + mailData.Token + "x"},
		{name: "token for another uid", path: "/api/users/activate/bG9s/" + mailData.Token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			tt.wantCode = http.StatusBadRequest
			tt.wantData = wrongLink
			checkCodeAndData(t, tt, rec)
		})
	}

	// none of those attempts activated the account
	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: "pavlov"})
	require.NoError(t, err)
	assert.False(t, usr.IsActive)
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "S3cret!pass", nil, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog", "ndog@test.cd", "S3cret!pass", nil, false)

	tests := []httpTest{
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive account", body: marchallObj(t, LoginRequest{Username: "ndog", Password: "S3cret!pass"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login with username", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Username, Password: "S3cret!pass"})
		req, rec := newRequest(http.MethodPost, "/api/users/login", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
	})

	t.Run("login with email", func(t *testing.T) {
		body := marchallObj(t, LoginRequest{Username: usr.Email, Password: "S3cret!pass"})
		req, rec := newRequest(http.MethodPost, "/api/users/login", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "S3cret!pass", nil, true)
	token := getToken(t, usr)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/users/token-refresh")
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("refresh", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/users/token-refresh", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.Token)
	})
}

func Test_userApi_adminEndpoints(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "S3cret!pass", nil, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "S3cret!pass", []string{user.RoleAdmin}, true)
	usrToken := getToken(t, usr)
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "query: auth required", method: http.MethodGet, path: "/api/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "query: admin required", method: http.MethodGet, path: "/api/users", token: usrToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "query: all users", method: http.MethodGet, path: "/api/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, usr, admin),
		},
		{
			name: "retrieve: self", method: http.MethodGet, path: "/api/users/" + usr.ID, token: usrToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "retrieve: someone else's is a 404", method: http.MethodGet, path: "/api/users/" + admin.ID, token: usrToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "retrieve: admin sees all", method: http.MethodGet, path: "/api/users/" + usr.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "destroy: admin required", method: http.MethodDelete, path: "/api/users/" + usr.ID, token: usrToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/users/"+usr.ID, adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
