package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

func userIDs(t *testing.T, body []byte) []string {
	var users []user.User
	unmarchall(t, body, &users)
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	return ids
}

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	admin := createAdmin(t, "Anita Desai", "anita@school.test")
	testutil.CreateUser(t, usrRepo, "Ravi Kumar", "ravi@school.test", goodPassword, []string{user.RoleAdmin}, false)

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "nobody@school.test", Password: goodPassword}),
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Email: admin.Email, Password: "nope"}),
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "deactivated account", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Email: "ravi@school.test", Password: goodPassword}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, app, tests)

	t.Run("logged in", func(t *testing.T) {
		body := marchallObj(t, echoapi.LoginRequest{Email: "  ANITA@school.test ", Password: goodPassword})
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		unmarchall(t, rec.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, admin.ID, resp.User.ID)
		assert.NotContains(t, rec.Body.String(), "passwordHash")

		state := store.State()
		assert.True(t, state.IsAdmin)
		require.NotNil(t, state.CurrentUser)
		assert.Equal(t, admin.Email, state.CurrentUser.Email)

		// the session is admin-only
		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/session", resp.Token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.SessionResponse{IsAdmin: true, CurrentUser: state.CurrentUser}),
		}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/users/logout", resp.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, store.State().IsAdmin)
		assert.Nil(t, store.State().CurrentUser)
	})
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	now := time.Now()
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner@school.test", goodPassword, []string{user.RoleAdminOwner}, true, now.Add(-3*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Anita Desai", "anita@school.test", goodPassword, []string{user.RoleAdmin}, true, now.Add(-2*time.Hour))
	inactive := testutil.CreateUser(t, usrRepo, "Ravi Kumar", "ravi@school.test", "", []string{user.RoleAdmin}, false, now.Add(-time.Hour))
	plain := testutil.CreateUser(t, usrRepo, "Meena", "meena@school.test", goodPassword, nil, true, now)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/users?" + v.Encode()
	}
	adminToken := getToken(t, admin)

	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
		wantIDs  []string
	}{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized},
		{name: "admin required", path: "/v1/users", token: getToken(t, plain), wantCode: http.StatusForbidden},
		{name: "deactivated admin", path: "/v1/users", token: getToken(t, inactive), wantCode: http.StatusForbidden},
		{name: "get all", path: "/v1/users", token: adminToken, wantIDs: []string{plain.ID, inactive.ID, admin.ID, owner.ID}},
		{name: "search", path: path("search", "ANITA"), token: adminToken, wantIDs: []string{admin.ID}},
		{name: "search (unknown)", path: path("search", "lol"), token: adminToken, wantIDs: []string{}},
		{name: "role", path: path("role", user.RoleAdminOwner), token: adminToken, wantIDs: []string{owner.ID}},
		{name: "isActive=false", path: path("isActive", "false"), token: adminToken, wantIDs: []string{inactive.ID}},
		{name: "order by createdAt", path: path("ordering", "createdAt"), token: adminToken, wantIDs: []string{owner.ID, admin.ID, inactive.ID, plain.ID}},
		{name: "unknown ordering ignored", path: path("ordering", "password_hash"), token: adminToken, wantIDs: []string{plain.ID, inactive.ID, admin.ID, owner.ID}},
		{name: "order by name", path: path("ordering", "-name"), token: adminToken, wantIDs: []string{inactive.ID, owner.ID, plain.ID, admin.ID}},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantIDs != nil {
				assert.Equal(t, tt.wantIDs, userIDs(t, rec.Body.Bytes()))
			}
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	owner := createAdmin(t, "Owner", "owner@school.test", user.RoleAdminOwner)
	admin := createAdmin(t, "Anita Desai", "anita@school.test")

	newUser := func(email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: "Ravi Kumar", Email: email, Password: goodPassword, PasswordConfirm: goodPassword, Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "owner required", token: getToken(t, admin), body: newUser("ravi@school.test"), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "duplicate email", token: getToken(t, owner), body: newUser("ANITA@school.test"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "unknown role", token: getToken(t, owner), body: newUser("ravi@school.test", "teacher:"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{name: "created", token: getToken(t, owner), body: newUser("ravi@school.test", user.RoleAdmin), wantCode: http.StatusCreated},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runHTTPTests(t, app, tests)

	created, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "ravi@school.test"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", created.Name)
	assert.True(t, created.IsAdmin())
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)

	owner := createAdmin(t, "Owner", "owner@school.test", user.RoleAdminOwner)
	admin := createAdmin(t, "Anita Desai", "anita@school.test")
	other := createAdmin(t, "Ravi Kumar", "ravi@school.test")
	isActive := false

	tests := []httpTest{
		{name: "own profile", path: "/v1/users/" + admin.ID, token: getToken(t, admin), body: marchallObj(t, user.UpdateUser{Name: "Anita D."})},
		{
			name: "admin cannot deactivate", path: "/v1/users/" + other.ID, token: getToken(t, admin),
			body: marchallObj(t, user.UpdateUser{IsActive: &isActive}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "owner deactivates", path: "/v1/users/" + other.ID, token: getToken(t, owner), body: marchallObj(t, user.UpdateUser{IsActive: &isActive})},
		{name: "unknown user", path: "/v1/users/00000000-0000-0000-0000-000000000000", token: getToken(t, owner), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
	}
	runHTTPTests(t, app, tests)

	usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "Anita D.", usr.Name)
	usr, err = usrRepo.GetUser(context.Background(), user.GetFilter{ID: other.ID})
	require.NoError(t, err)
	assert.False(t, usr.IsActive)
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)

	owner := createAdmin(t, "Owner", "owner@school.test", user.RoleAdminOwner)
	admin := createAdmin(t, "Anita Desai", "anita@school.test")
	other := createAdmin(t, "Ravi Kumar", "ravi@school.test")

	tests := []httpTest{
		{name: "owner required", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: getToken(t, admin), wantCode: http.StatusForbidden},
		{name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + owner.ID, token: getToken(t, owner), wantCode: http.StatusForbidden},
		{name: "cannot delete self (multiple)", method: http.MethodDelete, path: "/v1/users?id=" + other.ID + "&id=" + owner.ID, token: getToken(t, owner), wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: getToken(t, owner), wantCode: http.StatusNoContent},
		{name: "deleted (multiple)", method: http.MethodDelete, path: "/v1/users?id=" + admin.ID, token: getToken(t, owner), wantCode: http.StatusNoContent},
	}
	runHTTPTests(t, app, tests)

	users, err := usrRepo.QueryUsers(context.Background(), &user.QueryFilter{}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, owner.ID, users[0].ID)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	inactive := testutil.CreateUser(t, usrRepo, "Ravi Kumar", "ravi@school.test", "", []string{user.RoleAdmin}, false)
	admin := createAdmin(t, "Anita Desai", "anita@school.test")

	now := time.Now()
	unrefreshable := echoapi.GetUserClaims(conf, admin)
	unrefreshable.StandardClaims = jwt.StandardClaims{
		Issuer:    conf.AppName,
		Subject:   admin.ID,
		ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
		IssuedAt:  now.Unix(),
	}
	unrefreshable.OrigIssuedAt = now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix() // older than threshold
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshable)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "inactive user", token: getToken(t, inactive), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "refresh expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runHTTPTests(t, app, tests)

	t.Run("token refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, admin))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		// cannot guess new token.. just check that it's not empty
		var resp echoapi.LoginResponse
		unmarchall(t, rec.Body.Bytes(), &resp)
		assert.NotEmpty(t, resp.Token)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	admin := createAdmin(t, "Anita Desai", "anita@school.test")
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	tests := []struct {
		httpTest
		emailSent bool
	}{
		{httpTest: httpTest{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})}},
		{httpTest: httpTest{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		}},
		{httpTest: httpTest{name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}), wantData: successData}},
		{httpTest: httpTest{name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: admin.Email}), wantData: successData}, emailSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()

			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)

			msg, sent := emailsvc.LastSentMessage()
			require.Equal(t, tt.emailSent, sent)
			if sent {
				assert.Equal(t, admin.Email, msg.To[0].Address)
				assert.True(t, strings.Contains(msg.TextContent, admin.Name))
				assert.Contains(t, msg.TextContent, "/password-reset/")
			}
		})
	}
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	app := setup(t)

	admin := createAdmin(t, "Anita Desai", "anita@school.test")
	validUID := user.EncodeUID(admin)
	validToken, err := user.MakeToken(admin)
	require.NoError(t, err)

	reqMsg := "this field is required"
	newPwd := "N3w-Passw0rd!"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "passwordConfirm must equal password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: newPwd, PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "passwordConfirm must be equal to Password"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{UID: "invalid value"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, user.ResetUserPassword{Token: "invalid value"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/password-reset-confirm"
	}
	runHTTPTests(t, app, tests)

	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: admin.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, admin.PasswordHash), "password was not updated")
	assert.NoError(t, refreshed.CheckPassword(newPwd))
}
