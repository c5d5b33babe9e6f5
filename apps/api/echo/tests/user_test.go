package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core/user"
)

func Test_userApi_register(t *testing.T) {
	env := newEnv(t)

	t.Run("ok", func(t *testing.T) {
		body := marshalObj(t, user.NewUser{
			Name:            "Jane Doe",
			Username:        "janedoe",
			Email:           "janedoe@test.test",
			Role:            user.RoleStudent,
			Password:        testPassword,
			PasswordConfirm: testPassword,
		})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/register", body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.NotEmpty(t, usr.ID)
		assert.Equal(t, "janedoe", usr.Username)
		assert.NotContains(t, rec.Body.String(), "password") // hash never serialized
	})

	t.Run("unknown role", func(t *testing.T) {
		body := marshalObj(t, user.NewUser{
			Name:            "John Doe",
			Username:        "johndoe",
			Role:            "DEAN",
			Password:        testPassword,
			PasswordConfirm: testPassword,
		})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/register", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Equal(t, "invalid role", fields["role"])
	})

	t.Run("taken username", func(t *testing.T) {
		body := marshalObj(t, user.NewUser{
			Name:            "Jane Imposter",
			Username:        "janedoe",
			Email:           "imposter@test.test",
			Role:            user.RoleStudent,
			Password:        testPassword,
			PasswordConfirm: testPassword,
		})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/register", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields, "username")
	})
}

func Test_userApi_login(t *testing.T) {
	env := newEnv(t)
	usr := env.createUser(t, "janedoe", user.RoleStudent)

	t.Run("ok", func(t *testing.T) {
		token := env.login(t, usr)
		assert.NotEmpty(t, token)
	})

	t.Run("email works too, case insensitive", func(t *testing.T) {
		body := marshalObj(t, echoapi.LoginRequest{Username: " JaneDoe@test.test ", Password: testPassword})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/login", body))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("bad password", func(t *testing.T) {
		body := marshalObj(t, echoapi.LoginRequest{Username: "janedoe", Password: "wr0ngPassw0rd"})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/login", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httpErr
		decode(t, rec, &resp)
		assert.Equal(t, "authentication failed", resp.Error)
	})

	t.Run("unknown user is indistinguishable", func(t *testing.T) {
		body := marshalObj(t, echoapi.LoginRequest{Username: "nobody", Password: testPassword})
		rec := env.do(newRequest(http.MethodPost, "/v1/users/login", body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp httpErr
		decode(t, rec, &resp)
		assert.Equal(t, "authentication failed", resp.Error)
	})
}

func Test_userApi_profile(t *testing.T) {
	env := newEnv(t)
	usr := env.createUser(t, "janedoe", user.RoleStudent)
	token := env.login(t, usr)

	t.Run("auth required", func(t *testing.T) {
		rec := env.do(newRequest(http.MethodGet, "/v1/users/me"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, string(marshalObj(t, errMissingToken)), rec.Body.String())
	})

	t.Run("me", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/users/me", token))
		require.Equal(t, http.StatusOK, rec.Code)

		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, usr.ID, got.ID)
	})

	t.Run("role is immutable", func(t *testing.T) {
		body := marshalObj(t, user.UpdateUser{Role: user.RoleProfessor})
		rec := env.do(newAuthRequest(http.MethodPut, "/v1/users/me", token, body))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var fields map[string]string
		decode(t, rec, &fields)
		assert.Equal(t, "role cannot be changed", fields["role"])
	})

	t.Run("update name", func(t *testing.T) {
		body := marshalObj(t, user.UpdateUser{Name: "Jane D."})
		rec := env.do(newAuthRequest(http.MethodPut, "/v1/users/me", token, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "Jane D.", got.Name)
		assert.Equal(t, usr.Username, got.Username)
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env := newEnv(t)
	usr := env.createUser(t, "janedoe", user.RoleStudent)
	token := env.login(t, usr)

	rec := env.do(newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func Test_userApi_roles(t *testing.T) {
	env := newEnv(t)
	usr := env.createUser(t, "janedoe", user.RoleStudent)
	token := env.login(t, usr)

	rec := env.do(newAuthRequest(http.MethodGet, "/v1/users/roles", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, string(marshalObj(t, user.Roles)), rec.Body.String())
}
