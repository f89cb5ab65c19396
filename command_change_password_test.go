package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	session "github.com/warebase/go-session"
	"github.com/warebase/go-session/apiclient"
)

func TestChangePasswordHandler_Execute(t *testing.T) {
	t.Run("forwards the change with the backend token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/user/password/", r.URL.Path)
			assert.Equal(t, "Bearer backend-token", r.Header.Get("Authorization"))

			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "oldpassword", req["oldPassword"])
			assert.Equal(t, "newpassword1", req["newPassword"])

			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		handler := session.NewChangePasswordHandler(apiclient.New(server.URL))

		err := handler.Execute(context.Background(), session.ChangePasswordMessage{
			BackendToken: "backend-token",
			OldPassword:  "oldpassword",
			NewPassword:  "newpassword1",
		})

		assert.NoError(t, err)
	})

	t.Run("rejection maps to an incorrect password error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		handler := session.NewChangePasswordHandler(apiclient.New(server.URL))

		err := handler.Execute(context.Background(), session.ChangePasswordMessage{
			BackendToken: "backend-token",
			OldPassword:  "wrong",
			NewPassword:  "newpassword1",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "current password is incorrect")
	})

	t.Run("requires a backend token", func(t *testing.T) {
		handler := session.NewChangePasswordHandler(apiclient.New("http://localhost:8000"))

		err := handler.Execute(context.Background(), session.ChangePasswordMessage{
			OldPassword: "oldpassword",
			NewPassword: "newpassword1",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "authenticated session")
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		handler := session.NewChangePasswordHandler(apiclient.New("http://localhost:8000"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handler.Execute(ctx, session.ChangePasswordMessage{BackendToken: "backend-token"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "context cancelled")
	})
}
