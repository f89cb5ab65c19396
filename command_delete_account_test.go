package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	session "github.com/warebase/go-session"
	"github.com/warebase/go-session/apiclient"
)

func TestDeleteAccountHandler_Execute(t *testing.T) {
	t.Run("deletes the account behind the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/user/", r.URL.Path)
			assert.Equal(t, "Bearer backend-token", r.Header.Get("Authorization"))

			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		handler := session.NewDeleteAccountHandler(apiclient.New(server.URL))

		err := handler.Execute(context.Background(), session.DeleteAccountMessage{
			BackendToken: "backend-token",
		})

		assert.NoError(t, err)
	})

	t.Run("requires a backend token", func(t *testing.T) {
		handler := session.NewDeleteAccountHandler(apiclient.New("http://localhost:8000"))

		err := handler.Execute(context.Background(), session.DeleteAccountMessage{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "authenticated session")
	})

	t.Run("backend rejection propagates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "token revoked"}`))
		}))
		defer server.Close()

		handler := session.NewDeleteAccountHandler(apiclient.New(server.URL))

		err := handler.Execute(context.Background(), session.DeleteAccountMessage{
			BackendToken: "backend-token",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "token revoked")
	})

	t.Run("cancelled context short-circuits", func(t *testing.T) {
		handler := session.NewDeleteAccountHandler(apiclient.New("http://localhost:8000"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := handler.Execute(ctx, session.DeleteAccountMessage{BackendToken: "backend-token"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "context cancelled")
	})
}
