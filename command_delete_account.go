package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/warebase/go-session/apiclient"
)

// DeleteAccountMessage removes the authenticated account. The caller is
// expected to log the session out afterwards; the cookie does not expire on
// its own just because the account went away.
type DeleteAccountMessage struct {
	BackendToken string `json:"-"`
}

func (e DeleteAccountMessage) Type() string { return "user.delete_account" }

type DeleteAccountHandler struct {
	api *apiclient.Client
}

func NewDeleteAccountHandler(api *apiclient.Client) *DeleteAccountHandler {
	return &DeleteAccountHandler{api: api}
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	if event.BackendToken == "" {
		return goerrors.New("account deletion requires an authenticated session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.DeleteAccount(ctx, event.BackendToken); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion failed")
	}

	return nil
}
