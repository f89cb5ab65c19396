package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/warebase/go-session/apiclient"
)

// ChangePasswordMessage carries a password change for the authenticated
// account. BackendToken must come from the current session; the command has
// no other way to prove who is asking.
type ChangePasswordMessage struct {
	BackendToken string `json:"-"`
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
}

func (e ChangePasswordMessage) Type() string { return "user.change_password" }

type ChangePasswordHandler struct {
	api *apiclient.Client
}

func NewChangePasswordHandler(api *apiclient.Client) *ChangePasswordHandler {
	return &ChangePasswordHandler{api: api}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.BackendToken == "" {
		return goerrors.New("password change requires an authenticated session", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.ChangePassword(ctx, event.BackendToken, event.OldPassword, event.NewPassword); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			if richErr.Category == goerrors.CategoryAuth {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "current password is incorrect")
			}
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change failed")
	}

	return nil
}
