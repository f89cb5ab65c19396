package session

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/warebase/go-session/apiclient"
)

// RegisterUserMessage carries a registration request. The backend owns
// password policy and hashing; we forward the pair over TLS and map the
// outcome.
type RegisterUserMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	api *apiclient.Client
}

func NewRegisterUserHandler(api *apiclient.Client) *RegisterUserHandler {
	return &RegisterUserHandler{api: api}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := h.api.Register(ctx, event.Email, event.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			if richErr.Category == goerrors.CategoryConflict {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "email already registered")
			}
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration failed")
	}

	return nil
}
