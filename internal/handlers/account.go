package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cloudacct/accountsvc/internal/services"
	"github.com/cloudacct/accountsvc/types"
	"github.com/go-chi/chi/v5"
)

// AccountService is the slice of the account use-cases the HTTP layer
// depends on.
type AccountService interface {
	CreateAccount(ctx context.Context, email, rawPassword, firstName, lastName string) (types.Account, error)
	RedeemToken(ctx context.Context, token string) (services.VerificationOutcome, error)
	Authenticate(ctx context.Context, email, rawPassword string) (types.Account, error)
}

// AccountHandler provides the /v1 account endpoints.
type AccountHandler struct {
	accounts AccountService
}

func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRouter registers the account routes on the given router.
func AccountRouter(r chi.Router, accounts AccountService) {
	handler := NewAccountHandler(accounts)

	r.Post("/user", handler.Create)
	r.Get("/verify", handler.Verify)
	r.With(handler.RequireBasicAuth).Get("/user/self", handler.Self)
}

// RequireBasicAuth authenticates the request with HTTP basic auth and
// injects the account into the context. Authentication already demands
// a verified account, so unverified credentials fail here with 401.
func (h *AccountHandler) RequireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="restricted"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		account, err := h.accounts.Authenticate(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		ctx := context.WithValue(r.Context(), contextAccountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type CreateUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type CreateUserResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// Create handles POST /v1/user.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"email", req.Email},
		{"password", req.Password},
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, CreateUserResponse{
		Message: "user created successfully, verification email sent",
		UserID:  account.ID,
	})
}

// Verify handles GET /v1/verify?token=.
func (h *AccountHandler) Verify(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	outcome, err := h.accounts.RedeemToken(r.Context(), tok)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidToken):
			writeError(w, http.StatusBadRequest, "invalid or expired token")
		case errors.Is(err, services.ErrNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to verify user")
		}
		return
	}

	if outcome == services.OutcomeAlreadyVerified {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "user is already verified"})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "user verified successfully"})
}

type SelfResponse struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	AccountCreated string `json:"account_created"`
	AccountUpdated string `json:"account_updated"`
}

// Self handles GET /v1/user/self.
func (h *AccountHandler) Self(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, SelfResponse{
		Email:          account.Email,
		FirstName:      account.FirstName,
		LastName:       account.LastName,
		AccountCreated: account.AccountCreated.Format(time.RFC3339),
		AccountUpdated: account.AccountUpdated.Format(time.RFC3339),
	})
}
