package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloudacct/accountsvc/types"
)

type contextKey string

const contextAccountKey contextKey = "account"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func accountFromContext(ctx context.Context) (types.Account, error) {
	account, ok := ctx.Value(contextAccountKey).(types.Account)
	if !ok {
		return types.Account{}, errors.New("missing account")
	}
	return account, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
