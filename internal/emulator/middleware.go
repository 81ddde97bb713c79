package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"simplebudget/internal/api"
)

type contextKey string

const (
	contextKeyUser   contextKey = "user"
	contextKeyBudget contextKey = "budget"
)

// AuthMiddleware requires a bearer token. The token itself identifies the user.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, strings.TrimSpace(parts[1]))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BudgetScope requires X-Budget-ID naming a budget the caller belongs to.
func BudgetScope(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(api.HeaderBudgetID)
			if raw == "" {
				writeJSONError(w, http.StatusBadRequest, "Missing "+api.HeaderBudgetID+" header")
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "Invalid "+api.HeaderBudgetID+" header")
				return
			}
			if err := store.IsMember(userFrom(r.Context()), id); err != nil {
				writeStoreError(w, err, "Budget")
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyBudget, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(contextKeyUser).(string)
	return user
}

func budgetFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKeyBudget).(int64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the {"detail": ...} envelope the client decodes.
func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.ErrorBody{Detail: detail})
}

func writeStoreError(w http.ResponseWriter, err error, entity string) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSONError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "You are not a member of this budget")
	case errors.Is(err, ErrDuplicateName):
		writeJSONError(w, http.StatusConflict, entity+" name already exists for this month")
	case errors.Is(err, ErrConflict):
		writeJSONError(w, http.StatusConflict, entity+" already used")
	default:
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}
