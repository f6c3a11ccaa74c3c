package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/theirongolddev/spendgrid/internal/authz"
	"github.com/theirongolddev/spendgrid/internal/platform"
	"github.com/theirongolddev/spendgrid/internal/reconcile"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error               string `json:"error"`
	Message             string `json:"message"`
	ExistingAmountCents *int64 `json:"existingAmountCents,omitempty"`
	RowIndex            *int   `json:"rowIndex,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and error body. op names the
// operation in logs when the failure is internal.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		forbidden *authz.ForbiddenError
		conflict  *reconcile.ConflictError
		rowErr    *reconcile.RowError
	)

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHENTICATED", Message: "Unauthorized"})
	case errors.Is(err, authz.ErrNotMember):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "NOT_A_MEMBER", Message: "Not a member of org"})
	case errors.As(err, &forbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "FORBIDDEN", Message: "Forbidden: requires " + forbidden.Required.String()})

	case errors.As(err, &conflict):
		amount := conflict.ExistingAmountCents
		writeJSON(w, http.StatusConflict, errorBody{
			Error:               string(conflict.Kind),
			Message:             conflict.Error(),
			ExistingAmountCents: &amount,
		})
	case errors.Is(err, reconcile.ErrConcurrentImport):
		writeJSON(w, http.StatusConflict, errorBody{Error: "CONCURRENT_IMPORT", Message: "another import touched the same dates; retry"})

	case errors.As(err, &rowErr):
		idx := rowErr.Index
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_ROW", Message: rowErr.Reason, RowIndex: &idx})
	case errors.Is(err, reconcile.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_REQUEST", Message: err.Error()})
	case errors.Is(err, platform.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "INVALID_NAME", Message: err.Error()})

	case errors.Is(err, platform.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "ALREADY_EXISTS", Message: "platform already exists"})
	case errors.Is(err, platform.ErrProviderExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: "PROVIDER_EXISTS", Message: "provider already linked"})

	case errors.Is(err, reconcile.ErrPlatformNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "PLATFORM_NOT_FOUND", Message: "platform not found"})
	case errors.Is(err, reconcile.ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "NOT_FOUND", Message: "Not found"})

	default:
		log.Printf("spendgrid %s failed: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "INTERNAL", Message: "internal error"})
	}
}
