package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/medfata/inkscore-sub000/internal/chainutil"
)

// apiError is the envelope every failing handler writes.
type apiError struct {
	Error string `json:"error"`
}

func writeAPIResponse(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeAPIError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: msg})
}

// parseLimitOffset reads "limit"/"page" query params with the given default
// and ceiling, defaulting to page 1.
func parseLimitOffset(r *http.Request, defLimit, maxLimit int) (limit, page int) {
	limit = defLimit
	page = 1
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	return limit, page
}

// normalizeWalletParam pulls the wallet path param, normalizes it, and
// reports whether it is a well-formed EVM address.
func normalizeWalletParam(raw string) (string, bool) {
	addr := chainutil.NormalizeAddress(raw)
	return addr, chainutil.IsValidAddress(addr)
}
