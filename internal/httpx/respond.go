package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the error taxonomy onto HTTP statuses. Unclassified
// errors surface as 500 with a generic body; the detail goes to the log,
// not the client.
func writeError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{err.Error()})
	case apperr.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorBody{err.Error()})
	case apperr.KindUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorBody{err.Error()})
	case apperr.KindForbidden:
		writeJSON(w, http.StatusForbidden, errorBody{err.Error()})
	case apperr.KindPaymentFailed:
		writeJSON(w, http.StatusPaymentRequired, errorBody{err.Error()})
	case apperr.KindUnavailable:
		logrus.WithError(err).Error("dependency unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{"service temporarily unavailable"})
	default:
		logrus.WithError(err).Error("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{"internal error"})
	}
}
