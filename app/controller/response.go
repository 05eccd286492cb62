package controller

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"prime-nature-nuts/apperror"
	"prime-nature-nuts/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindDecode:
		return http.StatusUnprocessableEntity
	case apperror.KindUpload:
		return http.StatusBadGateway
	case apperror.KindFetch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Error("❌ Error encoding response", zap.Error(err))
	}
}

// writeError logs err under op and reports its kind and message
func writeError(w http.ResponseWriter, op string, err error) {
	kind := apperror.KindOf(err)
	status := StatusFor(kind)

	if status >= http.StatusInternalServerError {
		logger.Get().Error("❌ "+op+" failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		logger.Get().Info("⚠️  "+op+" rejected", zap.String("kind", string(kind)), zap.Error(err))
	}

	msg := apperror.MessageOf(err)
	if kind == apperror.KindInternal {
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: string(kind)})
}

func decodeJSON(r *http.Request, op string, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Validation(op, "invalid JSON body: "+err.Error())
	}
	return nil
}
