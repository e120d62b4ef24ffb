package handlers

import (
	"net/http"

	httperrors "github.com/hungfnt/torrust-tracker/internal/transport/http/errors"
)

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
		Code:    code,
		Message: message,
	})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
		Code:    code,
		Message: message,
	})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
		Code:    code,
		Message: message,
	})
}
