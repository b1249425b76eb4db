package http

import (
	"encoding/json"
	"net/http"

	apperrors "hospiq/pkg/errors"
)

// Response is the uniform envelope every endpoint returns.
type Response struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    any                     `json:"data,omitempty"`
	Errors  []apperrors.FieldError  `json:"errors,omitempty"`
}

type Page struct {
	Items      any   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.AsAppError(err)

	statusCode := appErr.HTTPStatus
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}

	message := appErr.Message
	if statusCode == http.StatusInternalServerError {
		message = "Internal server error"
	}

	return WriteJSON(w, statusCode, Response{
		Success: false,
		Message: message,
		Errors:  appErr.Fields,
		Data:    detailsOrNil(appErr),
	})
}

func detailsOrNil(e *apperrors.AppError) any {
	if len(e.Details) == 0 {
		return nil
	}
	return e.Details
}

func WriteSuccess(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func WriteCreated(w http.ResponseWriter, message string, data any) error {
	return WriteJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, message string, items any, totalCount int64, limit int, offset int64) error {
	return WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data: Page{
			Items:      items,
			TotalCount: totalCount,
			Limit:      limit,
			Offset:     offset,
		},
	})
}
