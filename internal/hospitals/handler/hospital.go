package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hospiq/internal/hospitals/service"
	"hospiq/pkg/auth"
	apperrors "hospiq/pkg/errors"
	httputil "hospiq/pkg/http"
	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

type HospitalHandler struct {
	service service.HospitalService
	log     *logger.Logger
}

func NewHospitalHandler(service service.HospitalService, log *logger.Logger) *HospitalHandler {
	return &HospitalHandler{
		service: service,
		log:     log,
	}
}

// requireAdmin returns the authenticated admin user, writing the error
// response itself when the caller is missing or underprivileged.
func (h *HospitalHandler) requireAdmin(w http.ResponseWriter, r *http.Request, operation string) bool {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Authentication required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", operation, "operation", "WriteError", "error", writeErr)
		}
		return false
	}
	if !user.IsAdmin() {
		if writeErr := httputil.WriteError(w, apperrors.Forbidden("Administrator privileges required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", operation, "operation", "WriteError", "error", writeErr)
		}
		return false
	}
	return true
}

func (h *HospitalHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.requireAdmin(w, r, "Create") {
		return
	}

	var hospital model.Hospital
	if err := json.NewDecoder(r.Body).Decode(&hospital); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &hospital); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, "Hospital created successfully", hospital); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *HospitalHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	hospital, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Hospital retrieved successfully", hospital); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *HospitalHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter := &model.HospitalFilter{
		City:        query.Get("city"),
		CounterType: query.Get("counter_type"),
		OnlyActive:  query.Get("only_active") == "true",
	}

	hospitals, total, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, "Hospitals retrieved successfully", hospitals, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *HospitalHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "Update") {
		return
	}

	id := ps.ByName("id")

	var updates model.HospitalUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.Update(r.Context(), id, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *HospitalHandler) UpdateCounter(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if !h.requireAdmin(w, r, "UpdateCounter") {
		return
	}

	hospitalID := ps.ByName("id")
	counterID := ps.ByName("counter_id")

	var updates model.CounterUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateCounter", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateCounter(r.Context(), hospitalID, counterID, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateCounter", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *HospitalHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/hospitals", h.Create)
	router.GET("/api/v1/hospitals", h.GetAll)
	router.GET("/api/v1/hospitals/id/:id", h.GetByID)
	router.PATCH("/api/v1/hospitals/id/:id", h.Update)
	router.PATCH("/api/v1/hospitals/id/:id/counters/:counter_id", h.UpdateCounter)
}
