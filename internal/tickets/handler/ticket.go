package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"hospiq/internal/tickets/service"
	"hospiq/pkg/auth"
	apperrors "hospiq/pkg/errors"
	httputil "hospiq/pkg/http"
	"hospiq/pkg/logger"
	"hospiq/pkg/model"
)

type TicketHandler struct {
	service service.TicketService
	log     *logger.Logger
}

func NewTicketHandler(service service.TicketService, log *logger.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		log:     log,
	}
}

func (h *TicketHandler) user(w http.ResponseWriter, r *http.Request, operation string) (auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Authentication required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", operation, "operation", "WriteError", "error", writeErr)
		}
		return auth.User{}, false
	}
	return user, true
}

func (h *TicketHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, ok := h.user(w, r, "Book")
	if !ok {
		return
	}

	var req model.BookTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Book(r.Context(), user.ID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Book", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, "Ticket booked successfully", result); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "operation", "WriteCreated", "error", err)
	}
}

func (h *TicketHandler) GetByUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := h.user(w, r, "GetByUser")
	if !ok {
		return
	}

	userID := ps.ByName("user_id")
	if userID != user.ID && !user.IsStaff() {
		if writeErr := httputil.WriteError(w, apperrors.Forbidden("You can only view your own tickets")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByUser", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByUser", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	filter, err := parseTicketFilter(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByUser", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	tickets, total, err := h.service.GetByUser(r.Context(), userID, filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByUser", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, "Tickets retrieved successfully", tickets, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetByUser", "operation", "WritePaginated", "error", err)
	}
}

func (h *TicketHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := h.user(w, r, "GetByID")
	if !ok {
		return
	}

	details, err := h.service.GetDetails(r.Context(), user, ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Ticket retrieved successfully", details); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := h.user(w, r, "UpdateStatus")
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	ticket, err := h.service.UpdateStatus(r.Context(), user, ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Ticket status updated successfully", ticket); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TicketHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := h.user(w, r, "CheckIn")
	if !ok {
		return
	}

	ticket, err := h.service.CheckIn(r.Context(), user.ID, ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckIn", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Checked in successfully", ticket); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckIn", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TicketHandler) Rate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user, ok := h.user(w, r, "Rate")
	if !ok {
		return
	}

	var req model.RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	ticket, err := h.service.Rate(r.Context(), user.ID, ps.ByName("id"), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Rate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, "Rating saved successfully", ticket); err != nil {
		h.log.Error("failed to write success response", "handler", "Rate", "operation", "WriteSuccess", "error", err)
	}
}

func parseTicketFilter(r *http.Request) (*model.TicketFilter, error) {
	query := r.URL.Query()
	filter := &model.TicketFilter{
		Status:     model.TicketStatus(query.Get("status")),
		HospitalID: query.Get("hospital_id"),
	}

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.InvalidInput("invalid status filter: " + string(filter.Status))
	}

	if s := query.Get("from"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid from parameter, must be RFC3339")
		}
		filter.From = &parsed
	}
	if s := query.Get("to"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid to parameter, must be RFC3339")
		}
		filter.To = &parsed
	}

	return filter, nil
}

func (h *TicketHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/tickets", h.Book)
	router.GET("/api/v1/tickets/user/:user_id", h.GetByUser)
	router.GET("/api/v1/tickets/id/:id", h.GetByID)
	router.PUT("/api/v1/tickets/id/:id/status", h.UpdateStatus)
	router.POST("/api/v1/tickets/id/:id/checkin", h.CheckIn)
	router.POST("/api/v1/tickets/id/:id/rating", h.Rate)
}
