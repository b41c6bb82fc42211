package handler

import (
	"encoding/json"
	"net/http"

	"courtside/internal/booking/service"
	apperrors "courtside/pkg/errors"
	httputil "courtside/pkg/http"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type holdRequest struct {
	model.Window
	HolderID string `json:"holder_id"`
}

type releaseRequest struct {
	LeaseID  string `json:"lease_id"`
	HolderID string `json:"holder_id"`
}

type confirmPaymentRequest struct {
	Approve bool `json:"approve"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type BookingHandler struct {
	finalizer service.FinalizerService
	leases    service.LeaseService
	log       *logger.Logger
}

func NewBookingHandler(finalizer service.FinalizerService, leases service.LeaseService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		finalizer: finalizer,
		leases:    leases,
		log:       log,
	}
}

func (h *BookingHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var window model.Window
	if err := json.NewDecoder(r.Body).Decode(&window); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Quote", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	quote, err := h.finalizer.Quote(r.Context(), window)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Quote", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Hold(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Hold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.finalizer.Hold(r.Context(), req.Window, req.HolderID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Hold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Hold", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Release(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Release", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.leases.Release(r.Context(), req.LeaseID, req.HolderID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Release", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Finalize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Finalize", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.finalizer.Finalize(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Finalize", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Finalize", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.finalizer.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListByCustomer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The 'customer_id' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByCustomer", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByCustomer", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	bookings, total, err := h.finalizer.ListByCustomer(r.Context(), customerID, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByCustomer", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListByCustomer", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ConfirmPayment", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.finalizer.ConfirmPayment(r.Context(), ps.ByName("id"), req.Approve)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ConfirmPayment", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "ConfirmPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Transition", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.finalizer.Transition(r.Context(), ps.ByName("id"), req.Status)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Transition", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	courtID := ps.ByName("id")
	date := r.URL.Query().Get("date")
	if date == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("The 'date' query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.leases.Availability(r.Context(), courtID, date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Availability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

// Held answers whether a window is held or booked from the viewpoint of
// an optional excluded holder. Availability displays poll this before
// offering a slot.
func (h *BookingHandler) Held(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q := r.URL.Query()
	window := model.Window{
		CourtID:   ps.ByName("id"),
		Date:      q.Get("date"),
		Start:     q.Get("start"),
		End:       q.Get("end"),
		Overnight: q.Get("overnight") == "true",
	}

	held, err := h.leases.IsHeld(r.Context(), window, q.Get("exclude_holder"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Held", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"held": held}); err != nil {
		h.log.Error("failed to write success response", "handler", "Held", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/quote", h.Quote)
	router.POST("/api/v1/bookings/hold", h.Hold)
	router.POST("/api/v1/bookings/release", h.Release)
	router.POST("/api/v1/bookings/finalize", h.Finalize)
	router.GET("/api/v1/bookings", h.ListByCustomer)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/payment", h.ConfirmPayment)
	router.POST("/api/v1/bookings/id/:id/status", h.Transition)
	router.GET("/api/v1/courts/id/:id/availability", h.Availability)
	router.GET("/api/v1/courts/id/:id/held", h.Held)
}
