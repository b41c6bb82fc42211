package handler

import (
	"encoding/json"
	"net/http"

	"courtside/internal/catalog/service"
	httputil "courtside/pkg/http"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ruleActiveRequest struct {
	Active bool `json:"active"`
}

type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(service service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log,
	}
}

func (h *CatalogHandler) CreateCourt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var court model.Court
	if err := json.NewDecoder(r.Body).Decode(&court); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateCourt", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateCourt(r.Context(), &court); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateCourt", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, court); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateCourt", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) GetCourt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	court, err := h.service.GetCourt(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetCourt", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, court); err != nil {
		h.log.Error("failed to write success response", "handler", "GetCourt", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) ListCourts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListCourts", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	courts, total, err := h.service.ListCourts(r.Context(), r.URL.Query().Get("owner_id"), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListCourts", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, courts, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListCourts", "operation", "WritePaginated", "error", err)
	}
}

func (h *CatalogHandler) UpdateCourt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.CourtUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateCourt", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	court, err := h.service.UpdateCourt(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateCourt", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, court); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateCourt", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) CreateRule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var rule model.PricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateRule", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateRule(r.Context(), &rule); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, rule); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRule", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) ListRules(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rules, err := h.service.ListRules(r.Context(), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListRules", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, rules); err != nil {
		h.log.Error("failed to write success response", "handler", "ListRules", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) SetRuleActive(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req ruleActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SetRuleActive", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.SetRuleActive(r.Context(), ps.ByName("id"), req.Active); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetRuleActive", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) DeleteRule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteRule(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteRule", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) CreateHoliday(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var holiday model.Holiday
	if err := json.NewDecoder(r.Body).Decode(&holiday); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateHoliday", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.CreateHoliday(r.Context(), &holiday); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateHoliday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, holiday); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateHoliday", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) ListHolidays(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListHolidays", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	holidays, total, err := h.service.ListHolidays(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListHolidays", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, holidays, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListHolidays", "operation", "WritePaginated", "error", err)
	}
}

func (h *CatalogHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteHoliday(r.Context(), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "DeleteHoliday", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/courts", h.CreateCourt)
	router.GET("/api/v1/courts", h.ListCourts)
	router.GET("/api/v1/courts/id/:id", h.GetCourt)
	router.PATCH("/api/v1/courts/id/:id", h.UpdateCourt)
	router.GET("/api/v1/courts/id/:id/rules", h.ListRules)

	router.POST("/api/v1/rules", h.CreateRule)
	router.PATCH("/api/v1/rules/id/:id/active", h.SetRuleActive)
	router.DELETE("/api/v1/rules/id/:id", h.DeleteRule)

	router.POST("/api/v1/holidays", h.CreateHoliday)
	router.GET("/api/v1/holidays", h.ListHolidays)
	router.DELETE("/api/v1/holidays/id/:id", h.DeleteHoliday)
}
