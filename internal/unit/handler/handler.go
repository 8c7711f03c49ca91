package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/fekuna/omnipos-catalog-service/internal/unit"
	"github.com/fekuna/omnipos-catalog-service/internal/unit/dto"
	"github.com/julienschmidt/httprouter"
)

type UnitHandler struct {
	uc     unit.UseCase
	logger logger.ZapLogger
}

func NewUnitHandler(uc unit.UseCase, log logger.ZapLogger) *UnitHandler {
	return &UnitHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *UnitHandler) RegisterRoutes(r *httprouter.Router, prefix string) {
	r.GET(prefix+"/units", h.ListUnits)
	r.POST(prefix+"/units", h.CreateUnit)
	r.GET(prefix+"/units/:id", h.GetUnit)
	r.PATCH(prefix+"/units/:id", h.UpdateUnit)
	r.DELETE(prefix+"/units/:id", h.DeleteUnit)
}

func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input dto.CreateUnitInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	u, err := h.uc.CreateUnit(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "unit created", u)
}

func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	u, err := h.uc.GetUnit(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "unit retrieved", u)
}

func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, pageSize, err := httpx.Page(r)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	filters := &dto.UnitFilters{
		UnitType: r.URL.Query().Get("unit_type"),
		Page:     page,
		PageSize: pageSize,
	}
	units, total, err := h.uc.ListUnits(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "units retrieved", httpx.ListData{Items: units, Total: total, Page: page, PageSize: pageSize})
}

func (h *UnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.UpdateUnitInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.ID = id

	u, err := h.uc.UpdateUnit(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "unit updated", u)
}

func (h *UnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.DeleteUnit(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "unit deleted", nil)
}
