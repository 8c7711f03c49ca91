package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/julienschmidt/httprouter"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) RegisterRoutes(r *httprouter.Router, prefix string) {
	r.GET(prefix+"/products", h.ListProducts)
	r.POST(prefix+"/products", h.CreateProduct)
	r.GET(prefix+"/products/:id", h.GetProduct)
	r.PATCH(prefix+"/products/:id", h.UpdateProduct)
	r.DELETE(prefix+"/products/:id", h.DeleteProduct)

	r.GET(prefix+"/products/:id/variants", h.ListVariants)
	r.POST(prefix+"/products/:id/variants", h.AddVariant)
	r.DELETE(prefix+"/products/:id/variants/:variant_id", h.DeleteVariant)

	r.GET(prefix+"/variants/:id/prices", h.ListPrices)
	r.POST(prefix+"/variants/:id/prices", h.RecordPrice)
	r.GET(prefix+"/variants/:id/prices/latest", h.GetLatestPrice)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input dto.CreateProductInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "product created", p)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	p, err := h.uc.GetProduct(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "product retrieved", p)
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, pageSize, err := httpx.Page(r)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	filters := &dto.ProductFilters{
		Category:    q.Get("category"),
		SearchQuery: q.Get("search"),
		Page:        page,
		PageSize:    pageSize,
	}
	products, total, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "products retrieved", httpx.ListData{Items: products, Total: total, Page: page, PageSize: pageSize})
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.UpdateProductInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.ID = id

	p, err := h.uc.UpdateProduct(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "product updated", p)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.DeleteProduct(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "product deleted", nil)
}

func (h *ProductHandler) AddVariant(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.CreateVariantInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.ProductID = id

	v, err := h.uc.AddVariant(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "variant created", v)
}

func (h *ProductHandler) ListVariants(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	variants, err := h.uc.ListVariants(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "variants retrieved", variants)
}

func (h *ProductHandler) DeleteVariant(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	variantID, err := httpx.ParamID(ps, "variant_id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.DeleteVariant(r.Context(), productID, variantID); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "variant deleted", nil)
}

func (h *ProductHandler) RecordPrice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.RecordPriceInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.VariantID = id

	p, err := h.uc.RecordPrice(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "price recorded", p)
}

func (h *ProductHandler) ListPrices(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", 50)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	prices, err := h.uc.ListPrices(r.Context(), id, limit)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "prices retrieved", prices)
}

func (h *ProductHandler) GetLatestPrice(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	p, err := h.uc.GetLatestPrice(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "price retrieved", p)
}
