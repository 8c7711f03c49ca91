package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/platform/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe"
	"github.com/fekuna/omnipos-catalog-service/internal/recipe/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/transport/httpx"
	"github.com/julienschmidt/httprouter"
	"github.com/shopspring/decimal"
)

type RecipeHandler struct {
	uc     recipe.UseCase
	logger logger.ZapLogger
}

func NewRecipeHandler(uc recipe.UseCase, log logger.ZapLogger) *RecipeHandler {
	return &RecipeHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *RecipeHandler) RegisterRoutes(r *httprouter.Router, prefix string) {
	r.GET(prefix+"/recipes", h.ListRecipes)
	r.POST(prefix+"/recipes", h.CreateRecipe)
	r.GET(prefix+"/recipes/:id", h.GetRecipe)
	r.PATCH(prefix+"/recipes/:id", h.UpdateRecipe)
	r.DELETE(prefix+"/recipes/:id", h.DeleteRecipe)

	r.POST(prefix+"/recipes/:id/ingredients", h.AddIngredients)
	r.PATCH(prefix+"/recipes/:id/ingredients/:ingredient_id", h.UpdateIngredient)
	r.DELETE(prefix+"/recipes/:id/ingredients/:ingredient_id", h.DeleteIngredient)

	r.GET(prefix+"/recipes/:id/cost", h.GetCost)
	r.GET(prefix+"/recipes/:id/cost-per-unit", h.GetCostPerUnit)
	r.GET(prefix+"/recipes/:id/cycle-check", h.CheckCycle)
}

func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input dto.CreateRecipeInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	rec, err := h.uc.CreateRecipe(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "recipe created", rec)
}

func (h *RecipeHandler) GetRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	rec, err := h.uc.GetRecipe(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipe retrieved", rec)
}

func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, pageSize, err := httpx.Page(r)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	filters := &dto.RecipeFilters{
		SearchQuery: r.URL.Query().Get("search"),
		Page:        page,
		PageSize:    pageSize,
	}
	recipes, total, err := h.uc.ListRecipes(r.Context(), filters)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipes retrieved", httpx.ListData{Items: recipes, Total: total, Page: page, PageSize: pageSize})
}

func (h *RecipeHandler) UpdateRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.UpdateRecipeInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.ID = id

	rec, err := h.uc.UpdateRecipe(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipe updated", rec)
}

func (h *RecipeHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.DeleteRecipe(r.Context(), id); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipe deleted", nil)
}

func (h *RecipeHandler) AddIngredients(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var inputs []dto.IngredientInput
	if err := httpx.Decode(r, &inputs); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	added, err := h.uc.AddIngredients(r.Context(), id, inputs)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, "ingredients added", added)
}

func (h *RecipeHandler) UpdateIngredient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	ingredientID, err := httpx.ParamID(ps, "ingredient_id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	var input dto.UpdateIngredientInput
	if err := httpx.Decode(r, &input); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	input.RecipeID = id
	input.IngredientID = ingredientID

	ing, err := h.uc.UpdateIngredient(r.Context(), &input)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "ingredient updated", ing)
}

func (h *RecipeHandler) DeleteIngredient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	ingredientID, err := httpx.ParamID(ps, "ingredient_id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	if err := h.uc.DeleteIngredient(r.Context(), id, ingredientID); err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "ingredient deleted", nil)
}

func (h *RecipeHandler) GetCost(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	b, err := h.uc.GetCost(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipe cost calculated", b)
}

func (h *RecipeHandler) GetCostPerUnit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}

	perUnit, err := h.uc.GetCostPerUnit(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "recipe cost per unit calculated", struct {
		RecipeID    int64           `json:"recipe_id"`
		CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	}{id, perUnit})
}

func (h *RecipeHandler) CheckCycle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httpx.ParamID(ps, "id")
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	subID, err := httpx.QueryInt(r, "sub_recipe_id", 0)
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	if subID == 0 {
		httpx.Error(w, r, h.logger, apperror.InvalidRequest("sub_recipe_id is required"))
		return
	}

	res, err := h.uc.CheckCycle(r.Context(), id, int64(subID))
	if err != nil {
		httpx.Error(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "cycle check completed", res)
}
