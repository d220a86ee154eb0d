package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dealhub/internal/model"
	"dealhub/internal/service/shop"
	"dealhub/internal/utils"
)

// ShopHandler shop handler
type ShopHandler struct {
	shopService shop.ShopService
}

// NewShopHandler creates a shop handler
func NewShopHandler(shopService shop.ShopService) *ShopHandler {
	return &ShopHandler{shopService: shopService}
}

// GetShop gets a shop through the pass-through cache
func (h *ShopHandler) GetShop(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	s, err := h.shopService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shop.ErrShopNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Shop not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get shop")
		return
	}

	utils.SuccessResponse(c, s)
}

// GetHotShop gets a pre-warmed shop, tolerating staleness
func (h *ShopHandler) GetHotShop(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	s, err := h.shopService.GetHotByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shop.ErrShopNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Shop not found or not warmed")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get shop")
		return
	}

	utils.SuccessResponse(c, s)
}

// WarmShop seeds a shop's logical-expiry cache entry
func (h *ShopHandler) WarmShop(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	ttl := 10 * time.Second
	if raw := c.Query("ttl"); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid ttl")
			return
		}
	}

	if err := h.shopService.WarmCache(c.Request.Context(), id, ttl); err != nil {
		if errors.Is(err, shop.ErrShopNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Shop not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to warm shop cache")
		return
	}

	utils.SuccessResponse(c, nil)
}

// UpdateShop updates a shop and invalidates its cache entry
func (h *ShopHandler) UpdateShop(c *gin.Context) {
	var s model.Shop
	if err := c.ShouldBindJSON(&s); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	}

	if err := h.shopService.Update(c.Request.Context(), &s); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update shop")
		return
	}

	utils.SuccessResponse(c, nil)
}

// ListShops lists shops by type
func (h *ShopHandler) ListShops(c *gin.Context) {
	typeID, err := strconv.ParseUint(c.Query("type_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid type ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	shops, err := h.shopService.ListByType(c.Request.Context(), typeID, page, pageSize)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list shops")
		return
	}

	utils.SuccessResponse(c, shops)
}
