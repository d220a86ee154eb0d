package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dealhub/internal/middleware"
	"dealhub/internal/service/seckill"
	"dealhub/internal/utils"
)

// SeckillHandler flash-sale admission handler
type SeckillHandler struct {
	seckillService seckill.SeckillService
}

// NewSeckillHandler creates a seckill handler
func NewSeckillHandler(seckillService seckill.SeckillService) *SeckillHandler {
	return &SeckillHandler{seckillService: seckillService}
}

// Purchase admits one flash-sale purchase. Success means the order is
// durably queued; persistence happens in the background.
func (h *SeckillHandler) Purchase(c *gin.Context) {
	voucherID, err := strconv.ParseUint(c.Param("voucher_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid voucher ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	orderID, err := h.seckillService.Admit(c.Request.Context(), voucherID, userID)
	if err != nil {
		switch {
		case errors.Is(err, seckill.ErrSoldOut):
			utils.ErrorResponse(c, http.StatusConflict, "Sold out")
		case errors.Is(err, seckill.ErrDuplicateOrder):
			utils.ErrorResponse(c, http.StatusConflict, "You have already purchased this voucher")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Purchase failed")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"order_id": strconv.FormatInt(orderID, 10)})
}

// Prewarm seeds the stock counter for a voucher
func (h *SeckillHandler) Prewarm(c *gin.Context) {
	voucherID, err := strconv.ParseUint(c.Param("voucher_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid voucher ID")
		return
	}

	if err := h.seckillService.Prewarm(c.Request.Context(), voucherID); err != nil {
		if errors.Is(err, seckill.ErrSaleNotStarted) {
			utils.ErrorResponse(c, http.StatusConflict, "Voucher is not on sale")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Prewarm failed")
		return
	}

	utils.SuccessResponse(c, nil)
}

// EndSale schedules expiry of a closed sale's Redis state
func (h *SeckillHandler) EndSale(c *gin.Context) {
	voucherID, err := strconv.ParseUint(c.Param("voucher_id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid voucher ID")
		return
	}

	retention := 24 * time.Hour
	if raw := c.Query("retention"); raw != "" {
		retention, err = time.ParseDuration(raw)
		if err != nil || retention <= 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid retention")
			return
		}
	}

	if err := h.seckillService.EndSale(c.Request.Context(), voucherID, retention); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to end sale")
		return
	}

	utils.SuccessResponse(c, nil)
}
