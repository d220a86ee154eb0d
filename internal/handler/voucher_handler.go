package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dealhub/internal/model"
	"dealhub/internal/service/voucher"
	"dealhub/internal/utils"
)

// CreateVoucherRequest voucher creation body
type CreateVoucherRequest struct {
	ShopID      uint64    `json:"shop_id" binding:"required"`
	Title       string    `json:"title" binding:"required,max=255"`
	PayValue    int64     `json:"pay_value" binding:"required,min=1"`
	ActualValue int64     `json:"actual_value" binding:"required,min=1"`
	Stock       int       `json:"stock" binding:"required,min=1"`
	BeginTime   time.Time `json:"begin_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required,gtfield=BeginTime"`
}

// VoucherHandler voucher catalog handler
type VoucherHandler struct {
	voucherService voucher.VoucherService
}

// NewVoucherHandler creates a voucher handler
func NewVoucherHandler(voucherService voucher.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService}
}

// CreateVoucher publishes a voucher
func (h *VoucherHandler) CreateVoucher(c *gin.Context) {
	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	}

	v := &model.Voucher{
		ShopID:      req.ShopID,
		Title:       req.Title,
		PayValue:    req.PayValue,
		ActualValue: req.ActualValue,
		Stock:       req.Stock,
		Status:      model.VoucherStatusOn,
		BeginTime:   req.BeginTime,
		EndTime:     req.EndTime,
	}
	if err := h.voucherService.Create(c.Request.Context(), v); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create voucher")
		return
	}

	utils.SuccessResponse(c, gin.H{"id": v.ID})
}

// GetVoucher gets a voucher
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid voucher ID")
		return
	}

	v, err := h.voucherService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, voucher.ErrVoucherNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Voucher not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get voucher")
		return
	}

	utils.SuccessResponse(c, v)
}

// ListShopVouchers lists a shop's vouchers
func (h *VoucherHandler) ListShopVouchers(c *gin.Context) {
	shopID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	vouchers, err := h.voucherService.ListByShop(c.Request.Context(), shopID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list vouchers")
		return
	}

	utils.SuccessResponse(c, vouchers)
}
