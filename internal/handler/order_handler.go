package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealhub/internal/middleware"
	"dealhub/internal/repository"
	"dealhub/internal/service/order"
	"dealhub/internal/utils"
)

// OrderHandler order query handler
type OrderHandler struct {
	orderService order.OrderService
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GetOrder gets one order. Admitted orders are persisted asynchronously, so
// a 404 shortly after purchase usually means the consumer has not caught up
// yet.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid order ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ord, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Order not found")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get order")
		return
	}

	if ord.UserID != userID {
		utils.ErrorResponse(c, http.StatusForbidden, "Not your order")
		return
	}

	utils.SuccessResponse(c, ord)
}

// ListOrders lists the authenticated user's orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	orders, total, err := h.orderService.ListUserOrders(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	utils.SuccessPageResponse(c, orders, total, page, pageSize)
}
