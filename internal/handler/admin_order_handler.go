package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/config"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/middleware"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/repository"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/ordersのHTTP。全操作が監査ログ対象。
type AdminOrderHandler struct {
	orders   *usecase.OrderUsecase
	payments *usecase.PaymentUsecase
}

func NewAdminOrderHandler(orders *usecase.OrderUsecase, payments *usecase.PaymentUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{orders: orders, payments: payments}
}

type ConfirmPaymentRequest struct {
	Reference string `json:"reference"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.POST("/orders/:id/confirm-payment", h.confirmPayment)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	status := c.QueryParam("status")

	var buyerID *int64
	if v := c.QueryParam("buyer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid buyer_id"})
		}
		buyerID = &id
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		toPtr = &tm
	}

	out, err := h.orders.ListAdmin(c.Request().Context(), repository.AdminOrderListFilter{
		Page:    page,
		Limit:   limit,
		Status:  status,
		BuyerID: buyerID,
		From:    fromPtr,
		To:      toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 銀行振込の入金を手動確認する
func (h *AdminOrderHandler) confirmPayment(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.payments.ConfirmManualPayment(c.Request().Context(), orderID, adminID, req.Reference)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
