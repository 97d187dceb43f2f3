package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/config"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/middleware"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/payment/gateway"
	"github.com/QuoocVuong/agri-trade-ls-v2-sub001/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 決済まわりのHTTP。/payments配下は認証必須、/webhooks配下は署名検証のみ。
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PayURLResponse struct {
	PayURL string `json:"pay_url"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/orders/:id/bank-transfer", h.bankTransferInfo)
	g.POST("/orders/:id/pay-url", h.createPayURL)

	//ゲートウェイからのIPN。認証はかけない（署名で検証する）。
	e.GET("/webhooks/vnpay/ipn", h.vnpayIPN)
	e.POST("/webhooks/momo/ipn", h.momoIPN)
}

func (h *PaymentHandler) bankTransferInfo(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.BankTransferInfo(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *PaymentHandler) createPayURL(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	payURL, err := h.uc.CreatePaymentURL(c.Request().Context(), userID, orderID, c.RealIP())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, PayURLResponse{PayURL: payURL})
}

// VNPayのIPNはGETクエリで届く
func (h *PaymentHandler) vnpayIPN(c echo.Context) error {
	raw := []byte(c.Request().URL.RawQuery)
	ack := h.uc.IngestGatewayCallback(c.Request().Context(), "VNPAY", raw)
	return writeAck(c, ack)
}

// MoMoのIPNはJSONボディで届く
func (h *PaymentHandler) momoIPN(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	ack := h.uc.IngestGatewayCallback(c.Request().Context(), "MOMO", raw)
	return writeAck(c, ack)
}

// プロバイダ既定の形式で応答する
func writeAck(c echo.Context, ack gateway.AckResponse) error {
	if ack.Body == "" {
		return c.NoContent(ack.Status)
	}
	return c.Blob(ack.Status, ack.ContentType, []byte(ack.Body))
}
