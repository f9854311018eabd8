package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"edupay/internal/middleware"
	"edupay/internal/payment"
)

// PaymentHandler serves the authenticated student endpoints: top-up
// session creation and status polling.
type PaymentHandler struct {
	issuer *payment.Issuer
	logger *zap.Logger
}

func NewPaymentHandler(issuer *payment.Issuer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{issuer: issuer, logger: logger}
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount" form:"amount"`
}

// CreateTopUp handles POST /api/payments/topup.
func (h *PaymentHandler) CreateTopUp(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	var req topUpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	session, err := h.issuer.CreateTopUp(c.Request().Context(), userID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrAmountOutOfRange):
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, payment.ErrStudentNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Student profile not found"})
		default:
			h.logger.Error("top-up create failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
		}
	}

	return c.JSON(http.StatusCreated, session)
}

// Status handles GET /api/payments/status?payment_id=.
func (h *PaymentHandler) Status(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	paymentID, err := uuid.Parse(c.QueryParam("payment_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payment id"})
	}

	detail, err := h.issuer.Status(c.Request().Context(), userID, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Payment not found"})
		}
		h.logger.Error("status query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}

	return c.JSON(http.StatusOK, detail)
}
