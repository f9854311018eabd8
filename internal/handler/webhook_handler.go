package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"edupay/internal/models"
	"edupay/internal/payment"
	"edupay/internal/pkg/replay"
)

// WebhookHandler receives Click webhook calls and drives the payment
// engine. Perimeter order: source IP (middleware), signature, transaction
// reference, action — all before any state is read or written.
type WebhookHandler struct {
	engine   *payment.Engine
	verifier *payment.SignatureVerifier
	cache    replay.Cache
	logger   *zap.Logger
}

func NewWebhookHandler(engine *payment.Engine, verifier *payment.SignatureVerifier, cache replay.Cache, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, verifier: verifier, cache: cache, logger: logger}
}

// ClickWebhook handles POST /api/payments/click/webhook.
func (h *WebhookHandler) ClickWebhook(c echo.Context) error {
	payload, err := bindPayload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	merchantID := payloadString(payload, "merchant_id")
	amount := payloadString(payload, "amount")
	txn := payloadString(payload, "transaction")
	if txn == "" {
		txn = payloadString(payload, "merchant_trans_id")
	}
	rawAction := payloadString(payload, "action")
	errCode := payloadString(payload, "error")
	if errCode == "" {
		errCode = "0"
	}
	sign := payloadString(payload, "sign")

	if !h.verifier.Verify(payment.SignedFields{
		MerchantID:  merchantID,
		Amount:      amount,
		Transaction: txn,
		Action:      rawAction,
	}, sign) {
		h.logger.Warn("webhook rejected: invalid signature",
			zap.String("transaction", txn),
			zap.String("remote_ip", c.RealIP()))
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid signature"})
	}

	// An unparsable reference is the client's fault, not ours.
	paymentID, err := uuid.Parse(txn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid transaction id"})
	}

	action, err := payment.ParseAction(rawAction)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown action"})
	}

	// Byte-identical redeliveries within the TTL get the recorded
	// response back without re-entering the engine. Best-effort only:
	// the engine is idempotent either way.
	ctx := c.Request().Context()
	replayKey := deliveryKey(txn, rawAction, sign, errCode)
	if body, found, err := h.cache.Get(ctx, replayKey); err == nil && found {
		return c.JSONBlob(http.StatusOK, body)
	}

	result, err := h.engine.Apply(ctx, paymentID, payment.WebhookCall{
		Action:        action,
		ErrorCode:     errCode,
		ErrorNote:     payloadString(payload, "error_note"),
		InvoiceID:     payloadString(payload, "invoice_id"),
		ProviderTxnID: payloadString(payload, "click_trans_id"),
		Payload:       payload,
	})
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Top-up failed"})
	}

	body, err := json.Marshal(map[string]string{
		"status":     string(result.Status),
		"payment_id": result.PaymentID.String(),
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal error"})
	}
	if err := h.cache.Put(ctx, replayKey, body); err != nil {
		h.logger.Warn("replay cache write failed", zap.Error(err))
	}

	return c.JSONBlob(http.StatusOK, body)
}

// bindPayload reads the webhook body as a generic map so the raw payload
// can be stored verbatim whatever fields the provider adds.
func bindPayload(c echo.Context) (models.JSON, error) {
	req := c.Request()
	contentType := req.Header.Get(echo.HeaderContentType)

	if strings.Contains(contentType, echo.MIMEApplicationJSON) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		payload := make(models.JSON)
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	// Click delivers form-encoded by default.
	if err := req.ParseForm(); err != nil {
		return nil, err
	}
	payload := make(models.JSON, len(req.PostForm))
	for k, v := range req.PostForm {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}
	return payload, nil
}

// payloadString renders a payload field as the string the provider sent;
// JSON numbers keep their literal form.
func payloadString(payload models.JSON, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func deliveryKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
