package gateway

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"edupay/internal/config"
	"edupay/internal/models"
	"edupay/internal/pkg/httpclient"
)

// ClickGateway implements the Gateway interface for Click.
type ClickGateway struct {
	cfg    config.ClickConfig
	client *httpclient.Client
}

func NewClickGateway(cfg config.ClickConfig) *ClickGateway {
	return &ClickGateway{
		cfg:    cfg,
		client: httpclient.New().WithTimeout(30 * time.Second),
	}
}

func (g *ClickGateway) Name() string {
	return "click"
}

// PaymentURL builds the hosted-page redirect. The payment ID travels as
// the transaction reference and comes back on every webhook call.
func (g *ClickGateway) PaymentURL(p *models.Payment) string {
	q := url.Values{}
	q.Set("merchant_id", g.cfg.MerchantID)
	q.Set("amount", p.Amount.StringFixed(2))
	q.Set("transaction", p.ID.String())
	q.Set("return_url", g.cfg.ReturnURL+"?payment_id="+p.ID.String())
	q.Set("cancel_url", g.cfg.CancelURL+"?payment_id="+p.ID.String())
	return g.cfg.BaseURL + "?" + q.Encode()
}

// InvoiceStatus queries the merchant API for an invoice. Read-only; the
// engine never consumes this, only the reconciler.
func (g *ClickGateway) InvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceState, error) {
	u := fmt.Sprintf("%s/invoice/status/%s/%s", g.cfg.APIBaseURL, g.cfg.ServiceID, invoiceID)
	body, err := g.client.Get(ctx, u, map[string]string{
		"Accept": "application/json",
		"Auth":   g.authDigest(),
	})
	if err != nil {
		return nil, fmt.Errorf("click invoice status request failed: %w", err)
	}

	var state InvoiceState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, fmt.Errorf("click invoice status parse error: %w", err)
	}
	state.InvoiceID = invoiceID
	return &state, nil
}

// authDigest builds the merchant API auth header:
// user_id:sha1(timestamp+secret):timestamp.
func (g *ClickGateway) authDigest() string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	sum := sha1.Sum([]byte(ts + g.cfg.SecretKey))
	return g.cfg.MerchantUserID + ":" + hex.EncodeToString(sum[:]) + ":" + ts
}
