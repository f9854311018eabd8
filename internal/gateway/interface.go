package gateway

import (
	"context"

	"edupay/internal/models"
)

// InvoiceState is the provider-side view of an invoice, used by the
// read-only reconciliation sweep.
type InvoiceState struct {
	InvoiceID string `json:"invoice_id"`
	Status    int    `json:"status"`
	Note      string `json:"status_note,omitempty"`
}

// Gateway defines the interface for payment gateway implementations.
type Gateway interface {
	// Name returns the gateway identifier.
	Name() string

	// PaymentURL builds the provider redirect target for a payment.
	PaymentURL(p *models.Payment) string

	// InvoiceStatus queries the provider's view of an invoice.
	InvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceState, error)
}
