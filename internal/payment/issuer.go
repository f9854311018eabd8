package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edupay/internal/config"
	"edupay/internal/gateway"
	"edupay/internal/models"
	"edupay/internal/repository"
)

// PublicPayment is the client-facing projection of a payment.
type PublicPayment struct {
	ID          uuid.UUID            `json:"id"`
	Status      models.PaymentStatus `json:"status"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at"`
}

// TopUpSession is the response to a top-up create call.
type TopUpSession struct {
	PublicPayment
	RedirectURL string `json:"redirect_url"`
}

// PaymentDetail is the full projection returned to the owning student.
type PaymentDetail struct {
	PublicPayment
	StudentID         uuid.UUID              `json:"student"`
	Provider          models.PaymentProvider `json:"provider"`
	ProviderInvoiceID string                 `json:"provider_invoice_id"`
	ProviderTxnID     string                 `json:"provider_txn_id"`
}

// Issuer creates payment intents and serves the status projection. It is
// the thin half of the subsystem: a single insert plus a redirect URL.
type Issuer struct {
	payments *repository.PaymentRepository
	students *repository.StudentRepository
	gw       gateway.Gateway
	cfg      config.PaymentsConfig
	logger   *zap.Logger
}

func NewIssuer(db *gorm.DB, gw gateway.Gateway, cfg config.PaymentsConfig, logger *zap.Logger) *Issuer {
	return &Issuer{
		payments: repository.NewPaymentRepository(db),
		students: repository.NewStudentRepository(db),
		gw:       gw,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateTopUp validates the amount band, inserts a created payment for
// the caller's student profile and returns its projection with the
// provider redirect URL. No side effects beyond the insert.
func (i *Issuer) CreateTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*TopUpSession, error) {
	if amount.LessThan(i.cfg.MinTopUp) || amount.GreaterThan(i.cfg.MaxTopUp) {
		return nil, ErrAmountOutOfRange
	}

	sp, err := i.students.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	p := &models.Payment{
		ID:        uuid.New(),
		StudentID: sp.ID,
		Provider:  models.ProviderClick,
		Status:    models.StatusCreated,
		Amount:    amount,
		Currency:  "UZS",
	}
	if err := i.payments.Create(p); err != nil {
		return nil, err
	}

	i.logger.Info("top-up session created",
		zap.String("payment_id", p.ID.String()),
		zap.String("student_id", sp.ID.String()),
		zap.String("amount", amount.String()))

	return &TopUpSession{
		PublicPayment: publicProjection(p),
		RedirectURL:   i.gw.PaymentURL(p),
	}, nil
}

// Status returns the detail projection iff the payment belongs to the
// caller. Missing and not-owned payments are indistinguishable.
func (i *Issuer) Status(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDetail, error) {
	p, err := i.payments.FindByIDForUser(paymentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &PaymentDetail{
		PublicPayment:     publicProjection(p),
		StudentID:         p.StudentID,
		Provider:          p.Provider,
		ProviderInvoiceID: p.ProviderInvoiceID,
		ProviderTxnID:     p.ProviderTxnID,
	}, nil
}

func publicProjection(p *models.Payment) PublicPayment {
	return PublicPayment{
		ID:          p.ID,
		Status:      p.Status,
		Amount:      p.Amount,
		Currency:    p.Currency,
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	}
}
