package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edupay/internal/models"
	"edupay/internal/repository"
)

// WebhookCall is one verified provider notification, parsed at the edge.
type WebhookCall struct {
	Action        Action
	ErrorCode     string
	ErrorNote     string
	InvoiceID     string
	ProviderTxnID string
	Payload       models.JSON
}

// Result is the engine's answer to one webhook call.
type Result struct {
	PaymentID uuid.UUID
	Status    models.PaymentStatus
}

// Engine advances a payment through its state machine. Every call runs
// under a per-payment lock and a single database transaction, so two
// concurrent deliveries for the same payment serialize while unrelated
// payments proceed in parallel. The engine never retries; provider
// redeliveries are absorbed by idempotent transitions.
type Engine struct {
	db        *gorm.DB
	payments  *repository.PaymentRepository
	students  *repository.StudentRepository
	topupLogs *repository.TopUpLogRepository
	locks     *keyedLock
	logger    *zap.Logger
}

func NewEngine(db *gorm.DB, logger *zap.Logger) *Engine {
	return &Engine{
		db:        db,
		payments:  repository.NewPaymentRepository(db),
		students:  repository.NewStudentRepository(db),
		topupLogs: repository.NewTopUpLogRepository(db),
		locks:     newKeyedLock(),
		logger:    logger,
	}
}

// TopUpNote is the ledger note linking a credit to its payment.
func TopUpNote(paymentID uuid.UUID) string {
	return fmt.Sprintf("Click top-up Payment<%s>", paymentID)
}

// Apply processes one webhook call for paymentID. The whole
// read-decide-write sequence is one atomic unit: if the credit or the
// ledger write fails partway, the transaction rolls back and the payment
// keeps its prior state, safe for a later redelivery.
func (e *Engine) Apply(ctx context.Context, paymentID uuid.UUID, call WebhookCall) (*Result, error) {
	unlock := e.locks.Lock(paymentID.String())
	defer unlock()

	var result *Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := e.payments.FindByIDForUpdate(tx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}

		// paid is terminal: any further action is a no-op that reports
		// the current state. This is what stops a provider retry storm
		// from double-crediting the balance.
		if p.IsPaid() {
			result = &Result{PaymentID: p.ID, Status: p.Status}
			return nil
		}

		switch call.Action {
		case ActionPrepare, ActionCheck:
			if p.IsReattemptable() {
				if err := tx.Model(p).Updates(map[string]interface{}{
					"status":              models.StatusPending,
					"provider_invoice_id": call.InvoiceID,
					"provider_txn_id":     call.ProviderTxnID,
					"provider_payload":    call.Payload,
					"error_code":          call.ErrorCode,
					"error_note":          call.ErrorNote,
				}).Error; err != nil {
					return err
				}
			}
			result = &Result{PaymentID: p.ID, Status: models.StatusPending}
			return nil

		case ActionComplete:
			if IsProviderError(call.ErrorCode) {
				note := call.ErrorNote
				if note == "" {
					note = "Provider declined"
				}
				if err := tx.Model(p).Updates(map[string]interface{}{
					"status":           models.StatusFailed,
					"provider_payload": call.Payload,
					"error_code":       call.ErrorCode,
					"error_note":       note,
				}).Error; err != nil {
					return err
				}
				result = &Result{PaymentID: p.ID, Status: models.StatusFailed}
				return nil
			}
			return e.settle(tx, p, call, &result)

		case ActionCancel:
			note := call.ErrorNote
			if note == "" {
				note = "Canceled by user/provider"
			}
			if err := tx.Model(p).Updates(map[string]interface{}{
				"status":           models.StatusCanceled,
				"provider_payload": call.Payload,
				"error_code":       call.ErrorCode,
				"error_note":       note,
			}).Error; err != nil {
				return err
			}
			result = &Result{PaymentID: p.ID, Status: models.StatusCanceled}
			return nil

		default:
			return ErrUnknownAction
		}
	})
	if err != nil {
		if !errors.Is(err, ErrPaymentNotFound) && !errors.Is(err, ErrUnknownAction) {
			e.logger.Error("webhook transaction failed",
				zap.String("payment_id", paymentID.String()),
				zap.String("action", string(call.Action)),
				zap.Error(err))
		}
		return nil, err
	}

	e.logger.Info("payment transition",
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("action", string(call.Action)),
		zap.String("status", string(result.Status)))
	return result, nil
}

// settle credits the balance, appends the single ledger entry and marks
// the payment paid, all inside the caller's transaction.
func (e *Engine) settle(tx *gorm.DB, p *models.Payment, call WebhookCall, result **Result) error {
	newBalance, err := e.students.CreditTx(tx, p.StudentID, p.Amount)
	if err != nil {
		return fmt.Errorf("balance credit failed: %w", err)
	}

	entry := &models.TopUpLog{
		StudentID:  p.StudentID,
		Amount:     p.Amount,
		NewBalance: newBalance,
		ActorID:    nil, // system-applied
		Note:       TopUpNote(p.ID),
	}
	if err := e.topupLogs.CreateTx(tx, entry); err != nil {
		return fmt.Errorf("ledger write failed: %w", err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.StatusPaid,
		"provider_payload": call.Payload,
		"error_code":       call.ErrorCode,
		"error_note":       call.ErrorNote,
		"completed_at":     now,
	}
	if call.ProviderTxnID != "" {
		updates["provider_txn_id"] = call.ProviderTxnID
	}
	if call.InvoiceID != "" {
		updates["provider_invoice_id"] = call.InvoiceID
	}
	if err := tx.Model(p).Updates(updates).Error; err != nil {
		return err
	}

	*result = &Result{PaymentID: p.ID, Status: models.StatusPaid}
	return nil
}
