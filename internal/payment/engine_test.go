package payment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"edupay/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.StudentProfile{},
		&models.Payment{},
		&models.TopUpLog{},
	))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, balance int64) *models.StudentProfile {
	t.Helper()
	sp := &models.StudentProfile{
		UserID:  uuid.New(),
		Balance: decimal.NewFromInt(balance),
	}
	require.NoError(t, db.Create(sp).Error)
	return sp
}

func seedPayment(t *testing.T, db *gorm.DB, sp *models.StudentProfile, amount int64, status models.PaymentStatus) *models.Payment {
	t.Helper()
	p := &models.Payment{
		StudentID: sp.ID,
		Provider:  models.ProviderClick,
		Status:    status,
		Amount:    decimal.NewFromInt(amount),
		Currency:  "UZS",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func reloadPayment(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return &p
}

func reloadStudent(t *testing.T, db *gorm.DB, id uuid.UUID) *models.StudentProfile {
	t.Helper()
	var sp models.StudentProfile
	require.NoError(t, db.First(&sp, "id = ?", id).Error)
	return &sp
}

func ledgerCount(t *testing.T, db *gorm.DB, paymentID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.TopUpLog{}).
		Where("note = ?", TopUpNote(paymentID)).Count(&count).Error)
	return count
}

func completeCall(errCode string) WebhookCall {
	return WebhookCall{
		Action:        ActionComplete,
		ErrorCode:     errCode,
		InvoiceID:     "inv-777",
		ProviderTxnID: "click-123456",
		Payload:       models.JSON{"action": "complete", "error": errCode},
	}
}

func TestPrepareMovesCreatedToPending(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 10000)
	p := seedPayment(t, db, sp, 50000, models.StatusCreated)

	result, err := engine.Apply(context.Background(), p.ID, WebhookCall{
		Action:        ActionPrepare,
		ErrorCode:     "0",
		InvoiceID:     "inv-777",
		ProviderTxnID: "click-123456",
		Payload:       models.JSON{"action": "prepare"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)

	got := reloadPayment(t, db, p.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "inv-777", got.ProviderInvoiceID)
	assert.Equal(t, "click-123456", got.ProviderTxnID)
	assert.Nil(t, got.CompletedAt)

	// prepare/check never touch the ledger
	assert.EqualValues(t, 0, ledgerCount(t, db, p.ID))
	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(10000)))
}

func TestCompleteSettlesExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 10000)
	p := seedPayment(t, db, sp, 50000, models.StatusPending)

	result, err := engine.Apply(context.Background(), p.ID, completeCall("0"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, result.Status)

	got := reloadPayment(t, db, p.ID)
	require.NotNil(t, got.CompletedAt)
	firstCompletedAt := *got.CompletedAt

	student := reloadStudent(t, db, sp.ID)
	assert.True(t, student.Balance.Equal(decimal.NewFromInt(60000)),
		"balance = %s", student.Balance)

	var entry models.TopUpLog
	require.NoError(t, db.First(&entry, "note = ?", TopUpNote(p.ID)).Error)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, entry.NewBalance.Equal(decimal.NewFromInt(60000)))
	assert.Nil(t, entry.ActorID)
	assert.Equal(t, sp.ID, entry.StudentID)

	// Replaying the identical complete is a no-op.
	for i := 0; i < 3; i++ {
		result, err = engine.Apply(context.Background(), p.ID, completeCall("0"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, result.Status)
	}

	got = reloadPayment(t, db, p.ID)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, firstCompletedAt.Equal(*got.CompletedAt))
	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(60000)))
	assert.EqualValues(t, 1, ledgerCount(t, db, p.ID))
}

func TestCompleteWithProviderErrorShortCircuitsCredit(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 10000)
	p := seedPayment(t, db, sp, 50000, models.StatusPending)

	result, err := engine.Apply(context.Background(), p.ID, completeCall("-1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, result.Status)

	got := reloadPayment(t, db, p.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "-1", got.ErrorCode)
	assert.Equal(t, "Provider declined", got.ErrorNote)
	assert.Nil(t, got.CompletedAt)
	assert.EqualValues(t, 0, ledgerCount(t, db, p.ID))
	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(10000)))

	// A failed payment can be re-attempted: prepare, then a clean complete.
	result, err = engine.Apply(context.Background(), p.ID, WebhookCall{Action: ActionPrepare, ErrorCode: "0"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)

	result, err = engine.Apply(context.Background(), p.ID, completeCall("0"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, result.Status)

	// Credited exactly once in total.
	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(60000)))
	assert.EqualValues(t, 1, ledgerCount(t, db, p.ID))
}

func TestCancelTransitions(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 0)

	p := seedPayment(t, db, sp, 25000, models.StatusPending)
	result, err := engine.Apply(context.Background(), p.ID, WebhookCall{
		Action:  ActionCancel,
		Payload: models.JSON{"action": "cancel"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, result.Status)

	got := reloadPayment(t, db, p.ID)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Equal(t, "Canceled by user/provider", got.ErrorNote)
	assert.EqualValues(t, 0, ledgerCount(t, db, p.ID))

	// A canceled payment is re-attemptable.
	result, err = engine.Apply(context.Background(), p.ID, WebhookCall{Action: ActionCheck, ErrorCode: "0"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, result.Status)
}

func TestPaidIsTerminal(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 0)
	p := seedPayment(t, db, sp, 50000, models.StatusPending)

	_, err := engine.Apply(context.Background(), p.ID, completeCall("0"))
	require.NoError(t, err)

	// Neither a cancel nor a declined complete moves a paid payment.
	for _, call := range []WebhookCall{
		{Action: ActionCancel},
		completeCall("-9"),
		{Action: ActionPrepare, ErrorCode: "0"},
	} {
		result, err := engine.Apply(context.Background(), p.ID, call)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPaid, result.Status)
	}

	assert.Equal(t, models.StatusPaid, reloadPayment(t, db, p.ID).Status)
	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(50000)))
	assert.EqualValues(t, 1, ledgerCount(t, db, p.ID))
}

func TestUnknownActionDoesNotMutate(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 0)
	p := seedPayment(t, db, sp, 50000, models.StatusPending)

	_, err := engine.Apply(context.Background(), p.ID, WebhookCall{Action: Action("settle")})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, models.StatusPending, reloadPayment(t, db, p.ID).Status)
}

func TestUnknownPayment(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())

	_, err := engine.Apply(context.Background(), uuid.New(), completeCall("0"))
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestConcurrentCompleteCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 10000)
	p := seedPayment(t, db, sp, 50000, models.StatusPending)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]models.PaymentStatus, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := engine.Apply(context.Background(), p.ID, completeCall("0"))
			errs[i] = err
			if err == nil {
				results[i] = result.Status
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, models.StatusPaid, results[i])
	}

	assert.True(t, reloadStudent(t, db, sp.ID).Balance.Equal(decimal.NewFromInt(60000)))
	assert.EqualValues(t, 1, ledgerCount(t, db, p.ID))
}

func TestLedgerEntryIffCompleted(t *testing.T) {
	db := newTestDB(t)
	engine := NewEngine(db, zap.NewNop())
	sp := seedStudent(t, db, 0)

	paid := seedPayment(t, db, sp, 30000, models.StatusPending)
	failed := seedPayment(t, db, sp, 40000, models.StatusPending)

	_, err := engine.Apply(context.Background(), paid.ID, completeCall("0"))
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), failed.ID, completeCall("-5"))
	require.NoError(t, err)

	var payments []models.Payment
	require.NoError(t, db.Find(&payments).Error)
	for _, p := range payments {
		count := ledgerCount(t, db, p.ID)
		if p.Status == models.StatusPaid {
			assert.NotNil(t, p.CompletedAt)
			assert.EqualValues(t, 1, count)
		} else {
			assert.Nil(t, p.CompletedAt)
			assert.EqualValues(t, 0, count)
		}
	}
}
