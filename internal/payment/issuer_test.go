package payment

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edupay/internal/config"
	"edupay/internal/gateway"
	"edupay/internal/models"
)

func newTestIssuer(t *testing.T, db *gorm.DB) *Issuer {
	t.Helper()
	gw := gateway.NewClickGateway(config.ClickConfig{
		MerchantID: "merchant-42",
		BaseURL:    "https://my.click.uz/services/pay",
		ReturnURL:  "https://edu.example.uz/payments/return",
		CancelURL:  "https://edu.example.uz/payments/cancel",
	})
	return NewIssuer(db, gw, config.PaymentsConfig{
		MinTopUp: decimal.NewFromInt(1000),
		MaxTopUp: decimal.NewFromInt(10000000),
	}, zap.NewNop())
}

func TestCreateTopUp(t *testing.T) {
	db := newTestDB(t)
	issuer := newTestIssuer(t, db)
	sp := seedStudent(t, db, 0)

	session, err := issuer.CreateTopUp(context.Background(), sp.UserID, decimal.NewFromInt(50000))
	require.NoError(t, err)

	assert.Equal(t, models.StatusCreated, session.Status)
	assert.True(t, session.Amount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, "UZS", session.Currency)
	assert.Nil(t, session.CompletedAt)

	u, err := url.Parse(session.RedirectURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "merchant-42", q.Get("merchant_id"))
	assert.Equal(t, "50000.00", q.Get("amount"))
	assert.Equal(t, session.ID.String(), q.Get("transaction"))
	assert.Contains(t, q.Get("return_url"), "payment_id="+session.ID.String())
	assert.Contains(t, q.Get("cancel_url"), "payment_id="+session.ID.String())

	// The only side effect is the insert itself.
	stored := reloadPayment(t, db, session.ID)
	assert.Equal(t, sp.ID, stored.StudentID)
	assert.Equal(t, models.StatusCreated, stored.Status)
	assert.EqualValues(t, 0, ledgerCount(t, db, session.ID))
}

func TestCreateTopUpValidatesBand(t *testing.T) {
	db := newTestDB(t)
	issuer := newTestIssuer(t, db)
	sp := seedStudent(t, db, 0)

	_, err := issuer.CreateTopUp(context.Background(), sp.UserID, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = issuer.CreateTopUp(context.Background(), sp.UserID, decimal.NewFromInt(20000000))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	// Band edges are inclusive.
	_, err = issuer.CreateTopUp(context.Background(), sp.UserID, decimal.NewFromInt(1000))
	assert.NoError(t, err)
	_, err = issuer.CreateTopUp(context.Background(), sp.UserID, decimal.NewFromInt(10000000))
	assert.NoError(t, err)
}

func TestCreateTopUpRequiresStudentProfile(t *testing.T) {
	db := newTestDB(t)
	issuer := newTestIssuer(t, db)

	_, err := issuer.CreateTopUp(context.Background(), uuid.New(), decimal.NewFromInt(50000))
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStatusScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	issuer := newTestIssuer(t, db)
	owner := seedStudent(t, db, 0)
	other := seedStudent(t, db, 0)
	p := seedPayment(t, db, owner, 50000, models.StatusPending)

	detail, err := issuer.Status(context.Background(), owner.UserID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, detail.ID)
	assert.Equal(t, owner.ID, detail.StudentID)
	assert.Equal(t, models.ProviderClick, detail.Provider)

	// Someone else's payment and a missing payment are indistinguishable.
	_, err = issuer.Status(context.Background(), other.UserID, p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	_, err = issuer.Status(context.Background(), owner.UserID, uuid.New())
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
