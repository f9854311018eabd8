package payment

import "errors"

var (
	// ErrUnknownAction is returned for webhook actions outside the closed set.
	ErrUnknownAction = errors.New("unknown webhook action")

	// ErrPaymentNotFound is returned when the transaction reference resolves
	// to no payment, or the payment does not belong to the caller.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrStudentNotFound is returned when the authenticated user has no
	// student profile.
	ErrStudentNotFound = errors.New("student profile not found")

	// ErrAmountOutOfRange is returned when a top-up amount is outside the
	// configured band.
	ErrAmountOutOfRange = errors.New("amount outside allowed top-up range")
)
