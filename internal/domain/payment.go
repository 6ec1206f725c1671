/**
 * @description
 * This file defines the PaymentSession and Payment entities. A payment session is the
 * ephemeral OTP-gated attempt to settle a contract's invoice; a payment is the durable
 * record created when a session completes. At most one pending session or pending
 * payment may exist per contract at a time.
 *
 * @notes
 * - The OTP is never stored in plaintext; only a bcrypt hash is persisted.
 * - Expiry is computed from `expires_at`; an expired session is stored as cancelled
 *   with a reason, either lazily on access or eagerly by the sweeper.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSessionStatus enumerates stored payment session states.
type PaymentSessionStatus string

const (
	PaymentSessionPending   PaymentSessionStatus = "pending"
	PaymentSessionCompleted PaymentSessionStatus = "completed"
	PaymentSessionCancelled PaymentSessionStatus = "cancelled"
)

// Terminal reports whether the session can no longer change state.
func (s PaymentSessionStatus) Terminal() bool {
	return s == PaymentSessionCompleted || s == PaymentSessionCancelled
}

// Cancellation reasons recorded on a session.
const (
	SessionCancelReasonTooManyAttempts = "too_many_attempts"
	SessionCancelReasonExpired         = "expired"
	SessionCancelReasonContractClosed  = "contract_closed"
)

// PaymentSession maps to the `payment_sessions` table.
type PaymentSession struct {
	ID           uuid.UUID            `json:"id"`
	ContractID   uuid.UUID            `json:"contract_id"`
	Phone        string               `json:"phone"`
	SessionToken string               `json:"session_token"`
	Method       string               `json:"method"`
	Status       PaymentSessionStatus `json:"status"`
	OTPHash      string               `json:"-"`
	OTPAttempts  int                  `json:"otp_attempts"`
	CancelReason *string              `json:"cancel_reason,omitempty"`
	ExpiresAt    time.Time            `json:"expires_at"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Payment is the durable record of a completed transaction. Maps to `payments`.
type Payment struct {
	ID         uuid.UUID `json:"id"`
	ContractID uuid.UUID `json:"contract_id"`
	SessionID  uuid.UUID `json:"session_id"`
	InvoiceID  uuid.UUID `json:"invoice_id"`
	Amount     int64     `json:"amount"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreatePaymentSessionPayload is the DTO for starting a payment session.
type CreatePaymentSessionPayload struct {
	Phone  string `json:"phone"`
	Method string `json:"method"`
}

// VerifyOTPPayload is the DTO for an OTP submission.
type VerifyOTPPayload struct {
	Code string `json:"code"`
}

// CancelPaymentSessionPayload is the DTO for a session cancellation.
type CancelPaymentSessionPayload struct {
	Reason string `json:"reason"`
}

// PaymentSessionStatusView is the read-only session snapshot returned by getStatus,
// including the remaining TTL at the time of the read.
type PaymentSessionStatusView struct {
	ID               uuid.UUID            `json:"id"`
	ContractID       uuid.UUID            `json:"contract_id"`
	Status           PaymentSessionStatus `json:"status"`
	OTPAttempts      int                  `json:"otp_attempts"`
	ExpiresAt        time.Time            `json:"expires_at"`
	RemainingSeconds int64                `json:"remaining_seconds"`
}
