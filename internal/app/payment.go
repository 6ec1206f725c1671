/**
 * @description
 * Payment session operations: starting an OTP-gated session for a contract awaiting
 * payment, verifying the submitted code, reading session status and cancelling. The
 * OTP is bcrypt-hashed at rest; the plaintext exists only in the SMS hand-off.
 *
 * Key features:
 * - OTP dispatch is throttled per phone number through the Redis rate limiter.
 * - A wrong code is counted atomically in the store; the fifth failure kills the
 *   session, and any later submission, correct code included, finds the session dead.
 * - Expiry is enforced lazily on verify and status reads, eagerly by the sweeper.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

const otpRateLimitScope = "otp_send"

// StartPaymentSession opens an OTP-gated payment session for a contract awaiting
// payment and dispatches the code by SMS.
func (s *Service) StartPaymentSession(ctx context.Context, customerID, contractID uuid.UUID, payload domain.CreatePaymentSessionPayload) (*domain.PaymentSession, error) {
	if payload.Phone == "" {
		return nil, domain.NewValidation("phone", "must not be empty")
	}
	if payload.Method == "" {
		return nil, domain.NewValidation("method", "must not be empty")
	}

	contract, err := s.repo.FindContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.CustomerID != customerID {
		return nil, domain.ErrUnauthorized
	}
	if contract.Status != domain.ContractAwaitingPayment {
		return nil, domain.ErrNotProcessable
	}

	if s.rateLimiter != nil {
		count, retryAfter, err := s.rateLimiter.ConsumeRateLimit(ctx, otpRateLimitScope,
			payload.Phone, s.policy.OTPSendLimit, s.policy.OTPSendWindow)
		if err != nil {
			log.Printf("level=warn component=service msg=\"otp rate limiter unavailable\" err=%v", err)
		} else if s.policy.OTPSendLimit > 0 && count > s.policy.OTPSendLimit {
			log.Printf("level=info component=service msg=\"otp dispatch throttled\" phone=%s retry_after=%d", payload.Phone, retryAfter)
			return nil, domain.ErrRateLimited
		}
	}

	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}

	now := s.now()
	session := &domain.PaymentSession{
		ID:           uuid.New(),
		ContractID:   contract.ID,
		Phone:        payload.Phone,
		SessionToken: uuid.NewString(),
		Method:       payload.Method,
		Status:       domain.PaymentSessionPending,
		OTPHash:      string(hash),
		ExpiresAt:    now.Add(s.policy.PaymentSessionTTL),
	}
	if err := s.repo.CreatePaymentSessionAtomic(ctx, session); err != nil {
		return nil, err
	}

	if s.smsSender != nil {
		if err := s.smsSender.SendOTP(ctx, payload.Phone, code); err != nil {
			log.Printf("level=warn component=service msg=\"otp sms dispatch failed\" session_id=%s err=%v", session.ID, err)
		}
	}

	s.publishSessionState(ctx, session, "payment.session.created", now)
	s.publishAudit(ctx, domain.EntityPaymentSession, session.ID, "created", customerID,
		nil, map[string]interface{}{"contract_id": session.ContractID, "expires_at": session.ExpiresAt})
	return session, nil
}

// VerifyOTP checks a submitted code against a pending session and, on a match,
// settles the contract: payment inserted, invoice paid, contract active, worker
// assigned, all in one store transaction.
func (s *Service) VerifyOTP(ctx context.Context, customerID, sessionID uuid.UUID, code string) (*domain.Payment, error) {
	session, err := s.repo.FindPaymentSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.FindContractByID(ctx, session.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.CustomerID != customerID {
		return nil, domain.ErrUnauthorized
	}

	// A terminal session rejects every submission, correct code included. Only the
	// submission that trips the attempt cap reports ErrTooManyAttempts.
	if session.Status.Terminal() {
		return nil, domain.ErrNotProcessable
	}

	now := s.now()
	if now.After(session.ExpiresAt) {
		cancelled, cancelErr := s.repo.CancelPaymentSessionAtomic(ctx, sessionID, domain.SessionCancelReasonExpired)
		if cancelErr == nil {
			s.publishSessionState(ctx, cancelled, "payment.session.expired", now)
		}
		return nil, domain.ErrExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(session.OTPHash), []byte(code)) != nil {
		counted, countErr := s.repo.RecordFailedOTPAttempt(ctx, sessionID, s.policy.OTPMaxAttempts)
		if countErr != nil {
			return nil, countErr
		}
		if counted.Status == domain.PaymentSessionCancelled {
			s.publishSessionState(ctx, counted, "payment.session.cancelled", now)
			return nil, domain.ErrTooManyAttempts
		}
		return nil, domain.ErrInvalidCode
	}

	invoice, err := s.repo.FindInvoiceByContractID(ctx, session.ContractID)
	if err != nil {
		return nil, err
	}
	payment := &domain.Payment{
		ID:         uuid.New(),
		ContractID: session.ContractID,
		SessionID:  session.ID,
		InvoiceID:  invoice.ID,
		Amount:     invoice.Amount,
		Method:     session.Method,
		Status:     "completed",
	}

	completed, err := s.repo.CompletePaymentSessionAtomic(ctx, sessionID, payment, now)
	if err != nil {
		if errors.Is(err, domain.ErrExpired) && completed != nil {
			s.publishSessionState(ctx, completed, "payment.session.expired", now)
		}
		return nil, err
	}

	s.publishEvent(ctx, "payment.completed", domain.PaymentSessionEvent{
		SessionID:  completed.ID,
		ContractID: completed.ContractID,
		Status:     completed.Status,
		Timestamp:  now.UTC(),
	})
	s.publishAudit(ctx, domain.EntityPayment, payment.ID, "completed", customerID,
		nil, map[string]interface{}{"contract_id": payment.ContractID, "amount": payment.Amount})
	return payment, nil
}

// GetPaymentSessionStatus returns a read-only session snapshot. A pending session
// found past its deadline is cancelled in place before the snapshot is taken.
func (s *Service) GetPaymentSessionStatus(ctx context.Context, customerID, sessionID uuid.UUID) (*domain.PaymentSessionStatusView, error) {
	session, err := s.repo.FindPaymentSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.FindContractByID(ctx, session.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.CustomerID != customerID {
		return nil, domain.ErrUnauthorized
	}

	now := s.now()
	if session.Status == domain.PaymentSessionPending && now.After(session.ExpiresAt) {
		cancelled, cancelErr := s.repo.CancelPaymentSessionAtomic(ctx, sessionID, domain.SessionCancelReasonExpired)
		if cancelErr == nil {
			session = cancelled
			s.publishSessionState(ctx, session, "payment.session.expired", now)
		}
	}

	remaining := int64(session.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 || session.Status != domain.PaymentSessionPending {
		remaining = 0
	}
	return &domain.PaymentSessionStatusView{
		ID:               session.ID,
		ContractID:       session.ContractID,
		Status:           session.Status,
		OTPAttempts:      session.OTPAttempts,
		ExpiresAt:        session.ExpiresAt,
		RemainingSeconds: remaining,
	}, nil
}

// CancelPaymentSession abandons a pending session.
func (s *Service) CancelPaymentSession(ctx context.Context, customerID, sessionID uuid.UUID, reason string) (*domain.PaymentSession, error) {
	session, err := s.repo.FindPaymentSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	contract, err := s.repo.FindContractByID(ctx, session.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.CustomerID != customerID {
		return nil, domain.ErrUnauthorized
	}
	if reason == "" {
		reason = "cancelled by customer"
	}

	cancelled, err := s.repo.CancelPaymentSessionAtomic(ctx, sessionID, reason)
	if err != nil {
		return nil, err
	}

	now := s.now()
	s.publishSessionState(ctx, cancelled, "payment.session.cancelled", now)
	s.publishAudit(ctx, domain.EntityPaymentSession, cancelled.ID, "cancelled", customerID,
		nil, map[string]interface{}{"reason": reason})
	return cancelled, nil
}

func (s *Service) publishSessionState(ctx context.Context, session *domain.PaymentSession, routingKey string, now time.Time) {
	s.publishEvent(ctx, routingKey, domain.PaymentSessionEvent{
		SessionID:  session.ID,
		ContractID: session.ContractID,
		Status:     session.Status,
		Reason:     session.CancelReason,
		Timestamp:  now.UTC(),
	})
}

// generateOTP produces a uniformly random six digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
