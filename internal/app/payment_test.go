package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
)

type paymentRepoStub struct {
	store.Repository

	contract *domain.Contract
	session  *domain.PaymentSession
	invoice  *domain.Invoice

	createErr   error
	completeErr error

	createdSession   *domain.PaymentSession
	failedAttempts   int
	cancelAtCap      bool
	completedPayment *domain.Payment
	cancelReason     string
}

func (s *paymentRepoStub) FindContractByID(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	if s.contract == nil {
		return nil, domain.ErrNotFound
	}
	return s.contract, nil
}

func (s *paymentRepoStub) FindPaymentSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.PaymentSession, error) {
	if s.session == nil {
		return nil, domain.ErrNotFound
	}
	return s.session, nil
}

func (s *paymentRepoStub) FindInvoiceByContractID(ctx context.Context, contractID uuid.UUID) (*domain.Invoice, error) {
	if s.invoice == nil {
		return nil, domain.ErrNotFound
	}
	return s.invoice, nil
}

func (s *paymentRepoStub) CreatePaymentSessionAtomic(ctx context.Context, session *domain.PaymentSession) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdSession = session
	return nil
}

func (s *paymentRepoStub) RecordFailedOTPAttempt(ctx context.Context, sessionID uuid.UUID, maxAttempts int) (*domain.PaymentSession, error) {
	s.failedAttempts++
	s.session.OTPAttempts++
	if s.session.OTPAttempts >= maxAttempts {
		s.cancelAtCap = true
		reason := domain.SessionCancelReasonTooManyAttempts
		s.session.Status = domain.PaymentSessionCancelled
		s.session.CancelReason = &reason
	}
	return s.session, nil
}

func (s *paymentRepoStub) CompletePaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, payment *domain.Payment, now time.Time) (*domain.PaymentSession, error) {
	if s.completeErr != nil {
		return s.session, s.completeErr
	}
	s.completedPayment = payment
	s.session.Status = domain.PaymentSessionCompleted
	return s.session, nil
}

func (s *paymentRepoStub) CancelPaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, reason string) (*domain.PaymentSession, error) {
	s.cancelReason = reason
	s.session.Status = domain.PaymentSessionCancelled
	s.session.CancelReason = &reason
	return s.session, nil
}

type stubRateLimiter struct {
	count      int
	retryAfter int
	err        error
}

func (s *stubRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return s.count, s.retryAfter, s.err
}

func pendingSessionFixture(contractID uuid.UUID, code string, expiresAt time.Time) *domain.PaymentSession {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &domain.PaymentSession{
		ID:         uuid.New(),
		ContractID: contractID,
		Phone:      "+966500000001",
		Method:     "card",
		Status:     domain.PaymentSessionPending,
		OTPHash:    string(hash),
		ExpiresAt:  expiresAt,
	}
}

func TestStartPaymentSession_RequiresAwaitingPaymentContract(t *testing.T) {
	customerID := uuid.New()
	repo := &paymentRepoStub{contract: &domain.Contract{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.ContractActive,
	}}
	svc := newTestService(repo, &capturingPublisher{}, time.Now())

	_, err := svc.StartPaymentSession(context.Background(), customerID, repo.contract.ID, domain.CreatePaymentSessionPayload{
		Phone:  "+966500000001",
		Method: "card",
	})
	if !errors.Is(err, domain.ErrNotProcessable) {
		t.Fatalf("expected ErrNotProcessable for an active contract, got %v", err)
	}
}

func TestStartPaymentSession_RejectsForeignContract(t *testing.T) {
	repo := &paymentRepoStub{contract: &domain.Contract{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     domain.ContractAwaitingPayment,
	}}
	svc := newTestService(repo, &capturingPublisher{}, time.Now())

	_, err := svc.StartPaymentSession(context.Background(), uuid.New(), repo.contract.ID, domain.CreatePaymentSessionPayload{
		Phone:  "+966500000001",
		Method: "card",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStartPaymentSession_ThrottlesDispatchPerPhone(t *testing.T) {
	customerID := uuid.New()
	repo := &paymentRepoStub{contract: &domain.Contract{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.ContractAwaitingPayment,
	}}
	svc := newTestService(repo, &capturingPublisher{}, time.Now())
	svc.rateLimiter = &stubRateLimiter{count: 4, retryAfter: 120}

	_, err := svc.StartPaymentSession(context.Background(), customerID, repo.contract.ID, domain.CreatePaymentSessionPayload{
		Phone:  "+966500000001",
		Method: "card",
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if repo.createdSession != nil {
		t.Fatal("expected no session to be created when throttled")
	}
}

func TestStartPaymentSession_LimiterOutageDoesNotBlockDispatch(t *testing.T) {
	customerID := uuid.New()
	repo := &paymentRepoStub{contract: &domain.Contract{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.ContractAwaitingPayment,
	}}
	svc := newTestService(repo, &capturingPublisher{}, time.Now())
	svc.rateLimiter = &stubRateLimiter{err: errors.New("redis unavailable")}

	if _, err := svc.StartPaymentSession(context.Background(), customerID, repo.contract.ID, domain.CreatePaymentSessionPayload{
		Phone:  "+966500000001",
		Method: "card",
	}); err != nil {
		t.Fatalf("expected session despite limiter outage, got %v", err)
	}
}

func TestStartPaymentSession_HashesOTPAndDispatchesSMS(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	repo := &paymentRepoStub{contract: &domain.Contract{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     domain.ContractAwaitingPayment,
	}}
	publisher := &capturingPublisher{}
	sms := &capturingSMSSender{}
	svc := newTestService(repo, publisher, now)
	svc.smsSender = sms

	session, err := svc.StartPaymentSession(context.Background(), customerID, repo.contract.ID, domain.CreatePaymentSessionPayload{
		Phone:  "+966500000001",
		Method: "card",
	})
	if err != nil {
		t.Fatalf("StartPaymentSession returned error: %v", err)
	}

	if sms.phone != "+966500000001" {
		t.Fatalf("expected sms dispatched to the payload phone, got %q", sms.phone)
	}
	if len(sms.code) != 6 {
		t.Fatalf("expected a six digit code, got %q", sms.code)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(session.OTPHash), []byte(sms.code)); err != nil {
		t.Fatal("stored hash does not match the dispatched code")
	}
	if want := now.Add(testPolicy().PaymentSessionTTL); !session.ExpiresAt.Equal(want) {
		t.Fatalf("expected session deadline %v, got %v", want, session.ExpiresAt)
	}
	if !publisher.published("payment.session.created") {
		t.Fatalf("expected a payment.session.created event, got %v", publisher.routingKeys())
	}
}

func TestVerifyOTP_WrongCodeCountsAttempt(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(10*time.Minute)),
	}
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.VerifyOTP(context.Background(), customerID, repo.session.ID, "000000")
	if !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if repo.failedAttempts != 1 {
		t.Fatalf("expected one counted attempt, got %d", repo.failedAttempts)
	}
}

func TestVerifyOTP_FifthFailureKillsSession(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(10*time.Minute)),
	}
	repo.session.OTPAttempts = 4
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	_, err := svc.VerifyOTP(context.Background(), customerID, repo.session.ID, "000000")
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts on the fifth failure, got %v", err)
	}
	if !repo.cancelAtCap {
		t.Fatal("expected the session to be cancelled at the attempt cap")
	}
	if !publisher.published("payment.session.cancelled") {
		t.Fatalf("expected a payment.session.cancelled event, got %v", publisher.routingKeys())
	}
}

func TestVerifyOTP_CorrectCodeAfterCapStillFails(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	reason := domain.SessionCancelReasonTooManyAttempts
	session := pendingSessionFixture(contract.ID, "123456", now.Add(10*time.Minute))
	session.Status = domain.PaymentSessionCancelled
	session.CancelReason = &reason
	session.OTPAttempts = 5
	repo := &paymentRepoStub{contract: contract, session: session}
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.VerifyOTP(context.Background(), customerID, session.ID, "123456")
	if !errors.Is(err, domain.ErrNotProcessable) {
		t.Fatalf("expected ErrNotProcessable for a dead session, got %v", err)
	}
	if repo.completedPayment != nil {
		t.Fatal("a correct code must never settle a dead session")
	}
}

func TestVerifyOTP_ExpiredSessionIsCancelled(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(-time.Minute)),
	}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	_, err := svc.VerifyOTP(context.Background(), customerID, repo.session.ID, "123456")
	if !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if repo.cancelReason != domain.SessionCancelReasonExpired {
		t.Fatalf("expected expiry cancel reason, got %q", repo.cancelReason)
	}
	if !publisher.published("payment.session.expired") {
		t.Fatalf("expected a payment.session.expired event, got %v", publisher.routingKeys())
	}
}

func TestVerifyOTP_CorrectCodeSettlesInvoiceAmount(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(10*time.Minute)),
		invoice:  &domain.Invoice{ID: uuid.New(), ContractID: contract.ID, Amount: 250000, Status: domain.InvoiceUnpaid},
	}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	payment, err := svc.VerifyOTP(context.Background(), customerID, repo.session.ID, "123456")
	if err != nil {
		t.Fatalf("VerifyOTP returned error: %v", err)
	}
	if payment.Amount != 250000 {
		t.Fatalf("expected payment amount from the invoice, got %d", payment.Amount)
	}
	if payment.InvoiceID != repo.invoice.ID {
		t.Fatal("expected the payment to reference the invoice")
	}
	if !publisher.published("payment.completed") {
		t.Fatalf("expected a payment.completed event, got %v", publisher.routingKeys())
	}
}

func TestGetPaymentSessionStatus_LazyExpiresOverdueSession(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(-time.Minute)),
	}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	view, err := svc.GetPaymentSessionStatus(context.Background(), customerID, repo.session.ID)
	if err != nil {
		t.Fatalf("GetPaymentSessionStatus returned error: %v", err)
	}
	if view.Status != domain.PaymentSessionCancelled {
		t.Fatalf("expected the snapshot to show the session cancelled, got %s", view.Status)
	}
	if view.RemainingSeconds != 0 {
		t.Fatalf("expected zero remaining seconds, got %d", view.RemainingSeconds)
	}
	if !publisher.published("payment.session.expired") {
		t.Fatalf("expected a payment.session.expired event, got %v", publisher.routingKeys())
	}
}

func TestCancelPaymentSession_DefaultsReason(t *testing.T) {
	now := time.Now()
	customerID := uuid.New()
	contract := &domain.Contract{ID: uuid.New(), CustomerID: customerID, Status: domain.ContractAwaitingPayment}
	repo := &paymentRepoStub{
		contract: contract,
		session:  pendingSessionFixture(contract.ID, "123456", now.Add(10*time.Minute)),
	}
	svc := newTestService(repo, &capturingPublisher{}, now)

	if _, err := svc.CancelPaymentSession(context.Background(), customerID, repo.session.ID, ""); err != nil {
		t.Fatalf("CancelPaymentSession returned error: %v", err)
	}
	if repo.cancelReason != "cancelled by customer" {
		t.Fatalf("expected default cancel reason, got %q", repo.cancelReason)
	}
}
