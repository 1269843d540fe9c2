// Package statementservice manages business logic layer of account statements.
package statementservice

import (
	"context"
	"time"

	"github.com/go-petr/pet-ledger/internal/balance"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/metrics"
	"github.com/go-petr/pet-ledger/pkg/tracing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repo provides data access layer interface needed by statement service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package statementservice
type Repo interface {
	ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error
	Get(ctx context.Context, id uuid.UUID) (domain.Statement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Statement, error)
}

// UserRepo resolves account existence.
type UserRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service facilitates statement service layer logic.
type Service struct {
	repo    Repo
	users   UserRepo
	metrics metrics.Collector
	tracer  trace.Tracer
}

// New return statement service struct to manage deposits, withdrawals and balance queries.
func New(sr Repo, ur UserRepo, collector metrics.Collector) *Service {
	return &Service{
		repo:    sr,
		users:   ur,
		metrics: metrics.OrNoOp(collector),
		tracer:  tracing.Tracer("statementservice"),
	}
}

func (s *Service) observe(ctx context.Context, operation string) (context.Context, func(err error)) {
	ctx, span := s.tracer.Start(ctx, "statementservice."+operation, trace.WithAttributes(
		attribute.String("ledger.operation", operation),
	))
	start := time.Now()

	return ctx, func(err error) {
		s.metrics.RecordOperation(operation, metrics.OutcomeOf(err), time.Since(start))
		tracing.End(span, err)
	}
}

func (s *Service) ensureUser(ctx context.Context, userID string) error {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("user_id", userID).Send()
		return err
	}

	if !exists {
		zerolog.Ctx(ctx).Info().Str("user_id", userID).Msg("user not found")
		return domain.ErrUserNotFound
	}

	return nil
}

// Create appends a deposit or a withdrawal to the account of userID.
//
// A withdrawal is appended only when the balance derived inside the same unit
// of work covers the amount.
func (s *Service) Create(ctx context.Context, userID string, opType domain.OperationType, amount decimal.Decimal, description string) (st domain.Statement, err error) {
	ctx, done := s.observe(ctx, string(opType))
	defer func() { done(err) }()

	l := zerolog.Ctx(ctx)

	if !domain.ValidAmount(amount) {
		l.Info().Stringer("amount", amount).Msg("amount out of range")
		return domain.Statement{}, domain.ErrInvalidAmount
	}

	if opType != domain.OperationDeposit && opType != domain.OperationWithdraw {
		l.Info().Str("type", string(opType)).Msg("unsupported operation")
		return domain.Statement{}, domain.ErrInvalidOperation
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return domain.Statement{}, err
	}

	err = s.repo.ExecTx(ctx, []string{userID}, func(ledger domain.Ledger) error {
		if opType == domain.OperationWithdraw {
			current, err := balance.New(ledger).Balance(ctx, userID)
			if err != nil {
				return err
			}

			if current.LessThan(amount) {
				l.Info().Stringer("balance", current).Stringer("amount", amount).Msg("insufficient funds")
				return domain.ErrInsufficientFunds
			}
		}

		var err error

		st, err = ledger.Create(ctx, domain.CreateStatementParams{
			UserID:      userID,
			Type:        opType,
			Amount:      amount,
			Description: description,
		})

		return err
	})
	if err != nil {
		return domain.Statement{}, err
	}

	return st, nil
}

// Balance returns the derived balance of userID together with its statements.
func (s *Service) Balance(ctx context.Context, userID string) (b domain.Balance, err error) {
	ctx, done := s.observe(ctx, "balance")
	defer func() { done(err) }()

	if err := s.ensureUser(ctx, userID); err != nil {
		return domain.Balance{}, err
	}

	statements, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return domain.Balance{}, err
	}

	if statements == nil {
		statements = []domain.Statement{}
	}

	return domain.Balance{
		Balance:    balance.Fold(userID, statements),
		Statements: statements,
	}, nil
}

// Get returns the statement with the given id when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (st domain.Statement, err error) {
	ctx, done := s.observe(ctx, "get_statement")
	defer func() { done(err) }()

	if err := s.ensureUser(ctx, userID); err != nil {
		return domain.Statement{}, err
	}

	st, err = s.repo.Get(ctx, id)
	if err != nil {
		return domain.Statement{}, err
	}

	if st.UserID != userID {
		zerolog.Ctx(ctx).Info().Stringer("statement_id", id).Msg("statement of another user")
		return domain.Statement{}, domain.ErrStatementNotFound
	}

	return st, nil
}

