// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"time"

	"github.com/go-petr/pet-ledger/internal/balance"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/metrics"
	"github.com/go-petr/pet-ledger/pkg/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const operation = "transfer"

// Repo provides data access layer interface needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Repo interface {
	ExecTx(ctx context.Context, userIDs []string, fn func(domain.Ledger) error) error
}

// UserRepo resolves account existence.
type UserRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Service facilitates transfer service layer logic.
type Service struct {
	repo    Repo
	users   UserRepo
	metrics metrics.Collector
	tracer  trace.Tracer
}

// New return transfer service struct to manage transfer bussines logic.
func New(tr Repo, ur UserRepo, collector metrics.Collector) *Service {
	return &Service{
		repo:    tr,
		users:   ur,
		metrics: metrics.OrNoOp(collector),
		tracer:  tracing.Tracer("transferservice"),
	}
}

// Transfer moves arg.Amount from the sender to the recipient.
//
// Checks run in a fixed order: sender existence, then sender funds, then
// recipient existence, then the amount range. The first failing check is
// reported and nothing is written. A transfer to oneself is refused up front. On success the sender and the recipient statements are appended
// in one unit of work that holds both account locks.
func (s *Service) Transfer(ctx context.Context, arg domain.CreateTransferParams) (res domain.TransferResult, err error) {
	ctx, span := s.tracer.Start(ctx, "transferservice.Transfer", trace.WithAttributes(
		attribute.String("ledger.operation", operation),
	))
	start := time.Now()

	defer func() {
		s.metrics.RecordOperation(operation, metrics.OutcomeOf(err), time.Since(start))
		tracing.End(span, err)
	}()

	l := zerolog.Ctx(ctx)

	if arg.SenderID == arg.RecipientID {
		l.Info().Str("sender_id", arg.SenderID).Msg("self transfer")
		return domain.TransferResult{}, domain.ErrSelfTransfer
	}

	exists, err := s.users.Exists(ctx, arg.SenderID)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.TransferResult{}, err
	}

	if !exists {
		l.Info().Str("sender_id", arg.SenderID).Msg("sender not found")
		return domain.TransferResult{}, domain.ErrUserNotFound
	}

	err = s.repo.ExecTx(ctx, []string{arg.SenderID, arg.RecipientID}, func(ledger domain.Ledger) error {
		current, err := balance.New(ledger).Balance(ctx, arg.SenderID)
		if err != nil {
			return err
		}

		if current.LessThan(arg.Amount) {
			l.Info().Stringer("balance", current).Stringer("amount", arg.Amount).Msg("insufficient funds")
			return domain.ErrInsufficientFunds
		}

		exists, err := s.users.Exists(ctx, arg.RecipientID)
		if err != nil {
			l.Error().Err(err).Send()
			return err
		}

		if !exists {
			l.Info().Str("recipient_id", arg.RecipientID).Msg("recipient not found")
			return domain.ErrRecipientNotFound
		}

		if !domain.ValidAmount(arg.Amount) {
			l.Info().Stringer("amount", arg.Amount).Msg("amount out of range")
			return domain.ErrInvalidAmount
		}

		res, err = appendTransfer(ctx, ledger, arg)

		return err
	})
	if err != nil {
		return domain.TransferResult{}, err
	}

	return res, nil
}

// appendTransfer writes the two rows of a transfer, the sender row first.
func appendTransfer(ctx context.Context, ledger domain.Ledger, arg domain.CreateTransferParams) (domain.TransferResult, error) {
	var res domain.TransferResult

	senderID, recipientID := arg.SenderID, arg.RecipientID

	row := domain.CreateStatementParams{
		Type:        domain.OperationTransfer,
		Amount:      arg.Amount,
		Description: arg.Description,
		SenderID:    &senderID,
		RecipientID: &recipientID,
	}

	row.UserID = senderID

	sent, err := ledger.Create(ctx, row)
	if err != nil {
		return res, err
	}

	row.UserID = recipientID

	received, err := ledger.Create(ctx, row)
	if err != nil {
		return res, err
	}

	res.SenderStatement, res.RecipientStatement = sent, received

	return res, nil
}
