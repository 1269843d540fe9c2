// Package statementdelivery manages delivery layer of statements.
package statementdelivery

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by statement delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package statementdelivery
type Service interface {
	Create(ctx context.Context, userID string, opType domain.OperationType, amount decimal.Decimal, description string) (domain.Statement, error)
	Balance(ctx context.Context, userID string) (domain.Balance, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (domain.Statement, error)
}

// Handler facilitates statement delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns statement handler.
func NewHandler(ss Service) Handler {
	return Handler{service: ss}
}

type data struct {
	Statement domain.Statement `json:"statement"`
}
type response struct {
	Data data `json:"data,omitempty"`
}

type createRequest struct {
	Amount      json.Number `json:"amount" binding:"required,amount"`
	Description string      `json:"description" binding:"max=255"`
}

// Deposit handles http request to credit the caller's account.
func (h *Handler) Deposit(gctx *gin.Context) {
	h.create(gctx, domain.OperationDeposit)
}

// Withdraw handles http request to debit the caller's account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.create(gctx, domain.OperationWithdraw)
}

func (h *Handler) create(gctx *gin.Context, opType domain.OperationType) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		web.BindError(gctx, err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		web.BindError(gctx, err)
		return
	}

	authPayload := middleware.Payload(gctx)

	st, err := h.service.Create(ctx, authPayload.UserID, opType, amount, req.Description)
	if err != nil {
		switch err {
		case domain.ErrUserNotFound,
			domain.ErrInsufficientFunds,
			domain.ErrInvalidAmount,
			domain.ErrInvalidOperation:
			l.Info().Err(err).Str("type", string(opType)).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		web.InfraError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{st}})
}

type balanceResponse struct {
	Data domain.Balance `json:"data"`
}

// Balance handles http request to get the caller's balance and statement.
func (h *Handler) Balance(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	authPayload := middleware.Payload(gctx)

	b, err := h.service.Balance(ctx, authPayload.UserID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			zerolog.Ctx(ctx).Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		web.InfraError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, balanceResponse{Data: b})
}

type getRequest struct {
	ID string `uri:"statement_id" binding:"required,uuid"`
}

// Get handles http request to get one of the caller's statements.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		web.BindError(gctx, err)
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		web.BindError(gctx, err)
		return
	}

	authPayload := middleware.Payload(gctx)

	st, err := h.service.Get(ctx, authPayload.UserID, id)
	if err != nil {
		switch err {
		case domain.ErrStatementNotFound, domain.ErrUserNotFound:
			zerolog.Ctx(ctx).Info().Err(err).Send()
			gctx.JSON(http.StatusNotFound, web.Error(err))

			return
		}

		web.InfraError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{st}})
}
