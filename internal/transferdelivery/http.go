// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, arg domain.CreateTransferParams) (domain.TransferResult, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type uriRequest struct {
	RecipientID string `uri:"user_id" binding:"required,max=64"`
}

type request struct {
	Amount      json.Number `json:"amount" binding:"required,amount"`
	Description string      `json:"description" binding:"max=255"`
}

type data struct {
	Transfer domain.TransferResult `json:"transfer"`
}

type response struct {
	Data data `json:"data"`
}

// Create handles http request to transfer money from the caller to the user in the path.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri uriRequest
	if err := gctx.ShouldBindUri(&uri); err != nil {
		web.BindError(gctx, err)
		return
	}

	var req request
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

	arg := domain.CreateTransferParams{
		SenderID:    authPayload.UserID,
		RecipientID: uri.RecipientID,
		Amount:      amount,
		Description: req.Description,
	}

	result, err := h.service.Transfer(ctx, arg)
	if err != nil {
		switch err {
		case domain.ErrUserNotFound,
			domain.ErrRecipientNotFound,
			domain.ErrInsufficientFunds,
			domain.ErrInvalidAmount,
			domain.ErrSelfTransfer:
			l.Info().Err(err).Str("recipient_id", arg.RecipientID).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		web.InfraError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{result}})
}
