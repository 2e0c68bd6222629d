// Package settlementdelivery exposes the endpoint remote institutions call to credit local accounts.
package settlementdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/pkg/errorspkg"
	"github.com/go-petr/soseki-bank/pkg/web"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by settlement delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package settlementdelivery
type Service interface {
	Receive(ctx context.Context, req domain.SettlementRequest) (domain.SettlementAck, error)
}

// Handler facilitates settlement delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns settlement handler.
func NewHandler(ss Service) *Handler {
	return &Handler{service: ss}
}

// request accepts "bank" as an alias of "institution_name".
type request struct {
	InstitutionName string `json:"institution_name"`
	Bank            string `json:"bank"`
	SenderName      string `json:"sender_name" binding:"required"`
	SenderEmail     string `json:"sender_email" binding:"required"`
	RecipientEmail  string `json:"recipient_email" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	IdempotencyKey  string `json:"idempotency_key"`
}

type response struct {
	Data domain.SettlementAck `json:"data"`
}

type unknownUserResponse struct {
	User string `json:"user"`
}

// Receive handles http request of a remote institution to credit a local account.
func (h *Handler) Receive(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Msg("malformed settlement request")
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrMalformedRequest))

		return
	}

	institution := req.InstitutionName
	if institution == "" {
		institution = req.Bank
	}

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = gctx.GetHeader("Idempotency-Key")
	}

	ack, err := h.service.Receive(ctx, domain.SettlementRequest{
		InstitutionName: institution,
		SenderName:      req.SenderName,
		SenderEmail:     req.SenderEmail,
		RecipientEmail:  req.RecipientEmail,
		Amount:          req.Amount,
		IdempotencyKey:  idempotencyKey,
	})
	if err != nil {
		switch err {
		case domain.ErrUnknownRecipient:
			gctx.JSON(http.StatusBadRequest, unknownUserResponse{User: err.Error()})
			return
		case domain.ErrMalformedRequest,
			domain.ErrNonPositiveAmount,
			domain.ErrInsufficientFunds:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{Data: ack})
}
