// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/middleware"
	"github.com/go-petr/soseki-bank/pkg/errorspkg"
	"github.com/go-petr/soseki-bank/pkg/tokenpkg"
	"github.com/go-petr/soseki-bank/pkg/web"
)

// Service provides internal transfer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Transfer(ctx context.Context, senderID int32, recipientEmail string, amount decimal.Decimal) (domain.Receipt, error)
}

// ExternalService provides external transfer interface needed by transfer delivery layer.
type ExternalService interface {
	Send(ctx context.Context, senderID int32, recipientEmail string, amount decimal.Decimal) (domain.Receipt, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service  Service
	external ExternalService
}

// NewHandler returns transfer handler.
func NewHandler(ts Service, es ExternalService) *Handler {
	return &Handler{
		service:  ts,
		external: es,
	}
}

type request struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
	Amount         string `json:"amount" binding:"required,decimal"`
}

type data struct {
	Transfer domain.Receipt `json:"transfer"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type sendFunc func(ctx context.Context, senderID int32, recipientEmail string, amount decimal.Decimal) (domain.Receipt, error)

// Create handles http request to transfer money to another account of this institution.
func (h *Handler) Create(gctx *gin.Context) {
	h.handle(gctx, h.service.Transfer)
}

// CreateExternal handles http request to transfer money to an account at another institution.
func (h *Handler) CreateExternal(gctx *gin.Context) {
	h.handle(gctx, h.external.Send)
}

func (h *Handler) handle(gctx *gin.Context, send sendFunc) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	receipt, err := send(ctx, authPayload.AccountID, req.RecipientEmail, amount)
	if err != nil {
		status, resErr := statusFor(err)
		gctx.JSON(status, web.Error(resErr))

		return
	}

	gctx.JSON(http.StatusOK, response{
		Data: data{receipt},
	})
}

// statusFor maps a transfer error to the HTTP status and the error shown to the caller.
func statusFor(err error) (int, error) {
	switch {
	case errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, domain.ErrTooManyDecimalPlaces),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest, err
	case errors.Is(err, domain.ErrRecipientNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, err
	case errors.Is(err, domain.ErrExternalTransferRejected):
		return http.StatusUnprocessableEntity, domain.ErrExternalTransferRejected
	case errors.Is(err, domain.ErrExternalTransferUnreachable):
		return http.StatusServiceUnavailable, domain.ErrExternalTransferUnreachable
	}

	return http.StatusInternalServerError, errorspkg.ErrInternal
}
