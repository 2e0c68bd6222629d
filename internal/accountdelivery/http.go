// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/middleware"
	"github.com/go-petr/soseki-bank/pkg/errorspkg"
	"github.com/go-petr/soseki-bank/pkg/tokenpkg"
	"github.com/go-petr/soseki-bank/pkg/web"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, email, firstName, lastName string) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service       Service
	tokenMaker    tokenpkg.Maker
	tokenDuration time.Duration
}

// NewHandler returns account handler. Opened accounts get an access token valid for tokenDuration.
func NewHandler(as Service, tokenMaker tokenpkg.Maker, tokenDuration time.Duration) Handler {
	return Handler{
		service:       as,
		tokenMaker:    tokenMaker,
		tokenDuration: tokenDuration,
	}
}

type data struct {
	Account     domain.Account `json:"account"`
	AccessToken string         `json:"access_token,omitempty"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type createRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	FirstName string `json:"first_name" binding:"required,max=64"`
	LastName  string `json:"last_name" binding:"required,max=64"`
}

// Create handles http request to open an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindingErrorMsg(err)})

		return
	}

	account, err := h.service.Create(ctx, req.Email, req.FirstName, req.LastName)
	if err != nil {
		if err == domain.ErrEmailAlreadyExists {
			gctx.JSON(http.StatusConflict, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	token, _, err := h.tokenMaker.CreateToken(account.ID, h.tokenDuration)
	if err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{
		Data: data{Account: account, AccessToken: token},
	})
}

// Get handles http request to get the caller's account.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	account, err := h.service.Get(ctx, authPayload.AccountID)
	if err != nil {
		if err == domain.ErrAccountNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, response{
		Data: data{Account: account},
	})
}
