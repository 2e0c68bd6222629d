// Package historydelivery manages delivery layer of the transaction log.
package historydelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/internal/middleware"
	"github.com/go-petr/soseki-bank/pkg/errorspkg"
	"github.com/go-petr/soseki-bank/pkg/tokenpkg"
	"github.com/go-petr/soseki-bank/pkg/web"
)

// Service provides service layer interface needed by history delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package historydelivery
type Service interface {
	History(ctx context.Context, accountID int32) ([]domain.Entry, error)
}

// Handler facilitates history delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns history handler.
func NewHandler(hs Service) *Handler {
	return &Handler{service: hs}
}

type data struct {
	Entries []domain.Entry `json:"entries"`
}

type response struct {
	Data data `json:"data"`
}

// List handles http request to list the caller's transaction log, newest first.
func (h *Handler) List(gctx *gin.Context) {
	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	entries, err := h.service.History(gctx.Request.Context(), authPayload.AccountID)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{Entries: entries}})
}
