// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/soseki-bank/internal/accountdelivery"
	"github.com/go-petr/soseki-bank/internal/accountrepo"
	"github.com/go-petr/soseki-bank/internal/accountservice"
	"github.com/go-petr/soseki-bank/internal/entryrepo"
	"github.com/go-petr/soseki-bank/internal/eventpub"
	"github.com/go-petr/soseki-bank/internal/externalservice"
	"github.com/go-petr/soseki-bank/internal/historydelivery"
	"github.com/go-petr/soseki-bank/internal/historyservice"
	"github.com/go-petr/soseki-bank/internal/memstore"
	"github.com/go-petr/soseki-bank/internal/middleware"
	"github.com/go-petr/soseki-bank/internal/settlementclient"
	"github.com/go-petr/soseki-bank/internal/settlementdelivery"
	"github.com/go-petr/soseki-bank/internal/settlementservice"
	"github.com/go-petr/soseki-bank/internal/transferdelivery"
	"github.com/go-petr/soseki-bank/internal/transferrepo"
	"github.com/go-petr/soseki-bank/internal/transferservice"
	"github.com/go-petr/soseki-bank/pkg/configpkg"
	"github.com/go-petr/soseki-bank/pkg/moneypkg"
	"github.com/go-petr/soseki-bank/pkg/tokenpkg"
)

// DriverMemory selects the in-process ledger store instead of Postgres.
const DriverMemory = "memory"

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB        *sql.DB
	Engine    *gin.Engine
	Config    configpkg.Config
	publisher eventpub.Publisher
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// Close flushes pending ledger events.
func (s *Server) Close() error {
	return s.publisher.Close()
}

// stores groups the ledger store capabilities each service depends on.
type stores struct {
	accounts  accountservice.Repo
	transfers transferservice.Repo
	debits    externalservice.Repo
	credits   settlementservice.Repo
	entries   historyservice.Repo
}

func newStores(conn *sql.DB, driver string) stores {
	if driver == DriverMemory || conn == nil {
		s := memstore.New()
		return stores{accounts: s, transfers: s, debits: s, credits: s, entries: s}
	}

	tr := transferrepo.NewRepoPGS(conn)

	return stores{
		accounts:  accountrepo.NewRepoPGS(conn),
		transfers: tr,
		debits:    tr,
		credits:   tr,
		entries:   entryrepo.NewRepoPGS(conn),
	}
}

// New creates Server type with instantiated domains and routes.
//
// A nil conn or the memory driver keeps the whole ledger in process memory.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("decimal", moneypkg.ValidDecimal); err != nil {
			return nil, errors.New("cannot register decimal validator")
		}
	}

	openingBalance, err := decimal.NewFromString(config.OpeningBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid opening balance %q: %w", config.OpeningBalance, err)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenKind, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	st := newStores(conn, config.DBDriver)
	publisher := eventpub.New(config.Brokers(), config.KafkaTopic)
	settlementClient := settlementclient.New(config.SettlementURL, config.SettlementTimeout)

	accountService := accountservice.New(st.accounts, openingBalance)
	transferService := transferservice.New(st.transfers, accountService, publisher)
	externalService := externalservice.New(st.debits, accountService, settlementClient, publisher, config.InstitutionName)
	settlementService := settlementservice.New(st.credits, accountService, publisher, config.InstitutionName)
	historyService := historyservice.New(st.entries)

	accountHandler := accountdelivery.NewHandler(accountService, tokenMaker, config.AccessTokenDuration)
	transferHandler := transferdelivery.NewHandler(transferService, externalService)
	settlementHandler := settlementdelivery.NewHandler(settlementService)
	historyHandler := historydelivery.NewHandler(historyService)

	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	engine.POST("/accounts", accountHandler.Create)
	engine.POST("/receivemoney", settlementHandler.Receive)

	authRoutes := engine.Group("/").Use(middleware.AuthMiddleware(tokenMaker))

	authRoutes.GET("/accounts/me", accountHandler.Get)
	authRoutes.GET("/history", historyHandler.List)
	authRoutes.POST("/transfers", transferHandler.Create)
	authRoutes.POST("/transfers/external", transferHandler.CreateExternal)

	server := &Server{
		DB:        conn,
		Engine:    engine,
		Config:    config,
		publisher: publisher,
	}

	return server, nil
}
