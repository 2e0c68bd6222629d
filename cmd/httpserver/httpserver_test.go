package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/soseki-bank/cmd/httpserver"
	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/go-petr/soseki-bank/pkg/configpkg"
	"github.com/go-petr/soseki-bank/pkg/web"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type accountData struct {
	Account     domain.Account `json:"account"`
	AccessToken string         `json:"access_token"`
}

type transferData struct {
	Transfer domain.Receipt `json:"transfer"`
}

type historyData struct {
	Entries []domain.Entry `json:"entries"`
}

func memoryConfig(institution, settlementURL string) configpkg.Config {
	return configpkg.Config{
		DBDriver:            httpserver.DriverMemory,
		TokenKind:           "paseto",
		TokenSymmetricKey:   "12345678901234567890123456789012",
		AccessTokenDuration: time.Minute,
		InstitutionName:     institution,
		SettlementURL:       settlementURL,
		SettlementTimeout:   time.Second,
		OpeningBalance:      "1000",
	}
}

func newMemoryServer(t *testing.T, institution, settlementURL string) *httpserver.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	server, err := httpserver.New(nil, zerolog.Nop(), memoryConfig(institution, settlementURL))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, server.Close()) })

	return server
}

func do(t *testing.T, h http.Handler, method, path, token string, body any, data any) (int, string) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	res := web.Response{Data: data}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))

	return w.Code, res.Error
}

func openAccount(t *testing.T, h http.Handler, email, first, last string) accountData {
	t.Helper()

	var got accountData

	code, errMsg := do(t, h, http.MethodPost, "/accounts", "", map[string]string{
		"email":      email,
		"first_name": first,
		"last_name":  last,
	}, &got)
	require.Equal(t, http.StatusOK, code, errMsg)
	require.NotEmpty(t, got.AccessToken)

	return got
}

func requireBalance(t *testing.T, h http.Handler, token, want string) {
	t.Helper()

	var got accountData

	code, _ := do(t, h, http.MethodGet, "/accounts/me", token, nil, &got)
	require.Equal(t, http.StatusOK, code)
	require.True(t, got.Account.Balance.Equal(decimal.RequireFromString(want)), "balance %s, want %s", got.Account.Balance, want)
}

func TestOpenAccount(t *testing.T) {
	server := newMemoryServer(t, "Soseki Bank", "")

	alice := openAccount(t, server, "alice@soseki.jp", "Alice", "Natsume")
	require.True(t, alice.Account.Balance.Equal(decimal.NewFromInt(1000)))

	code, errMsg := do(t, server, http.MethodPost, "/accounts", "", map[string]string{
		"email":      "alice@soseki.jp",
		"first_name": "Other",
		"last_name":  "Alice",
	}, &accountData{})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, domain.ErrEmailAlreadyExists.Error(), errMsg)

	code, errMsg = do(t, server, http.MethodGet, "/accounts/me", "", nil, &accountData{})
	require.Equal(t, http.StatusUnauthorized, code)
	require.NotEmpty(t, errMsg)
}

func TestInternalTransfer(t *testing.T) {
	server := newMemoryServer(t, "Soseki Bank", "")

	alice := openAccount(t, server, "alice@soseki.jp", "Alice", "Natsume")
	bob := openAccount(t, server, "bob@soseki.jp", "Bob", "Botchan")

	testCases := []struct {
		name           string
		recipient      string
		amount         string
		wantStatusCode int
		wantError      string
		wantBalance    string
	}{
		{
			name:           "OK",
			recipient:      "bob@soseki.jp",
			amount:         "200",
			wantStatusCode: http.StatusOK,
			wantBalance:    "800",
		},
		{
			name:           "Overdraft",
			recipient:      "bob@soseki.jp",
			amount:         "20000",
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrInsufficientFunds.Error(),
			wantBalance:    "800",
		},
		{
			name:           "ThreeDecimalPlaces",
			recipient:      "bob@soseki.jp",
			amount:         "1.005",
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrTooManyDecimalPlaces.Error(),
			wantBalance:    "800",
		},
		{
			name:           "ZeroAmount",
			recipient:      "bob@soseki.jp",
			amount:         "0",
			wantStatusCode: http.StatusBadRequest,
			wantError:      domain.ErrNonPositiveAmount.Error(),
			wantBalance:    "800",
		},
		{
			name:           "UnknownRecipient",
			recipient:      "nobody@soseki.jp",
			amount:         "10",
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrRecipientNotFound.Error(),
			wantBalance:    "800",
		},
		{
			name:           "LeavesOneCent",
			recipient:      "bob@soseki.jp",
			amount:         "799.99",
			wantStatusCode: http.StatusOK,
			wantBalance:    "0.01",
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			var got transferData

			code, errMsg := do(t, server, http.MethodPost, "/transfers", alice.AccessToken, map[string]string{
				"recipient_email": tc.recipient,
				"amount":          tc.amount,
			}, &got)

			require.Equal(t, tc.wantStatusCode, code)
			require.Equal(t, tc.wantError, errMsg)

			if tc.wantStatusCode == http.StatusOK {
				require.True(t, got.Transfer.Balance.Equal(decimal.RequireFromString(tc.wantBalance)))
				require.Equal(t, domain.DirectionDebit, got.Transfer.Entry.Direction)
				require.Equal(t, "Bob Botchan <bob@soseki.jp>", got.Transfer.Entry.ToLabel)
			}

			requireBalance(t, server, alice.AccessToken, tc.wantBalance)
		})
	}

	requireBalance(t, server, bob.AccessToken, "1999.99")

	var history historyData

	code, _ := do(t, server, http.MethodGet, "/history", bob.AccessToken, nil, &history)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history.Entries, 2)
	require.True(t, history.Entries[0].Amount.Equal(decimal.RequireFromString("799.99")))
	require.Equal(t, domain.DirectionCredit, history.Entries[0].Direction)
	require.Equal(t, "Alice Natsume <alice@soseki.jp>", history.Entries[0].FromLabel)
}

func TestExternalTransfer(t *testing.T) {
	remote := newMemoryServer(t, "Kokoro Bank", "")
	remoteHTTP := httptest.NewServer(remote)
	t.Cleanup(remoteHTTP.Close)

	local := newMemoryServer(t, "Soseki Bank", remoteHTTP.URL+"/receivemoney")

	alice := openAccount(t, local, "alice@soseki.jp", "Alice", "Natsume")
	carol := openAccount(t, remote, "carol@kokoro.jp", "Carol", "Sensei")

	t.Run("OK", func(t *testing.T) {
		var got transferData

		code, errMsg := do(t, local, http.MethodPost, "/transfers/external", alice.AccessToken, map[string]string{
			"recipient_email": "carol@kokoro.jp",
			"amount":          "100",
		}, &got)
		require.Equal(t, http.StatusOK, code, errMsg)
		require.True(t, got.Transfer.Balance.Equal(decimal.NewFromInt(900)))
		require.Equal(t, "Carol Sensei <carol@kokoro.jp> at Kokoro Bank", got.Transfer.Entry.ToLabel)
		require.NotEmpty(t, got.Transfer.IdempotencyKey)

		requireBalance(t, remote, carol.AccessToken, "1100")

		var history historyData

		code, _ = do(t, remote, http.MethodGet, "/history", carol.AccessToken, nil, &history)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, history.Entries, 1)
		require.Equal(t, "Alice Natsume <alice@soseki.jp> at Soseki Bank", history.Entries[0].FromLabel)
	})

	t.Run("UnknownRemoteRecipient", func(t *testing.T) {
		code, errMsg := do(t, local, http.MethodPost, "/transfers/external", alice.AccessToken, map[string]string{
			"recipient_email": "nobody@kokoro.jp",
			"amount":          "100",
		}, &transferData{})
		require.Equal(t, http.StatusUnprocessableEntity, code)
		require.Equal(t, domain.ErrExternalTransferRejected.Error(), errMsg)

		requireBalance(t, local, alice.AccessToken, "900")
	})

	t.Run("Overdraft", func(t *testing.T) {
		code, errMsg := do(t, local, http.MethodPost, "/transfers/external", alice.AccessToken, map[string]string{
			"recipient_email": "carol@kokoro.jp",
			"amount":          "900",
		}, &transferData{})
		require.Equal(t, http.StatusBadRequest, code)
		require.Equal(t, domain.ErrInsufficientFunds.Error(), errMsg)

		requireBalance(t, remote, carol.AccessToken, "1100")
	})
}

func TestExternalTransferUnreachable(t *testing.T) {
	remoteHTTP := httptest.NewServer(http.NotFoundHandler())
	url := remoteHTTP.URL + "/receivemoney"
	remoteHTTP.Close()

	local := newMemoryServer(t, "Soseki Bank", url)
	alice := openAccount(t, local, "alice@soseki.jp", "Alice", "Natsume")

	code, errMsg := do(t, local, http.MethodPost, "/transfers/external", alice.AccessToken, map[string]string{
		"recipient_email": "carol@kokoro.jp",
		"amount":          "100",
	}, &transferData{})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, domain.ErrExternalTransferUnreachable.Error(), errMsg)

	requireBalance(t, local, alice.AccessToken, "1000")
}

func TestReceiveMoney(t *testing.T) {
	server := newMemoryServer(t, "Soseki Bank", "")
	bob := openAccount(t, server, "bob@soseki.jp", "Bob", "Botchan")

	var ack domain.SettlementAck

	code, errMsg := do(t, server, http.MethodPost, "/receivemoney", "", map[string]string{
		"bank":            "Kokoro Bank",
		"sender_name":     "Carol Sensei",
		"sender_email":    "carol@kokoro.jp",
		"recipient_email": "bob@soseki.jp",
		"amount":          "25.50",
	}, &ack)
	require.Equal(t, http.StatusOK, code, errMsg)
	require.Equal(t, domain.SettlementAck{RecipientName: "Bob Botchan", RecipientEmail: "bob@soseki.jp", Bank: "Soseki Bank"}, ack)

	requireBalance(t, server, bob.AccessToken, "1025.5")
}
