// Package settlementclient sends settlement requests to a remote institution's receive endpoint.
package settlementclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-petr/soseki-bank/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

var (
	// ErrUnconfirmedAck indicates a success status whose body does not confirm the recipient.
	// The remote side may have credited the recipient.
	ErrUnconfirmedAck = fmt.Errorf("%w: unconfirmed acknowledgment", domain.ErrExternalTransferRejected)
	// ErrTimeout indicates that the request was sent but no answer arrived in time.
	// The remote side may have credited the recipient.
	ErrTimeout = fmt.Errorf("%w: timed out", domain.ErrExternalTransferUnreachable)
	// ErrServerError indicates a 5xx answer. The remote side may have credited the recipient.
	ErrServerError = fmt.Errorf("%w: remote server error", domain.ErrExternalTransferUnreachable)
)

// maxConsecutiveFailures trips the breaker.
const maxConsecutiveFailures = 5

// Client posts settlement requests with a bounded timeout behind a circuit breaker.
//
// Remote rejections do not count as breaker failures; transport errors and 5xx answers do.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// New returns a Client posting to url, giving up after timeout.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "settlement",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxConsecutiveFailures
			},
		}),
	}
}

type ackResponse struct {
	Data  *domain.SettlementAck `json:"data"`
	Error string                `json:"error"`
	User  string                `json:"user"`
}

type reply struct {
	status int
	body   []byte
}

// Send delivers req and returns the remote acknowledgment.
func (c *Client) Send(ctx context.Context, req domain.SettlementRequest) (domain.SettlementAck, error) {
	l := zerolog.Ctx(ctx).With().
		Str("settlement_url", c.url).
		Str("idempotency_key", req.IdempotencyKey).
		Logger()

	body, err := json.Marshal(req)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.SettlementAck{}, err
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, body, req.IdempotencyKey)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			l.Warn().Err(err).Msg("settlement circuit open")
			return domain.SettlementAck{}, domain.ErrExternalTransferUnreachable
		case isTimeout(err):
			l.Warn().Err(err).Msg("settlement timed out")
			return domain.SettlementAck{}, ErrTimeout
		case errors.Is(err, ErrServerError):
			l.Warn().Err(err).Msg("settlement failed on the remote side")
			return domain.SettlementAck{}, ErrServerError
		}

		l.Error().Err(err).Msg("settlement unreachable")

		return domain.SettlementAck{}, domain.ErrExternalTransferUnreachable
	}

	rep := res.(reply)

	var ack ackResponse
	decodeErr := json.Unmarshal(rep.body, &ack)

	if rep.status < 200 || rep.status > 299 {
		l.Info().
			Int("status", rep.status).
			Str("remote_error", ack.Error+ack.User).
			Msg("settlement rejected")

		return domain.SettlementAck{}, domain.ErrExternalTransferRejected
	}

	if decodeErr != nil || ack.Data == nil || !ack.Data.Confirmed() {
		l.Warn().Err(decodeErr).Int("status", rep.status).Msg("settlement acknowledgment unconfirmed")
		return domain.SettlementAck{}, ErrUnconfirmedAck
	}

	return *ack.Data, nil
}

// post returns an error only for failures that should trip the breaker.
func (c *Client) post(ctx context.Context, body []byte, idempotencyKey string) (reply, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return reply{}, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return reply{}, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return reply{}, fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
	}

	return reply{status: resp.StatusCode, body: data}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var te interface{ Timeout() bool }

	return errors.As(err, &te) && te.Timeout()
}
