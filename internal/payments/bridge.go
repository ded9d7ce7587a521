package payments

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/metrics"
)

// DefaultTimeout bounds one authorization round-trip, independent of the
// session engine.
const DefaultTimeout = 60 * time.Second

const (
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// Bridge authorizes payments against an external bridge service. A circuit
// breaker keeps a failing bridge from tying up request handlers.
type Bridge struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	settings := gobreaker.Settings{
		Name:    "payment-bridge",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
	}
	return &Bridge{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type authorizeRequest struct {
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type authorizeResponse struct {
	Success bool   `json:"success"`
	TxID    string `json:"txId"`
}

func (b *Bridge) Authorize(ctx context.Context, recipient string, amount float64) (domain.Authorization, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.post(ctx, recipient, amount)
	})
	if err != nil {
		metrics.PaymentAuthorizations.WithLabelValues("error").Inc()
		return domain.Authorization{}, err
	}

	resp := result.(authorizeResponse)
	if !resp.Success {
		metrics.PaymentAuthorizations.WithLabelValues("declined").Inc()
		return domain.Authorization{Success: false}, nil
	}

	metrics.PaymentAuthorizations.WithLabelValues("success").Inc()
	return domain.Authorization{Success: true, TransactionID: resp.TxID}, nil
}

func (b *Bridge) post(ctx context.Context, recipient string, amount float64) (authorizeResponse, error) {
	body, err := json.Marshal(authorizeRequest{To: recipient, Amount: amount})
	if err != nil {
		return authorizeResponse{}, fmt.Errorf("marshal authorize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return authorizeResponse{}, fmt.Errorf("build authorize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return authorizeResponse{}, fmt.Errorf("payment bridge request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return authorizeResponse{}, fmt.Errorf("payment bridge returned status %d", res.StatusCode)
	}

	var resp authorizeResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return authorizeResponse{}, fmt.Errorf("decode authorize response: %w", err)
	}
	return resp, nil
}
