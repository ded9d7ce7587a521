// Package payments holds the payment-bridge boundary. The session engine only
// records authorization results; the bridge owns validity.
package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/Devansh-Ruia/Pulse/internal/domain"
	"github.com/Devansh-Ruia/Pulse/internal/metrics"
)

// MockAuthorizer approves every request with a synthetic transaction
// reference. Used in development when no bridge URL is configured.
type MockAuthorizer struct{}

func (MockAuthorizer) Authorize(_ context.Context, _ string, _ float64) (domain.Authorization, error) {
	metrics.PaymentAuthorizations.WithLabelValues("success").Inc()
	return domain.Authorization{
		Success:       true,
		TransactionID: "mock_tx_" + uuid.NewString(),
	}, nil
}
