package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsIsIdempotent(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("frontline-a", "GET", "/health", 200, 12*time.Millisecond)
	SessionsActive.Set(3)
	SessionsRejected.WithLabelValues("capacity").Inc()
	MessagesTotal.WithLabelValues("in", "210").Inc()
	CookiesValidated.WithLabelValues("ok").Inc()
}
