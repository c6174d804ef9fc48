package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kirillkom/label-compliance/internal/core/domain"
	"github.com/kirillkom/label-compliance/internal/infrastructure/resilience"
)

var (
	retryAndRecord = resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	recordOnly     = resilience.ErrorClassification{RecordFailure: true}
	ignore         = resilience.ErrorClassification{}
)

func classifyOllamaError(err error) resilience.ErrorClassification {
	if err == nil {
		return ignore
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ignore
	}
	if resilience.IsCircuitOpen(err) {
		return retryAndRecord
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retryAndRecord
	}
	return recordOnly
}

func classifyStatus(code int) resilience.ErrorClassification {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return retryAndRecord
	case http.StatusNotFound:
		// Model not pulled.
		return recordOnly
	default:
		return ignore
	}
}

// modelError maps a failed model call onto the domain error kinds. Anything
// that may succeed later is ErrTemporary so the API answers 503.
func modelError(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOllamaError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	if statusErr := (*HTTPStatusError)(nil); errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
