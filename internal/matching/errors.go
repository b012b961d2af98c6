package matching

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/spigell/careerpath-ai/internal/ai"
)

// classify maps a gateway failure to the AI error taxonomy. Cancellation by the caller is
// returned unchanged.
func classify(ctx context.Context, err error, failure string) error {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		return err
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}

	if isConnectionError(err) {
		return ai.Unavailable(err)
	}

	if isTimeout(err) {
		return ai.Timeout()
	}

	return ai.ParseError(failure, err)
}

func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
