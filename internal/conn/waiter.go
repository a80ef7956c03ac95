package conn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitResult is the outcome of a bounded wait for authentication.
// Timing out is a normal outcome, not an error.
type WaitResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// errNotConnected signals the retry loop that the session has not reached
// the connected state yet.
var errNotConnected = fmt.Errorf("not connected yet")

// Waiter polls the resolver at a constant interval until the session
// connects or the deadline passes.
type Waiter struct {
	resolver *Resolver
	interval time.Duration
	log      *slog.Logger
}

// NewWaiter creates a waiter polling at the given interval.
func NewWaiter(resolver *Resolver, interval time.Duration, log *slog.Logger) *Waiter {
	return &Waiter{resolver: resolver, interval: interval, log: log}
}

// Wait blocks until the session is connected or timeout elapses. It
// resolves the state immediately, then once per interval. The final
// snapshot's state is reported on timeout so callers can tell a pending
// session from a dead bridge.
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration) *WaitResult {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var last *Snapshot
	op := func() error {
		last = w.resolver.Snapshot(waitCtx)
		if last.Connected() {
			return nil
		}
		w.log.Debug("waiting for connection", "state", last.State)
		return errNotConnected
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(w.interval), waitCtx)
	err := backoff.Retry(op, policy)

	if err == nil && last != nil && last.Connected() {
		return &WaitResult{
			Success:     true,
			Message:     fmt.Sprintf("Connected to WhatsApp! Phone: %s", last.PhoneNumber),
			Status:      string(StateConnected),
			PhoneNumber: last.PhoneNumber,
		}
	}

	status := "timeout"
	msg := fmt.Sprintf("Timeout: WhatsApp did not connect within %d seconds", int(timeout.Seconds()))
	if last != nil {
		switch last.State {
		case StatePending:
			msg += ". A QR code is still waiting to be scanned."
		case StateExpired:
			msg += ". The QR code expired; trigger re-authentication."
		case StateDisconnected:
			msg += ". " + last.Message
		}
	}
	return &WaitResult{Success: false, Message: msg, Status: status}
}
