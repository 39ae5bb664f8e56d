package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rl1809/card-checkout/internal/core/domain"
	"github.com/rl1809/card-checkout/internal/port"
)

// ErrVerificationFailed marks a reconciliation that could not learn the
// authoritative outcome because the poll itself failed.
var ErrVerificationFailed = errors.New("payment verification failed")

type ReconcileState string

const (
	ReconcileStateIdle      ReconcileState = "IDLE"
	ReconcileStateSubmitted ReconcileState = "SUBMITTED"
	ReconcileStateAwaiting  ReconcileState = "AWAITING_CONFIRMATION"
	ReconcileStateTerminal  ReconcileState = "TERMINAL"
)

type ReconcileOutcome struct {
	TransactionID string
	Status        domain.TransactionStatus
	Err           error
}

// StatusApplier is the slice of CheckoutService the reconciler needs.
type StatusApplier interface {
	UpdateTransactionStatus(ctx context.Context, id string, status domain.TransactionStatus, externalID string) error
}

// Reconciler resolves transactions whose synchronous gateway response was
// non-terminal. Each watch is a single deferred poll, not a recurring
// worker: after the configured delay it asks the gateway once and applies
// whatever it learns. Every watch ends terminal, success or not.
type Reconciler struct {
	gateway port.PaymentGateway
	applier StatusApplier
	delay   time.Duration
}

func NewReconciler(gateway port.PaymentGateway, applier StatusApplier, delay time.Duration) *Reconciler {
	return &Reconciler{
		gateway: gateway,
		applier: applier,
		delay:   delay,
	}
}

// Watch runs the post-submission state machine for one transaction and
// reports the terminal outcome on the returned channel. Cancelling ctx
// before the poll fires stops the timer and suppresses the status update.
func (r *Reconciler) Watch(ctx context.Context, txID, externalID string, lastKnown domain.TransactionStatus) <-chan ReconcileOutcome {
	out := make(chan ReconcileOutcome, 1)

	if lastKnown.Terminal() {
		log.Printf("reconciler: transaction %s already terminal (%s)", txID, lastKnown)
		out <- ReconcileOutcome{TransactionID: txID, Status: lastKnown}
		return out
	}

	log.Printf("reconciler: transaction %s %s -> %s, poll in %s",
		txID, ReconcileStateSubmitted, ReconcileStateAwaiting, r.delay)

	go func() {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			out <- ReconcileOutcome{TransactionID: txID, Status: lastKnown, Err: ctx.Err()}
			return
		case <-timer.C:
		}

		polled, err := r.gateway.StatusOf(ctx, externalID)
		if err != nil {
			log.Printf("reconciler: poll failed for transaction %s: %v", txID, err)
			out <- ReconcileOutcome{
				TransactionID: txID,
				Status:        lastKnown,
				Err:           fmt.Errorf("%w: %v", ErrVerificationFailed, err),
			}
			return
		}

		if polled != lastKnown || lastKnown != domain.TransactionStatusApproved {
			if err := r.applier.UpdateTransactionStatus(ctx, txID, polled, externalID); err != nil {
				out <- ReconcileOutcome{TransactionID: txID, Status: polled, Err: err}
				return
			}
		}

		log.Printf("reconciler: transaction %s %s (%s)", txID, ReconcileStateTerminal, polled)
		out <- ReconcileOutcome{TransactionID: txID, Status: polled}
	}()

	return out
}
