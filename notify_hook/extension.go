// Package notifyhook bridges Teller settlement events to a customer
// notification channel.
//
// It defines a local Notifier interface so the package does not depend on any
// particular delivery mechanism. Callers inject a NotifierFunc adapter that
// bridges to email, SMS, or push at wiring time. Delivery is fire-and-forget;
// a failed send is logged and never fails the settlement.
package notifyhook

import (
	"context"
	"log/slog"

	"github.com/xraph/teller/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnSettlementCompleted = (*Extension)(nil)
	_ plugin.OnSettlementRejected  = (*Extension)(nil)
	_ plugin.OnCardDeclined        = (*Extension)(nil)
)

// Notification kinds.
const (
	KindSettlementCompleted = "settlement.completed"
	KindSettlementRejected  = "settlement.rejected"
	KindCardDeclined        = "card.declined"
)

// Notification is a customer-facing message about a ledger event.
type Notification struct {
	Kind       string `json:"kind"`
	CustomerID string `json:"customer_id,omitempty"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// Notifier delivers notifications to customers.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// NotifierFunc is an adapter to use a plain function as a Notifier.
type NotifierFunc func(ctx context.Context, n *Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// Extension bridges Teller settlement events to a Notifier.
type Extension struct {
	notifier Notifier
	logger   *slog.Logger
}

// New creates an Extension that delivers notifications through n.
func New(n Notifier, opts ...Option) *Extension {
	e := &Extension{
		notifier: n,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "notify-hook" }

// OnSettlementCompleted implements plugin.OnSettlementCompleted.
func (e *Extension) OnSettlementCompleted(ctx context.Context, customerID string, _ interface{}) error {
	e.send(ctx, &Notification{
		Kind:       KindSettlementCompleted,
		CustomerID: customerID,
		Subject:    "Transaction completed",
		Body:       "Your transaction has been settled.",
	})
	return nil
}

// OnSettlementRejected implements plugin.OnSettlementRejected.
func (e *Extension) OnSettlementRejected(ctx context.Context, customerID, opType string, reason error) error {
	e.send(ctx, &Notification{
		Kind:       KindSettlementRejected,
		CustomerID: customerID,
		Subject:    "Transaction rejected",
		Body:       "Your " + opType + " could not be completed: " + reason.Error(),
	})
	return nil
}

// OnCardDeclined implements plugin.OnCardDeclined.
func (e *Extension) OnCardDeclined(ctx context.Context, cardRef string, reason error) error {
	e.send(ctx, &Notification{
		Kind:    KindCardDeclined,
		Subject: "Card declined",
		Body:    "A payment on card " + cardRef + " was declined: " + reason.Error(),
	})
	return nil
}

// send delivers a notification, logging failures instead of propagating them.
func (e *Extension) send(ctx context.Context, n *Notification) {
	if err := e.notifier.Notify(ctx, n); err != nil {
		e.logger.Warn("notify_hook: failed to deliver notification",
			"kind", n.Kind,
			"customer_id", n.CustomerID,
			"error", err,
		)
	}
}
