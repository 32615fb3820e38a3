// Package model defines the record types exchanged between the matching
// engine, storage, and the API layer.
//
// Monetary amounts are exact integer cents throughout; floating-point
// dollar values never enter the domain.
package model

import "time"

// Order represents one expected financial event awaiting reconciliation.
// ID is assigned by storage and is zero for not-yet-persisted orders.
type Order struct {
	ID         int64     `json:"id,omitempty"`
	Customer   string    `json:"customer"`
	ExternalID string    `json:"orderId"`
	Date       time.Time `json:"date"`
	Item       string    `json:"item"`
	PriceCents int64     `json:"priceCents"`
}

// Transaction represents one observed financial event (payment, refund,
// etc.). AmountCents is negative for refunds. MatchedOrderID is a
// back-reference written after a matching run commits; the engine treats
// it as an output only.
type Transaction struct {
	ID             int64     `json:"id,omitempty"`
	Customer       string    `json:"customer"`
	ExternalID     string    `json:"orderId"`
	Date           time.Time `json:"date"`
	Item           string    `json:"item"`
	PriceCents     int64     `json:"priceCents"`
	Kind           string    `json:"txnType"`
	AmountCents    int64     `json:"txnAmountCents"`
	MatchedOrderID *int64    `json:"matchedOrderId,omitempty"`
}

// MatchedGroup is one order together with every transaction committed to
// it. Transactions is never empty; an order may aggregate several
// transactions (a payment plus a later refund). Score is the confidence
// of the first (highest-ranked) commitment, in [0,1].
type MatchedGroup struct {
	Order        Order         `json:"order"`
	Transactions []Transaction `json:"transactions"`
	Score        float64       `json:"score"`
}

// MatchingResult is the complete output of one matching run. Every input
// order appears exactly once, either as a group's order or in
// UnmatchedOrders; every input transaction appears exactly once, either
// inside exactly one group or in UnmatchedTransactions.
type MatchingResult struct {
	Matched               []MatchedGroup `json:"matched"`
	UnmatchedOrders       []Order        `json:"unmatchedOrders"`
	UnmatchedTransactions []Transaction  `json:"unmatchedTransactions"`
}

// MatchedTransactions returns the number of transactions committed to a
// group.
func (r *MatchingResult) MatchedTransactions() int {
	n := 0
	for _, g := range r.Matched {
		n += len(g.Transactions)
	}
	return n
}

// TotalTransactions returns the number of transactions across all
// buckets, matched and unmatched.
func (r *MatchingResult) TotalTransactions() int {
	return r.MatchedTransactions() + len(r.UnmatchedTransactions)
}

// TotalOrders returns the number of orders across all buckets.
func (r *MatchingResult) TotalOrders() int {
	return len(r.Matched) + len(r.UnmatchedOrders)
}
