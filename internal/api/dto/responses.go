package dto

import (
	"time"

	"github.com/settleline/reconcile-backend/internal/domain/model"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Storage   string    `json:"storage"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthResponse creates a healthy response reporting the storage driver
// the server was started with.
func NewHealthResponse(storageDriver string) HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Service:   "reconcile-backend",
		Storage:   storageDriver,
		Timestamp: time.Now().UTC(),
	}
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID         int64  `json:"id,omitempty"`
	Customer   string `json:"customer"`
	OrderID    string `json:"orderId"`
	Date       string `json:"date"`
	Item       string `json:"item"`
	PriceCents int64  `json:"priceCents"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID             int64  `json:"id,omitempty"`
	Customer       string `json:"customer"`
	OrderID        string `json:"orderId"`
	Date           string `json:"date"`
	Item           string `json:"item"`
	PriceCents     int64  `json:"priceCents"`
	TxnType        string `json:"txnType"`
	TxnAmountCents int64  `json:"txnAmountCents"`
	MatchedOrderID *int64 `json:"matchedOrderId,omitempty"`
}

// MatchedGroupResponse is one order with its committed transactions.
type MatchedGroupResponse struct {
	Order        OrderResponse         `json:"order"`
	Transactions []TransactionResponse `json:"transactions"`
	Score        float64               `json:"score"`
}

// MatchingResultResponse is the wire format of a matching result.
type MatchingResultResponse struct {
	Matched               []MatchedGroupResponse `json:"matched"`
	UnmatchedOrders       []OrderResponse        `json:"unmatchedOrders"`
	UnmatchedTransactions []TransactionResponse  `json:"unmatchedTransactions"`
}

// OrderListResponse is returned when listing orders.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// UploadResponse reports the outcome of a CSV bulk insert.
type UploadResponse struct {
	InsertedCount  int        `json:"insertedCount"`
	TotalProcessed int        `json:"totalProcessed"`
	Errors         []RowError `json:"errors,omitempty"`
}

// RowError mirrors ingest row failures in API responses.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// MatchRunResponse describes one matching run.
type MatchRunResponse struct {
	ID                    string  `json:"id"`
	Profile               string  `json:"profile"`
	Threshold             float64 `json:"threshold"`
	StartedAt             string  `json:"started_at"`
	CompletedAt           string  `json:"completed_at,omitempty"`
	DurationMS            int64   `json:"duration_ms"`
	OrdersTotal           int     `json:"orders_total"`
	TransactionsTotal     int     `json:"transactions_total"`
	MatchedGroups         int     `json:"matched_groups"`
	MatchedTransactions   int     `json:"matched_transactions"`
	UnmatchedOrders       int     `json:"unmatched_orders"`
	UnmatchedTransactions int     `json:"unmatched_transactions"`
	Status                string  `json:"status"`
}

// MatchRunListResponse is returned when listing matching runs.
type MatchRunListResponse struct {
	Runs  []MatchRunResponse `json:"runs"`
	Count int                `json:"count"`
}

// MatchResponse pairs a run record with its full result.
type MatchResponse struct {
	Run    *MatchRunResponse      `json:"run,omitempty"`
	Result MatchingResultResponse `json:"result"`
}

const dateLayout = "2006-01-02"

// FromOrder converts a domain order to its response shape.
func FromOrder(o model.Order) OrderResponse {
	return OrderResponse{
		ID:         o.ID,
		Customer:   o.Customer,
		OrderID:    o.ExternalID,
		Date:       o.Date.Format(dateLayout),
		Item:       o.Item,
		PriceCents: o.PriceCents,
	}
}

// FromTransaction converts a domain transaction to its response shape.
func FromTransaction(t model.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID,
		Customer:       t.Customer,
		OrderID:        t.ExternalID,
		Date:           t.Date.Format(dateLayout),
		Item:           t.Item,
		PriceCents:     t.PriceCents,
		TxnType:        t.Kind,
		TxnAmountCents: t.AmountCents,
		MatchedOrderID: t.MatchedOrderID,
	}
}

// FromMatchingResult converts a domain result to the wire format.
func FromMatchingResult(result *model.MatchingResult) MatchingResultResponse {
	resp := MatchingResultResponse{
		Matched:               make([]MatchedGroupResponse, 0, len(result.Matched)),
		UnmatchedOrders:       make([]OrderResponse, 0, len(result.UnmatchedOrders)),
		UnmatchedTransactions: make([]TransactionResponse, 0, len(result.UnmatchedTransactions)),
	}

	for _, group := range result.Matched {
		g := MatchedGroupResponse{
			Order:        FromOrder(group.Order),
			Transactions: make([]TransactionResponse, 0, len(group.Transactions)),
			Score:        group.Score,
		}
		for _, txn := range group.Transactions {
			g.Transactions = append(g.Transactions, FromTransaction(txn))
		}
		resp.Matched = append(resp.Matched, g)
	}

	for _, o := range result.UnmatchedOrders {
		resp.UnmatchedOrders = append(resp.UnmatchedOrders, FromOrder(o))
	}
	for _, t := range result.UnmatchedTransactions {
		resp.UnmatchedTransactions = append(resp.UnmatchedTransactions, FromTransaction(t))
	}

	return resp
}
