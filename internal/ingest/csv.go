// Package ingest converts uploaded CSV files into strict domain types.
//
// This is the translation step at the collaborator boundary: rows are
// validated here so the matching engine only ever sees well-formed
// records. Bad rows are reported with their line numbers instead of
// failing the whole file.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/settleline/reconcile-backend/internal/domain/model"
)

// RowError describes one rejected CSV row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

const dateLayout = "2006-01-02"

// ParseOrders parses an orders CSV. Required columns: customer,
// orderId, date, item, and a price column (either "price" in dollars or
// "priceCents"/"price_cents" in integer cents).
func ParseOrders(r io.Reader) ([]model.Order, []RowError, error) {
	records, header, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}

	if err := header.require("customer", "orderid", "date", "item"); err != nil {
		return nil, nil, err
	}
	if !header.has("price") && !header.has("pricecents") {
		return nil, nil, fmt.Errorf("missing required column: price or priceCents")
	}

	orders := make([]model.Order, 0, len(records))
	var rowErrs []RowError

	for i, record := range records {
		rowNum := i + 2 // 1-based, after header

		order, err := orderFromRow(header, record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		orders = append(orders, order)
	}

	return orders, rowErrs, nil
}

// ParseTransactions parses a transactions CSV. On top of the order
// columns it requires txnType and a transaction amount column
// ("txnAmount" in dollars or "txnAmountCents" in integer cents).
func ParseTransactions(r io.Reader) ([]model.Transaction, []RowError, error) {
	records, header, err := readAll(r)
	if err != nil {
		return nil, nil, err
	}

	if err := header.require("customer", "orderid", "date", "item", "txntype"); err != nil {
		return nil, nil, err
	}
	if !header.has("price") && !header.has("pricecents") {
		return nil, nil, fmt.Errorf("missing required column: price or priceCents")
	}
	if !header.has("txnamount") && !header.has("txnamountcents") {
		return nil, nil, fmt.Errorf("missing required column: txnAmount or txnAmountCents")
	}

	txns := make([]model.Transaction, 0, len(records))
	var rowErrs []RowError

	for i, record := range records {
		rowNum := i + 2

		order, err := orderFromRow(header, record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}

		kind := strings.TrimSpace(header.get(record, "txntype"))
		if kind == "" {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: "empty txnType"})
			continue
		}

		amountCents, err := centsFromRow(header, record, "txnamount", "txnamountcents")
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: rowNum, Message: err.Error()})
			continue
		}

		txns = append(txns, model.Transaction{
			Customer:    order.Customer,
			ExternalID:  order.ExternalID,
			Date:        order.Date,
			Item:        order.Item,
			PriceCents:  order.PriceCents,
			Kind:        kind,
			AmountCents: amountCents,
		})
	}

	return txns, rowErrs, nil
}

// header maps lowercased column names to their positions. Both
// camelCase and snake_case headers are accepted; underscores are
// stripped before lookup.
type header map[string]int

func (h header) has(name string) bool {
	_, ok := h[name]
	return ok
}

func (h header) require(names ...string) error {
	for _, name := range names {
		if !h.has(name) {
			return fmt.Errorf("missing required column: %s", name)
		}
	}
	return nil
}

func (h header) get(record []string, name string) string {
	idx, ok := h[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func readAll(r io.Reader) ([][]string, header, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are handled per-row
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("csv must have a header row and at least one data row")
	}

	h := make(header, len(records[0]))
	for i, name := range records[0] {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "")
		h[key] = i
	}

	return records[1:], h, nil
}

func orderFromRow(h header, record []string) (model.Order, error) {
	customer := strings.TrimSpace(h.get(record, "customer"))
	if customer == "" {
		return model.Order{}, fmt.Errorf("empty customer")
	}

	externalID := strings.TrimSpace(h.get(record, "orderid"))
	if externalID == "" {
		return model.Order{}, fmt.Errorf("empty orderId")
	}

	item := strings.TrimSpace(h.get(record, "item"))
	if item == "" {
		return model.Order{}, fmt.Errorf("empty item")
	}

	rawDate := strings.TrimSpace(h.get(record, "date"))
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return model.Order{}, fmt.Errorf("bad date %q: expected YYYY-MM-DD", rawDate)
	}

	priceCents, err := centsFromRow(h, record, "price", "pricecents")
	if err != nil {
		return model.Order{}, err
	}

	return model.Order{
		Customer:   customer,
		ExternalID: externalID,
		Date:       date,
		Item:       item,
		PriceCents: priceCents,
	}, nil
}

// centsFromRow reads a money value: the cents column wins when present,
// otherwise the dollar column is converted by rounding.
func centsFromRow(h header, record []string, dollarCol, centsCol string) (int64, error) {
	if h.has(centsCol) {
		raw := strings.TrimSpace(h.get(record, centsCol))
		cents, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s %q: expected integer cents", centsCol, raw)
		}
		return cents, nil
	}

	raw := strings.TrimSpace(h.get(record, dollarCol))
	dollars, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0, fmt.Errorf("bad %s %q: expected a dollar amount", dollarCol, raw)
	}
	return int64(math.Round(dollars * 100)), nil
}
