package dto

// MatchRequest selects the configuration for a matching run. All fields
// are optional; missing values fall back to the server's configured
// defaults.
type MatchRequest struct {
	Profile            string          `json:"profile,omitempty"`
	Threshold          float64         `json:"threshold,omitempty"`
	Weights            *WeightsPayload `json:"weights,omitempty"`
	UseCandidateFilter bool            `json:"useCandidateFilter,omitempty"`
}

// WeightsPayload carries a custom weight profile.
type WeightsPayload struct {
	CustomerName float64 `json:"customerName"`
	ExternalID   float64 `json:"externalId"`
	Item         float64 `json:"item"`
	Price        float64 `json:"price"`
	Date         float64 `json:"date"`
}

// PreviewRequest carries transactions to triage against stored orders
// without persisting anything. Defaults to the name-only profile at
// threshold 0.6, the quick client-side triage configuration.
type PreviewRequest struct {
	Transactions []TransactionPayload `json:"transactions"`
	Profile      string               `json:"profile,omitempty"`
	Threshold    float64              `json:"threshold,omitempty"`
}

// TransactionPayload is one not-yet-persisted transaction in a preview
// request.
type TransactionPayload struct {
	Customer    string `json:"customer"`
	ExternalID  string `json:"orderId"`
	Date        string `json:"date"`
	Item        string `json:"item"`
	PriceCents  int64  `json:"priceCents"`
	Kind        string `json:"txnType"`
	AmountCents int64  `json:"txnAmountCents"`
}
