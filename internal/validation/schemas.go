package validation

import "ledger/internal/core"

type CreateTransactionRequest struct {
	Type        *string  `json:"type" validate:"required,oneof=income expense"`
	Category    *int64   `json:"category" validate:"required"`
	Amount      *float64 `json:"amount" validate:"required"`
	Description *string  `json:"description" validate:"omitnil,min=1"`
}

// Input converts a validated request.
func (r CreateTransactionRequest) Input() core.TransactionInput {
	return core.TransactionInput{
		Type:        core.TransactionType(*r.Type),
		Category:    *r.Category,
		Amount:      *r.Amount,
		Description: r.Description,
	}
}

// UpdateTransactionRequest is decoded leniently: unknown keys are ignored and
// type is passed through unchecked.
type UpdateTransactionRequest struct {
	Type        *string  `json:"type"`
	Category    *int64   `json:"category"`
	Amount      *float64 `json:"amount"`
	Description *string  `json:"description"`
}

func (r UpdateTransactionRequest) Update() core.TransactionUpdate {
	upd := core.TransactionUpdate{
		Category:    r.Category,
		Amount:      r.Amount,
		Description: r.Description,
	}
	if r.Type != nil {
		t := core.TransactionType(*r.Type)
		upd.Type = &t
	}
	return upd
}

type ListTransactionsQuery struct {
	Offset *int64 `json:"offset" validate:"omitnil,min=0"`
	Limit  *int64 `json:"limit" validate:"omitnil,min=1"`
}

// Page applies the defaults for absent values.
func (q ListTransactionsQuery) Page() core.Page {
	p := core.DefaultPage()
	if q.Offset != nil {
		p.Offset = int(*q.Offset)
	}
	if q.Limit != nil {
		p.Limit = int(*q.Limit)
	}
	return p
}

type SummaryQuery struct {
	StartDate *string `json:"startDate" validate:"omitnil,min=1,isodate"`
	EndDate   *string `json:"endDate" validate:"omitnil,min=1,isodate"`
	Category  *string `json:"category" validate:"omitnil,min=1"`
}

func (q SummaryQuery) Filter() core.SummaryFilter {
	var f core.SummaryFilter
	if q.StartDate != nil {
		f.StartDate = *q.StartDate
	}
	if q.EndDate != nil {
		f.EndDate = *q.EndDate
	}
	if q.Category != nil {
		f.Category = *q.Category
	}
	return f
}
