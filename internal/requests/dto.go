package requests

import (
	"time"

	"github.com/glowline/glowline-backend/internal/fulfillment"
)

// CreateRequestPayload is the submission payload.
type CreateRequestPayload struct {
	BranchID int64                `json:"branch_id,omitempty" validate:"gte=0"`
	Notes    string               `json:"notes,omitempty"`
	Lines    []RequestLinePayload `json:"lines" validate:"required,min=1,dive"`
}

// RequestLinePayload is one requested item in a submission.
type RequestLinePayload struct {
	ItemID    int64   `json:"item_id" validate:"required,gt=0"`
	ItemName  string  `json:"item_name" validate:"required"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Reason    string  `json:"reason,omitempty"`
}

// ReviewPayload is the reviewer's verdict. Plan is only read when the
// decision is APPROVE.
type ReviewPayload struct {
	Decision        string             `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Notes           string             `json:"notes,omitempty"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	Plan            []PlanEntryPayload `json:"plan,omitempty" validate:"dive"`
}

// PlanEntryPayload covers one item in a fulfillment plan.
type PlanEntryPayload struct {
	ItemID           int64                 `json:"item_id" validate:"required,gt=0"`
	ItemName         string                `json:"item_name" validate:"required"`
	Transfers        []PlanTransferPayload `json:"transfers,omitempty" validate:"dive"`
	PurchaseQuantity int64                 `json:"purchase_quantity,omitempty" validate:"gte=0"`
	PurchasePrice    float64               `json:"purchase_price,omitempty" validate:"gte=0"`
	Supplier         string                `json:"supplier,omitempty"`
}

// PlanTransferPayload is one inter-branch transfer in a plan.
type PlanTransferPayload struct {
	FromBranchID int64   `json:"from_branch_id" validate:"required,gt=0"`
	Quantity     int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice    float64 `json:"unit_price,omitempty" validate:"gte=0"`
}

// Plan converts the payload into the executor's plan type.
func (p ReviewPayload) AsPlan() fulfillment.Plan {
	plan := make(fulfillment.Plan, 0, len(p.Plan))
	for _, entry := range p.Plan {
		pe := fulfillment.PlanEntry{
			ItemID:           entry.ItemID,
			ItemName:         entry.ItemName,
			PurchaseQuantity: entry.PurchaseQuantity,
			PurchasePrice:    entry.PurchasePrice,
			Supplier:         entry.Supplier,
		}
		for _, tr := range entry.Transfers {
			pe.Transfers = append(pe.Transfers, fulfillment.PlanTransfer{
				FromBranchID: tr.FromBranchID,
				Quantity:     tr.Quantity,
				UnitPrice:    tr.UnitPrice,
			})
		}
		plan = append(plan, pe)
	}
	return plan
}

// NewPlanView maps a plan into payload shape, used by the availability
// endpoint so a reviewer can edit and submit it back as-is.
func NewPlanView(plan fulfillment.Plan) []PlanEntryPayload {
	out := make([]PlanEntryPayload, 0, len(plan))
	for _, entry := range plan {
		pe := PlanEntryPayload{
			ItemID:           entry.ItemID,
			ItemName:         entry.ItemName,
			PurchaseQuantity: entry.PurchaseQuantity,
			PurchasePrice:    entry.PurchasePrice,
			Supplier:         entry.Supplier,
		}
		for _, tr := range entry.Transfers {
			pe.Transfers = append(pe.Transfers, PlanTransferPayload{
				FromBranchID: tr.FromBranchID,
				Quantity:     tr.Quantity,
				UnitPrice:    tr.UnitPrice,
			})
		}
		out = append(out, pe)
	}
	return out
}

// RequestView is the JSON shape of an item request.
type RequestView struct {
	ID              string     `json:"id"`
	Number          string     `json:"number"`
	BranchID        int64      `json:"branch_id"`
	Status          Status     `json:"status"`
	TotalAmount     float64    `json:"total_amount"`
	RequestedBy     int64      `json:"requested_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	ReviewedBy      int64      `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	Lines           []LineView `json:"lines,omitempty"`
}

// LineView is the JSON shape of a request line.
type LineView struct {
	ItemID     int64   `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Reason     string  `json:"reason,omitempty"`
}

// NewRequestView maps a Request to its JSON shape.
func NewRequestView(req Request) RequestView {
	view := RequestView{
		ID:              req.ID.String(),
		Number:          req.Number,
		BranchID:        req.BranchID,
		Status:          req.Status,
		TotalAmount:     req.TotalAmount,
		RequestedBy:     req.RequestedBy,
		RequestedAt:     req.RequestedAt,
		ReviewedBy:      req.ReviewedBy,
		Notes:           req.Notes,
		RejectionReason: req.RejectionReason,
	}
	if req.ReviewedAt.Unix() > 0 {
		at := req.ReviewedAt
		view.ReviewedAt = &at
	}
	for _, li := range req.Lines {
		view.Lines = append(view.Lines, LineView{
			ItemID:     li.ItemID,
			ItemName:   li.ItemName,
			Quantity:   li.Quantity,
			UnitPrice:  li.UnitPrice,
			TotalPrice: li.TotalPrice,
			Reason:     li.Reason,
		})
	}
	return view
}
