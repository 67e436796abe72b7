package fulfillment

import (
	"time"

	"github.com/google/uuid"
)

// PlanTransfer moves stock from one branch to the requesting branch.
type PlanTransfer struct {
	FromBranchID int64
	Quantity     int64
	UnitPrice    float64
}

// PlanEntry covers one requested item: any number of inter-branch
// transfers plus an optional purchase order quantity for the remainder.
type PlanEntry struct {
	ItemID           int64
	ItemName         string
	Transfers        []PlanTransfer
	PurchaseQuantity int64
	PurchasePrice    float64
	Supplier         string
}

// Plan is the reviewer-approved fulfillment plan for a request.
type Plan []PlanEntry

// LineKind distinguishes the two fulfillment mechanisms.
type LineKind string

const (
	KindTransfer LineKind = "TRANSFER"
	KindPurchase LineKind = "PURCHASE_ORDER"
)

// ResultLine reports the outcome of one plan line.
type ResultLine struct {
	ItemID       int64    `json:"item_id"`
	ItemName     string   `json:"item_name"`
	Kind         LineKind `json:"kind"`
	FromBranchID int64    `json:"from_branch_id,omitempty"`
	Quantity     int64    `json:"quantity"`
	Reference    string   `json:"reference,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// Report summarises a fulfillment run. A request's approval stands even
// when every line fails; the report tells the reviewer what still needs
// manual follow-up.
type Report struct {
	Applied []ResultLine `json:"applied"`
	Failed  []ResultLine `json:"failed"`
}

// AllFailed reports whether nothing in the plan could be applied.
func (r Report) AllFailed() bool {
	return len(r.Applied) == 0 && len(r.Failed) > 0
}

// ReportAllFailed marks every plan line as failed with one shared reason.
// Used when the fulfillment transaction rolled back as a whole.
func ReportAllFailed(plan Plan, reason string) Report {
	var report Report
	for _, entry := range plan {
		for _, tr := range entry.Transfers {
			report.Failed = append(report.Failed, ResultLine{
				ItemID:       entry.ItemID,
				ItemName:     entry.ItemName,
				Kind:         KindTransfer,
				FromBranchID: tr.FromBranchID,
				Quantity:     tr.Quantity,
				Reason:       reason,
			})
		}
		if entry.PurchaseQuantity > 0 {
			report.Failed = append(report.Failed, ResultLine{
				ItemID:   entry.ItemID,
				ItemName: entry.ItemName,
				Kind:     KindPurchase,
				Quantity: entry.PurchaseQuantity,
				Reason:   reason,
			})
		}
	}
	return report
}

// RequestRef identifies the approved request a fulfillment run belongs to.
// RequestedBy and RequestedAt carry over onto any purchase order the run
// creates, so the order records who asked for the goods and when.
type RequestRef struct {
	ID          uuid.UUID
	Number      string
	BranchID    int64
	RequestedBy int64
	RequestedAt time.Time
	ActorID     int64
}
