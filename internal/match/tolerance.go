package match

import (
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

// aggregate is the sum of all postings that reference one invoice.
type aggregate struct {
	amount     decimal.Decimal
	postingIDs []string
}

// Tolerance sums postings per referenced invoice and accepts the invoice when
// the aggregate is within cfg.AmountTolerancePct of the invoice amount.
// Invoices with a zero or negative amount are never candidates.
func Tolerance(cfg Config, invoices []model.Invoice, postings []model.Posting) []model.MatchCandidate {
	aggs := make(map[string]*aggregate)
	for _, p := range postings {
		k := p.Key()
		if k == "" {
			continue
		}
		a, ok := aggs[k]
		if !ok {
			a = &aggregate{amount: decimal.Zero}
			aggs[k] = a
		}
		a.amount = a.amount.Add(p.Amount)
		a.postingIDs = append(a.postingIDs, p.ID)
	}

	var out []model.MatchCandidate
	for _, inv := range invoices {
		a, ok := aggs[inv.Key()]
		if !ok {
			continue
		}
		pct, ok := PctDiff(inv.Amount, a.amount)
		if !ok || pct.GreaterThan(cfg.AmountTolerancePct) {
			continue
		}
		out = append(out, model.MatchCandidate{
			InvoiceID:    inv.ID,
			PostingIDs:   append([]string(nil), a.postingIDs...),
			Type:         model.MatchAmountTolerance,
			Score:        model.MatchAmountTolerance.Score(),
			GLAmount:     a.amount,
			PostingCount: len(a.postingIDs),
			PctDiff:      pct,
			Seq:          len(out),
		})
	}
	return out
}
