package match

import "github.com/cleared-dev/recon/internal/model"

// Exact pairs every invoice with every posting whose reference equals the
// invoice ID after normalization. Each pair is its own candidate.
func Exact(invoices []model.Invoice, postings []model.Posting) []model.MatchCandidate {
	byRef := make(map[string][]model.Posting)
	for _, p := range postings {
		if k := p.Key(); k != "" {
			byRef[k] = append(byRef[k], p)
		}
	}

	var out []model.MatchCandidate
	for _, inv := range invoices {
		k := inv.Key()
		if k == "" {
			continue
		}
		for _, p := range byRef[k] {
			out = append(out, model.MatchCandidate{
				InvoiceID:    inv.ID,
				PostingIDs:   []string{p.ID},
				Type:         model.MatchExact,
				Score:        model.MatchExact.Score(),
				GLAmount:     p.Amount,
				PostingCount: 1,
				Seq:          len(out),
			})
		}
	}
	return out
}
