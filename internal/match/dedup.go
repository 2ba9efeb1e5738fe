package match

import (
	"fmt"
	"sort"

	"github.com/cleared-dev/recon/internal/model"
)

// outranks reports whether a beats b for the same invoice: higher score first,
// then the earlier stage, then the earlier candidate within that stage.
func outranks(a, b model.MatchCandidate) bool {
	if c := a.Score.Cmp(b.Score); c != 0 {
		return c > 0
	}
	if pa, pb := a.Type.Priority(), b.Type.Priority(); pa != pb {
		return pa < pb
	}
	return a.Seq < b.Seq
}

// Dedup merges the candidate sets of all stages and keeps the best candidate
// per invoice ID. The result does not depend on the order of the stage
// arguments. Reconciled records are sorted by invoice ID; exceptions follow
// invoice input order, one per distinct ID.
func Dedup(invoices []model.Invoice, stages ...[]model.MatchCandidate) ([]model.ReconciledRecord, []model.Exception) {
	best := make(map[string]model.MatchCandidate)
	for _, stage := range stages {
		for _, c := range stage {
			cur, ok := best[c.InvoiceID]
			if !ok || outranks(c, cur) {
				best[c.InvoiceID] = c
			}
		}
	}

	byID := make(map[string]model.Invoice, len(invoices))
	for _, inv := range invoices {
		if _, ok := byID[inv.ID]; !ok {
			byID[inv.ID] = inv
		}
	}

	reconciled := make([]model.ReconciledRecord, 0, len(best))
	for id, c := range best {
		inv, ok := byID[id]
		if !ok {
			continue
		}
		reconciled = append(reconciled, model.ReconciledRecord{
			MatchCandidate: c,
			InvoiceDate:    inv.Date,
			InvoiceAmount:  inv.Amount,
			Vendor:         inv.Vendor,
			ApprovalStatus: inv.ApprovalStatus,
		})
	}
	sort.Slice(reconciled, func(i, j int) bool {
		return reconciled[i].InvoiceID < reconciled[j].InvoiceID
	})

	var exceptions []model.Exception
	seen := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		if seen[inv.ID] {
			continue
		}
		seen[inv.ID] = true
		if _, ok := best[inv.ID]; ok {
			continue
		}
		issue := model.IssueUnmatchedInvoice
		if !inv.Matchable() {
			issue = model.IssueNonPositiveAmount
		}
		exceptions = append(exceptions, model.Exception{
			InvoiceID:      inv.ID,
			Issue:          issue,
			InvoiceDate:    inv.Date,
			InvoiceAmount:  inv.Amount,
			Vendor:         inv.Vendor,
			ApprovalStatus: inv.ApprovalStatus,
		})
	}
	return reconciled, exceptions
}

// CheckCompleteness verifies that every distinct invoice ID appears exactly
// once across reconciled records and exceptions, and nowhere else.
func CheckCompleteness(invoices []model.Invoice, reconciled []model.ReconciledRecord, exceptions []model.Exception) error {
	ids := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		ids[inv.ID] = true
	}

	placed := make(map[string]string, len(ids))
	place := func(id, where string) error {
		if !ids[id] {
			return fmt.Errorf("%s %q has no source invoice", where, id)
		}
		if prev, ok := placed[id]; ok {
			return fmt.Errorf("invoice %q appears in both %s and %s", id, prev, where)
		}
		placed[id] = where
		return nil
	}
	for _, r := range reconciled {
		if err := place(r.InvoiceID, "reconciled"); err != nil {
			return err
		}
	}
	for _, e := range exceptions {
		if err := place(e.InvoiceID, "exceptions"); err != nil {
			return err
		}
	}

	if len(placed) != len(ids) {
		return fmt.Errorf("%d reconciled + %d exceptions != %d distinct invoices",
			len(reconciled), len(exceptions), len(ids))
	}
	return nil
}
