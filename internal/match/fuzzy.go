package match

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

// bucketIndex maps round(amount) to the indexes of postings in that bucket.
type bucketIndex struct {
	buckets map[int64][]int
	keys    []int64 // sorted bucket keys
}

func bucketKey(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func newBucketIndex(postings []model.Posting) *bucketIndex {
	idx := &bucketIndex{buckets: make(map[int64][]int)}
	for i, p := range postings {
		k := bucketKey(p.Amount)
		if _, ok := idx.buckets[k]; !ok {
			idx.keys = append(idx.keys, k)
		}
		idx.buckets[k] = append(idx.buckets[k], i)
	}
	sort.Slice(idx.keys, func(i, j int) bool { return idx.keys[i] < idx.keys[j] })
	return idx
}

// within returns posting indexes from every bucket whose key lies in
// [bucketKey(lo), bucketKey(hi)], in posting input order.
func (idx *bucketIndex) within(lo, hi decimal.Decimal) []int {
	klo, khi := bucketKey(lo), bucketKey(hi)
	start := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= klo })

	var hits []int
	for i := start; i < len(idx.keys) && idx.keys[i] <= khi; i++ {
		hits = append(hits, idx.buckets[idx.keys[i]]...)
	}
	sort.Ints(hits)
	return hits
}

// Fuzzy pairs invoices with postings of a similar amount dated close to the
// invoice. Postings are looked up through a rounded-amount bucket index, so
// the cost grows with the number of hits rather than invoices x postings.
// A pair is accepted when the dates are at most cfg.FuzzyDateWindowDays apart
// and the amounts differ by at most cfg.FuzzyPctTolerance percent.
func Fuzzy(cfg Config, invoices []model.Invoice, postings []model.Posting) []model.MatchCandidate {
	idx := newBucketIndex(postings)

	var out []model.MatchCandidate
	for _, inv := range invoices {
		if !inv.Matchable() {
			continue
		}
		band := inv.Amount.Mul(cfg.FuzzyPctTolerance).Div(hundred)
		for _, i := range idx.within(inv.Amount.Sub(band), inv.Amount.Add(band)) {
			p := postings[i]
			days := DaysBetween(inv.Date, p.LedgerDate)
			if days > cfg.FuzzyDateWindowDays {
				continue
			}
			pct, _ := PctDiff(inv.Amount, p.Amount)
			if pct.GreaterThan(cfg.FuzzyPctTolerance) {
				continue
			}
			out = append(out, model.MatchCandidate{
				InvoiceID:    inv.ID,
				PostingIDs:   []string{p.ID},
				Type:         model.MatchFuzzy,
				Score:        model.MatchFuzzy.Score(),
				GLAmount:     p.Amount,
				PostingCount: 1,
				PctDiff:      pct,
				DateDiffDays: days,
				Seq:          len(out),
			})
		}
	}
	return out
}
