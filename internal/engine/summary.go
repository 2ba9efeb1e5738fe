package engine

import "github.com/cleared-dev/recon/internal/model"

// Summary counts the outcome of a run.
type Summary struct {
	Invoices    int
	Postings    int
	TaxRecords  int
	ByMatchType map[model.MatchType]int
	ByException map[model.ExceptionIssue]int
	ByIssueType map[model.ComplianceIssueType]int
	BySeverity  map[model.Severity]int
}

// Summarize tallies a result.
func Summarize(in Input, res *Result) Summary {
	s := Summary{
		Invoices:    len(in.Invoices),
		Postings:    len(in.Postings),
		TaxRecords:  len(in.Taxes),
		ByMatchType: make(map[model.MatchType]int),
		ByException: make(map[model.ExceptionIssue]int),
		ByIssueType: make(map[model.ComplianceIssueType]int),
		BySeverity:  make(map[model.Severity]int),
	}
	for _, r := range res.Reconciled {
		s.ByMatchType[r.Type]++
	}
	for _, e := range res.Exceptions {
		s.ByException[e.Issue]++
	}
	for _, is := range res.Issues {
		s.ByIssueType[is.IssueType]++
		s.BySeverity[is.Severity]++
	}
	return s
}
