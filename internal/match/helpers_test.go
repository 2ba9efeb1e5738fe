package match

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/recon/internal/model"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoice(id, amount string, d time.Time) model.Invoice {
	return model.Invoice{ID: id, Date: d, Amount: dec(amount), ApprovalStatus: "Approved", Vendor: "Acme"}
}

func posting(id, ref, amount string, d time.Time) model.Posting {
	return model.NewPosting(id, d, ref, dec(amount), decimal.Zero)
}
