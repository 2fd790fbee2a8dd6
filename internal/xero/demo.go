package xero

import (
	"time"

	"github.com/shopspring/decimal"
)

// demoBankTransactions returns a fixed two-month dataset resembling a small
// consultancy's bank feed. IDs are stable, so repeated demo syncs are
// idempotent; dates are relative to now, so forecasts stay meaningful.
func demoBankTransactions(now time.Time) []BankTransaction {
	day := func(daysAgo int) time.Time {
		return now.AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
	}
	amount := func(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

	return []BankTransaction{
		{ID: "demo-001", Date: day(60), Type: "RECEIVE", Total: amount(100000), Reference: "Initial Capital Investment", AccountName: "Capital Account"},
		{ID: "demo-002", Date: day(45), Type: "SPEND", Total: amount(15000), Reference: "Office Equipment Purchase", AccountName: "Fixed Assets"},
		{ID: "demo-003", Date: day(40), Type: "SPEND", Total: amount(3600), Reference: "Software Subscription - Annual", AccountName: "Operating Expenses"},
		{ID: "demo-004", Date: day(35), Type: "RECEIVE", Total: amount(25000), Reference: "Client Payment - Project Alpha", ContactName: "Alpha Ltd", AccountName: "Accounts Receivable"},
		{ID: "demo-005", Date: day(30), Type: "SPEND", Total: amount(5000), Reference: "Marketing Campaign", AccountName: "Marketing Expenses"},
		{ID: "demo-006", Date: day(25), Type: "RECEIVE", Total: amount(18000), Reference: "Client Payment - Project Beta", ContactName: "Beta Corp", AccountName: "Accounts Receivable"},
		{ID: "demo-007", Date: day(20), Type: "SPEND", Total: amount(12000), Reference: "Employee Salaries", AccountName: "Payroll Expenses"},
		{ID: "demo-008", Date: day(15), Type: "RECEIVE", Total: amount(8500), Reference: "Consulting Revenue", AccountName: "Revenue"},
		{ID: "demo-009", Date: day(10), Type: "SPEND", Total: amount(800), Reference: "Office Utilities", AccountName: "Operating Expenses"},
		{ID: "demo-010", Date: day(5), Type: "RECEIVE", Total: amount(22000), Reference: "Client Payment - Project Gamma", ContactName: "Gamma GmbH", AccountName: "Accounts Receivable"},
	}
}
