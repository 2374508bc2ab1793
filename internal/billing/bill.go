package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/canteen/internal/transactions"
)

var (
	ErrUnresolvedRemarks = errors.New("bill has transactions with unresolved remarks")
	ErrInvalidPeriod     = errors.New("invalid billing period")
	ErrEmployeeNotFound  = errors.New("employee not found")
)

// Bill is one employee's monthly statement.
type Bill struct {
	EmployeeID     string                     `json:"employeeId"`
	EmployeeName   string                     `json:"employeeName"`
	Month          int                        `json:"month"`
	Year           int                        `json:"year"`
	TotalAmount    float64                    `json:"totalAmount"`
	Transactions   []transactions.Transaction `json:"transactions"`
	ActiveCount    int                        `json:"activeCount"`
	GeneratedCount int                        `json:"generatedCount"`
	PaidCount      int                        `json:"paidCount"`
	InactiveCount  int                        `json:"inactiveCount"`
	ModifiedCount  int                        `json:"modifiedCount"`
}

// Aggregate builds a bill from the employee's transactions of the period.
// The amount due covers ACTIVE and GENERATED transactions.
func Aggregate(employeeID, employeeName string, month, year int, txns []transactions.Transaction) Bill {
	if txns == nil {
		txns = []transactions.Transaction{}
	}
	counts := transactions.Count(txns)
	return Bill{
		EmployeeID:     employeeID,
		EmployeeName:   employeeName,
		Month:          month,
		Year:           year,
		TotalAmount:    transactions.Total(txns, transactions.StatusActive, transactions.StatusGenerated),
		Transactions:   txns,
		ActiveCount:    counts[transactions.StatusActive],
		GeneratedCount: counts[transactions.StatusGenerated],
		PaidCount:      counts[transactions.StatusPaid],
		InactiveCount:  counts[transactions.StatusInactive],
		ModifiedCount:  counts[transactions.StatusModified],
	}
}

// Period names the billing period, e.g. "March 2025".
func (b Bill) Period() string {
	switch {
	case b.Year == 0:
		return "All time"
	case b.Month == 0:
		return fmt.Sprint(b.Year)
	}
	return fmt.Sprintf("%s %d", time.Month(b.Month), b.Year)
}

// Key identifies the bill in audit entries, e.g. "E1/2025-03".
func (b Bill) Key() string {
	return fmt.Sprintf("%s/%04d-%02d", b.EmployeeID, b.Year, b.Month)
}

func checkPeriod(month, year int, exact bool) error {
	if month < 0 || month > 12 || year < 0 {
		return fmt.Errorf("%w: %d/%d", ErrInvalidPeriod, month, year)
	}
	if exact && (month == 0 || year == 0) {
		return fmt.Errorf("%w: month and year are required", ErrInvalidPeriod)
	}
	return nil
}
