package orders

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"Order ID", "Order Time", "Delivery Date", "Employee ID", "Employee", "Department",
	"Item", "Category", "Quantity", "Unit Price", "Total", "Status", "Remarks",
}

// WriteCSV writes orders as a spreadsheet export with a header row.
func WriteCSV(w io.Writer, orders []Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, o := range orders {
		rec := []string{
			strconv.FormatInt(o.ID, 10),
			o.OrderTime.Local().Format(time.DateTime),
			o.ExpectedDeliveryDate.Format(time.DateOnly),
			csvText(o.EmployeeID),
			csvText(o.EmployeeName),
			csvText(o.Department),
			csvText(o.ItemName),
			string(o.Category),
			strconv.Itoa(o.Quantity),
			strconv.FormatFloat(o.PriceAtOrder, 'f', 2, 64),
			strconv.FormatFloat(o.TotalPrice, 'f', 2, 64),
			string(o.Status),
			csvText(o.Remarks),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing csv row %d: %w", o.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvText quotes free text that a spreadsheet would evaluate as a formula.
func csvText(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
