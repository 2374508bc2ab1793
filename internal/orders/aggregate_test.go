package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)

func sample() []Order {
	at := func(d int, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.Local) }
	return []Order{
		{ID: 1, EmployeeID: "E1", EmployeeName: "Asha Rao", Department: "IT", ItemName: "Tea", MenuID: "tea-1",
			Category: "beverages", Status: StatusDelivered, TotalPrice: 10, OrderTime: at(9, 8), ExpectedDeliveryDate: at(9, 0)},
		{ID: 2, EmployeeID: "E2", EmployeeName: "Ravi Kumar", Department: "HR", ItemName: "Samosa", MenuID: "samosa-1",
			Category: "snacks", Status: StatusPending, TotalPrice: 25, OrderTime: at(10, 9), ExpectedDeliveryDate: at(10, 0)},
		{ID: 3, EmployeeID: "E1", EmployeeName: "Asha Rao", Department: "IT", ItemName: "Veg Thali", MenuID: "veg-thali-1",
			Category: "thali", Status: StatusReady, TotalPrice: 80, OrderTime: at(10, 11), ExpectedDeliveryDate: at(10, 0)},
		{ID: 4, EmployeeID: "E3", EmployeeName: "Meera Iyer", Department: "IT", ItemName: "Coffee", MenuID: "coffee-1",
			Category: "beverages", Status: StatusCancelled, TotalPrice: 15, OrderTime: at(10, 12), ExpectedDeliveryDate: at(10, 0)},
		{ID: 5, EmployeeID: "E2", EmployeeName: "Ravi Kumar", Department: "HR", ItemName: "Tea", MenuID: "tea-1",
			Category: "beverages", Status: StatusPreparing, TotalPrice: 10, OrderTime: at(10, 13), ExpectedDeliveryDate: at(11, 0)},
	}
}

func ids(orders []Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	orders := sample()

	tests := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{"everything", Criteria{}, []int64{1, 2, 3, 4, 5}},
		{"active only", Criteria{ActiveOnly: true}, []int64{2, 3, 5}},
		{"history only", Criteria{HistoryOnly: true}, []int64{1, 4}},
		{"status any case", Criteria{Status: "ready"}, []int64{3}},
		{"department", Criteria{Department: "HR"}, []int64{2, 5}},
		{"category any case", Criteria{Category: "BEVERAGES"}, []int64{1, 4, 5}},
		{"search employee name", Criteria{Search: "ravi"}, []int64{2, 5}},
		{"search menu id", Criteria{Search: "THALI-1"}, []int64{3}},
		{"search order id", Criteria{Search: "4"}, []int64{4}},
		{"delivery date", Criteria{Date: time.Date(2025, 3, 11, 18, 0, 0, 0, time.Local)}, []int64{5}},
		{"combined", Criteria{ActiveOnly: true, Department: "IT", Search: "asha"}, []int64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(orders, tt.c)))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample(), today)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 4, s.Today)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Preparing)
	assert.Equal(t, 1, s.Ready)
	assert.Equal(t, 1, s.Delivered)
	assert.Equal(t, 1, s.Cancelled)
	assert.InDelta(t, 125.0, s.TotalAmount, 0.001)
	assert.Len(t, s.ByStatus, len(Statuses))

	empty := Summarize(nil, today)
	assert.Zero(t, empty.Total)
	assert.Equal(t, 0, empty.ByStatus[StatusPending])
}

func TestSort(t *testing.T) {
	orders := sample()

	Sort(orders, "priority", false)
	require.Equal(t, []int64{2, 5, 3, 1, 4}, ids(orders))

	Sort(orders, "totalPrice", true)
	assert.Equal(t, int64(3), orders[0].ID)
	assert.Equal(t, int64(4), orders[2].ID)

	Sort(orders, "orderTime", false)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(orders))

	Sort(orders, "unknown", true)
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ids(orders))
}
