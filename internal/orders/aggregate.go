package orders

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Criteria filters an in-memory order list the way the admin board does.
// Zero fields match everything.
type Criteria struct {
	Search      string
	Status      Status
	Department  string
	Category    string
	ActiveOnly  bool
	HistoryOnly bool
	Date        time.Time
}

// Filter returns the orders matching c, in input order. Search matches
// employee id and name, item name and menu id, and the order id.
func Filter(orders []Order, c Criteria) []Order {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if c.ActiveOnly && !o.Status.Active() {
			continue
		}
		if c.HistoryOnly && !o.Status.Terminal() {
			continue
		}
		if c.Status != "" && !strings.EqualFold(string(c.Status), string(o.Status)) {
			continue
		}
		if c.Department != "" && o.Department != c.Department {
			continue
		}
		if c.Category != "" && !strings.EqualFold(c.Category, string(o.Category)) {
			continue
		}
		if !c.Date.IsZero() && !sameDay(o.ExpectedDeliveryDate, c.Date) {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matches(o Order, search string) bool {
	for _, field := range []string{o.EmployeeID, o.EmployeeName, o.ItemName, o.MenuID, strconv.FormatInt(o.ID, 10)} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Summary is the headline block of the order board.
type Summary struct {
	Total       int            `json:"total"`
	ByStatus    map[Status]int `json:"byStatus"`
	TotalAmount float64        `json:"totalAmount"`
	Today       int            `json:"today"`
	Pending     int            `json:"pending"`
	Preparing   int            `json:"preparing"`
	Ready       int            `json:"ready"`
	Delivered   int            `json:"delivered"`
	Cancelled   int            `json:"cancelled"`
}

// Summarize counts orders per status. TotalAmount excludes cancelled
// orders; Today counts orders placed on today's local date.
func Summarize(orders []Order, today time.Time) Summary {
	s := Summary{Total: len(orders), ByStatus: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.ByStatus[st] = 0
	}
	for _, o := range orders {
		s.ByStatus[o.Status]++
		if o.Status != StatusCancelled {
			s.TotalAmount += o.TotalPrice
		}
		if sameDay(o.OrderTime.In(today.Location()), today) {
			s.Today++
		}
	}
	s.Pending = s.ByStatus[StatusPending]
	s.Preparing = s.ByStatus[StatusPreparing]
	s.Ready = s.ByStatus[StatusReady]
	s.Delivered = s.ByStatus[StatusDelivered]
	s.Cancelled = s.ByStatus[StatusCancelled]
	return s
}

// Sort orders the list in place by key: priority, orderTime,
// expectedDeliveryDate, totalPrice, quantity, employeeName, itemName or id.
// Unknown keys sort by id. The sort is stable.
func Sort(orders []Order, key string, desc bool) {
	compare := func(a, b Order) int {
		switch key {
		case "priority":
			return cmp.Compare(a.Status.Priority(), b.Status.Priority())
		case "orderTime":
			return a.OrderTime.Compare(b.OrderTime)
		case "expectedDeliveryDate":
			return a.ExpectedDeliveryDate.Compare(b.ExpectedDeliveryDate)
		case "totalPrice":
			return cmp.Compare(a.TotalPrice, b.TotalPrice)
		case "quantity":
			return cmp.Compare(a.Quantity, b.Quantity)
		case "employeeName":
			return strings.Compare(a.EmployeeName, b.EmployeeName)
		case "itemName":
			return strings.Compare(a.ItemName, b.ItemName)
		}
		return cmp.Compare(a.ID, b.ID)
	}
	slices.SortStableFunc(orders, func(a, b Order) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}
