package domain

import "github.com/shopspring/decimal"

// CartEntry is one line of the in-memory cart.
// Invariant: 1 <= Quantity <= Product.Stock.
type CartEntry struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
	Selected bool    `json:"selected"`
}

// Subtotal is Quantity * Product.Price.
func (e CartEntry) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(e.Product.Price).Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// PersistedCartEntry is the durable projection of a CartEntry. It deliberately
// carries no product snapshot so stale price, stock and name never survive a reload.
// The JSON shape is stable across versions.
type PersistedCartEntry struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Selected  bool  `json:"selected"`
}

// Project returns the durable projection of entries, preserving order.
func Project(entries []CartEntry) []PersistedCartEntry {
	out := make([]PersistedCartEntry, len(entries))
	for i, e := range entries {
		out[i] = PersistedCartEntry{
			ProductID: e.Product.ID,
			Quantity:  e.Quantity,
			Selected:  e.Selected,
		}
	}
	return out
}

// TotalItems is the sum of quantities.
func TotalItems(entries []CartEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

// TotalPrice is the sum of entry subtotals.
func TotalPrice(entries []CartEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

// SelectedEntries filters entries with Selected set.
func SelectedEntries(entries []CartEntry) []CartEntry {
	out := make([]CartEntry, 0, len(entries))
	for _, e := range entries {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// CartSummary holds the totals shown next to the cart. Display* fields use the
// selected subset when anything is selected and the whole cart otherwise.
type CartSummary struct {
	EntryCount         int             `json:"entry_count"`
	TotalItems         int             `json:"total_items"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	SelectedCount      int             `json:"selected_count"`
	SelectedTotalItems int             `json:"selected_total_items"`
	SelectedTotalPrice decimal.Decimal `json:"selected_total_price"`
	AllSelected        bool            `json:"all_selected"`
	DisplayTotalItems  int             `json:"display_total_items"`
	DisplayTotalPrice  decimal.Decimal `json:"display_total_price"`
}

func Summarize(entries []CartEntry) CartSummary {
	selected := SelectedEntries(entries)
	s := CartSummary{
		EntryCount:         len(entries),
		TotalItems:         TotalItems(entries),
		TotalPrice:         TotalPrice(entries).Round(2),
		SelectedCount:      len(selected),
		SelectedTotalItems: TotalItems(selected),
		SelectedTotalPrice: TotalPrice(selected).Round(2),
		AllSelected:        len(entries) > 0 && len(selected) == len(entries),
	}
	if s.SelectedCount > 0 {
		s.DisplayTotalItems = s.SelectedTotalItems
		s.DisplayTotalPrice = s.SelectedTotalPrice
	} else {
		s.DisplayTotalItems = s.TotalItems
		s.DisplayTotalPrice = s.TotalPrice
	}
	return s
}
