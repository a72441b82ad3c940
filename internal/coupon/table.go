package coupon

import "sort"

// mapTable implements Table using a map for O(1) lookups.
type mapTable struct {
	rates map[string]int
}

// newMapTable creates a new map-based coupon table.
func newMapTable(capacity int) *mapTable {
	return &mapTable{
		rates: make(map[string]int, capacity),
	}
}

// DefaultTable returns the built-in storefront coupons.
func DefaultTable() Table {
	t := newMapTable(3)
	t.Add("FRESH10", 10)
	t.Add("SAVE20", 20)
	t.Add("WELCOME15", 15)
	return t
}

// Rate returns the percentage for code and whether the code exists.
func (t *mapTable) Rate(code string) (int, bool) {
	rate, ok := t.rates[Normalise(code)]
	return rate, ok
}

// Size returns the number of coupons in the table.
func (t *mapTable) Size() int {
	return len(t.rates)
}

// Codes returns the normalised codes in sorted order.
func (t *mapTable) Codes() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Add adds or replaces a coupon.
func (t *mapTable) Add(code string, rate int) {
	t.rates[Normalise(code)] = rate
}

// merge copies every coupon of other into t, replacing existing rates.
func (t *mapTable) merge(other Table) {
	for _, code := range other.Codes() {
		rate, _ := other.Rate(code)
		t.rates[code] = rate
	}
}
