// Package salesanalyzer aggregates sales transactions loaded from CSV. It is
// a standalone reporting utility and shares no state with the concurrency
// packages in this module.
package salesanalyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// Record is a single sales transaction.
type Record struct {
	OrderID         string
	Date            time.Time
	CustomerID      string
	CustomerName    string
	ProductCategory string
	ProductName     string
	Quantity        int
	UnitPrice       float64
	TotalPrice      float64
	Region          string
	PaymentMethod   string
}

func (r Record) String() string {
	return fmt.Sprintf("Order %s: %s - $%.2f", r.OrderID, r.ProductName, r.TotalPrice)
}

// Analyzer runs aggregate queries over a loaded set of sales records.
type Analyzer struct {
	records []Record
	skipped int
}

const dateLayout = "2006-01-02"

var columns = []string{
	"order_id", "date", "customer_id", "customer_name", "product_category",
	"product_name", "quantity", "unit_price", "total_price", "region",
	"payment_method",
}

// Load reads header-mapped CSV sales data. Malformed rows are skipped and
// counted rather than aborting the load.
func Load(r io.Reader) (*Analyzer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &Analyzer{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("salesanalyzer: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("salesanalyzer: missing column %q", name)
		}
	}

	a := &Analyzer{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("salesanalyzer: read row: %w", err)
		}

		record, err := parseRow(row, index)
		if err != nil {
			slog.Warn("skipping malformed sales row", "line", line, "error", err)
			a.skipped++
			continue
		}
		a.records = append(a.records, record)
	}
	return a, nil
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (*Analyzer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("salesanalyzer: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parseRow(row []string, index map[string]int) (Record, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(row) {
			return "", fmt.Errorf("row too short for column %q", name)
		}
		return row[i], nil
	}

	var record Record
	var err error
	for name, dst := range map[string]*string{
		"order_id":         &record.OrderID,
		"customer_id":      &record.CustomerID,
		"customer_name":    &record.CustomerName,
		"product_category": &record.ProductCategory,
		"product_name":     &record.ProductName,
		"region":           &record.Region,
		"payment_method":   &record.PaymentMethod,
	} {
		if *dst, err = field(name); err != nil {
			return Record{}, err
		}
	}

	raw, err := field("date")
	if err != nil {
		return Record{}, err
	}
	if record.Date, err = time.Parse(dateLayout, raw); err != nil {
		return Record{}, fmt.Errorf("parse date: %w", err)
	}

	if raw, err = field("quantity"); err != nil {
		return Record{}, err
	}
	if record.Quantity, err = strconv.Atoi(raw); err != nil {
		return Record{}, fmt.Errorf("parse quantity: %w", err)
	}

	if raw, err = field("unit_price"); err != nil {
		return Record{}, err
	}
	if record.UnitPrice, err = strconv.ParseFloat(raw, 64); err != nil {
		return Record{}, fmt.Errorf("parse unit_price: %w", err)
	}

	if raw, err = field("total_price"); err != nil {
		return Record{}, err
	}
	if record.TotalPrice, err = strconv.ParseFloat(raw, 64); err != nil {
		return Record{}, fmt.Errorf("parse total_price: %w", err)
	}

	return record, nil
}

// Records returns the loaded records.
func (a *Analyzer) Records() []Record { return a.records }

// Skipped returns how many malformed rows were dropped during load.
func (a *Analyzer) Skipped() int { return a.skipped }

// Len returns the number of loaded records.
func (a *Analyzer) Len() int { return len(a.records) }

// number constrains the aggregate value types used by the grouping helpers.
type number interface {
	~int | ~float64
}

// groupSum sums value(record) grouped by key(record).
func groupSum[N number](records []Record, key func(Record) string, value func(Record) N) map[string]N {
	result := make(map[string]N)
	for _, record := range records {
		result[key(record)] += value(record)
	}
	return result
}

// Ranked is one entry of a top-N result.
type Ranked[N number] struct {
	Name  string
	Value N
}

// topN ranks grouped sums in descending order and keeps the first n.
func topN[N number](records []Record, key func(Record) string, value func(Record) N, n int) []Ranked[N] {
	sums := groupSum(records, key, value)
	ranked := make([]Ranked[N], 0, len(sums))
	for name, total := range sums {
		ranked = append(ranked, Ranked[N]{Name: name, Value: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Name < ranked[j].Name
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// TotalRevenue sums total_price over all records.
func (a *Analyzer) TotalRevenue() float64 {
	var total float64
	for _, record := range a.records {
		total += record.TotalPrice
	}
	return total
}

// AverageOrderValue is total revenue divided by order count, 0 when empty.
func (a *Analyzer) AverageOrderValue() float64 {
	if len(a.records) == 0 {
		return 0
	}
	return a.TotalRevenue() / float64(len(a.records))
}

// RevenueByCategory sums revenue per product category.
func (a *Analyzer) RevenueByCategory() map[string]float64 {
	return groupSum(a.records, func(r Record) string { return r.ProductCategory }, func(r Record) float64 { return r.TotalPrice })
}

// RevenueByRegion sums revenue per region.
func (a *Analyzer) RevenueByRegion() map[string]float64 {
	return groupSum(a.records, func(r Record) string { return r.Region }, func(r Record) float64 { return r.TotalPrice })
}

// QuantityByCategory sums units sold per product category.
func (a *Analyzer) QuantityByCategory() map[string]int {
	return groupSum(a.records, func(r Record) string { return r.ProductCategory }, func(r Record) int { return r.Quantity })
}

// RevenueByRegionAndCategory sums revenue per region per category.
func (a *Analyzer) RevenueByRegionAndCategory() map[string]map[string]float64 {
	result := make(map[string]map[string]float64)
	for _, record := range a.records {
		byCategory, ok := result[record.Region]
		if !ok {
			byCategory = make(map[string]float64)
			result[record.Region] = byCategory
		}
		byCategory[record.ProductCategory] += record.TotalPrice
	}
	return result
}

// OrdersByPaymentMethod counts orders per payment method.
func (a *Analyzer) OrdersByPaymentMethod() map[string]int {
	return groupSum(a.records, func(r Record) string { return r.PaymentMethod }, func(Record) int { return 1 })
}

// TopCustomers ranks customers by total spending.
func (a *Analyzer) TopCustomers(n int) []Ranked[float64] {
	return topN(a.records, func(r Record) string { return r.CustomerName }, func(r Record) float64 { return r.TotalPrice }, n)
}

// TopProductsByQuantity ranks products by units sold.
func (a *Analyzer) TopProductsByQuantity(n int) []Ranked[int] {
	return topN(a.records, func(r Record) string { return r.ProductName }, func(r Record) int { return r.Quantity }, n)
}

// TopProductsByRevenue ranks products by revenue.
func (a *Analyzer) TopProductsByRevenue(n int) []Ranked[float64] {
	return topN(a.records, func(r Record) string { return r.ProductName }, func(r Record) float64 { return r.TotalPrice }, n)
}

// MonthlyRevenue sums revenue per "YYYY-MM" month key.
func (a *Analyzer) MonthlyRevenue() map[string]float64 {
	return groupSum(a.records, func(r Record) string { return r.Date.Format("2006-01") }, func(r Record) float64 { return r.TotalPrice })
}

// AverageOrderValueByCategory averages order value per product category.
func (a *Analyzer) AverageOrderValueByCategory() map[string]float64 {
	totals := a.RevenueByCategory()
	counts := groupSum(a.records, func(r Record) string { return r.ProductCategory }, func(Record) int { return 1 })

	result := make(map[string]float64, len(totals))
	for category, total := range totals {
		result[category] = total / float64(counts[category])
	}
	return result
}

// OrdersAbove returns records with total_price strictly above threshold,
// sorted by total_price descending.
func (a *Analyzer) OrdersAbove(threshold float64) []Record {
	var orders []Record
	for _, record := range a.records {
		if record.TotalPrice > threshold {
			orders = append(orders, record)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].TotalPrice > orders[j].TotalPrice })
	return orders
}

// PurchaseFrequency counts orders per customer name.
func (a *Analyzer) PurchaseFrequency() map[string]int {
	return groupSum(a.records, func(r Record) string { return r.CustomerName }, func(Record) int { return 1 })
}

// DistinctCustomers counts unique customer IDs.
func (a *Analyzer) DistinctCustomers() int {
	seen := make(map[string]struct{})
	for _, record := range a.records {
		seen[record.CustomerID] = struct{}{}
	}
	return len(seen)
}

// RevenueStats is a summary of the order-value distribution.
type RevenueStats struct {
	Count   int
	Sum     float64
	Min     float64
	Max     float64
	Average float64
	StdDev  float64
}

// Stats computes the revenue summary. StdDev is the sample standard
// deviation, 0 for fewer than two records.
func (a *Analyzer) Stats() RevenueStats {
	if len(a.records) == 0 {
		return RevenueStats{}
	}

	stats := RevenueStats{
		Count: len(a.records),
		Min:   a.records[0].TotalPrice,
		Max:   a.records[0].TotalPrice,
	}
	for _, record := range a.records {
		v := record.TotalPrice
		stats.Sum += v
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Average = stats.Sum / float64(stats.Count)

	if stats.Count > 1 {
		var sq float64
		for _, record := range a.records {
			d := record.TotalPrice - stats.Average
			sq += d * d
		}
		stats.StdDev = math.Sqrt(sq / float64(stats.Count-1))
	}
	return stats
}

// Discount pairs an order with its price before and after a discount.
type Discount struct {
	OrderID    string
	Original   float64
	Discounted float64
}

// ApplyDiscount evaluates discount(record) for every record and returns the
// original and discounted totals.
func (a *Analyzer) ApplyDiscount(discount func(Record) float64) []Discount {
	result := make([]Discount, 0, len(a.records))
	for _, record := range a.records {
		result = append(result, Discount{
			OrderID:    record.OrderID,
			Original:   record.TotalPrice,
			Discounted: record.TotalPrice - discount(record),
		})
	}
	return result
}

// FilterTransform applies transform to every record matching filter.
func FilterTransform[R any](records []Record, filter func(Record) bool, transform func(Record) R) []R {
	var result []R
	for _, record := range records {
		if filter(record) {
			result = append(result, transform(record))
		}
	}
	return result
}
