package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStat aggregates revenue and quantity for one product.
type ProductStat struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// RegionStat aggregates revenue and record count for one region.
// Share is the region's percentage of total revenue.
type RegionStat struct {
	Region  string          `json:"region"`
	Revenue decimal.Decimal `json:"revenue"`
	Count   int             `json:"count"`
	Share   float64         `json:"share_percent"`
}

// DayStat aggregates one calendar day of the daily trend.
type DayStat struct {
	Date            time.Time       `json:"date"`
	Revenue         decimal.Decimal `json:"revenue"`
	Count           int             `json:"count"`
	UniqueCustomers int             `json:"unique_customers"`
}

// CustomerStat aggregates spend and order count for one customer.
type CustomerStat struct {
	CustomerID string          `json:"customer_id"`
	Revenue    decimal.Decimal `json:"revenue"`
	Orders     int             `json:"orders"`
}

// MetricsSnapshot holds the aggregate results computed over the accepted
// record set. Immutable once computed; enrichment status has no effect on it.
type MetricsSnapshot struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalTransactions int             `json:"total_transactions"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	DateFrom          time.Time       `json:"date_from,omitempty"`
	DateTo            time.Time       `json:"date_to,omitempty"`

	// TopProducts is ranked by revenue descending, ties broken by product
	// id ascending. It always carries every product; callers slice top-N.
	TopProducts []ProductStat `json:"top_products"`
	// Regions is sorted by revenue descending, ties by region name.
	Regions []RegionStat `json:"regions"`
	// Daily is sorted by date ascending.
	Daily []DayStat `json:"daily"`
	// TopCustomers is ranked like TopProducts, keyed by customer id.
	TopCustomers []CustomerStat `json:"top_customers"`
}

// TopNProducts returns the first n entries of the product ranking, or all of
// them when n <= 0 or exceeds the ranking size.
func (m MetricsSnapshot) TopNProducts(n int) []ProductStat {
	if n <= 0 || n > len(m.TopProducts) {
		return m.TopProducts
	}
	return m.TopProducts[:n]
}

// TopNCustomers returns the first n entries of the customer ranking, or all
// of them when n <= 0 or exceeds the ranking size.
func (m MetricsSnapshot) TopNCustomers(n int) []CustomerStat {
	if n <= 0 || n > len(m.TopCustomers) {
		return m.TopCustomers
	}
	return m.TopCustomers[:n]
}
