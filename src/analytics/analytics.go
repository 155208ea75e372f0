// src/analytics/analytics.go
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/salesclaro/src/models"
	"github.com/username/salesclaro/src/utils"
)

// Analyze computes the aggregate metrics over a set of validated records.
// Pure function of its input: no external calls, deterministic output
// ordering, and an empty input yields zero revenue with empty groupings.
func Analyze(records []models.SaleRecord) models.MetricsSnapshot {
	snapshot := models.MetricsSnapshot{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TotalTransactions: len(records),
		TopProducts:       []models.ProductStat{},
		Regions:           []models.RegionStat{},
		Daily:             []models.DayStat{},
		TopCustomers:      []models.CustomerStat{},
	}
	if len(records) == 0 {
		return snapshot
	}

	products := make(map[string]*models.ProductStat)
	regions := make(map[string]*models.RegionStat)
	days := make(map[time.Time]*models.DayStat)
	dayCustomers := make(map[time.Time]map[string]struct{})
	customers := make(map[string]*models.CustomerStat)

	for i := range records {
		r := &records[i]
		snapshot.TotalRevenue = snapshot.TotalRevenue.Add(r.LineTotal)

		if snapshot.DateFrom.IsZero() || r.Date.Before(snapshot.DateFrom) {
			snapshot.DateFrom = r.Date
		}
		if r.Date.After(snapshot.DateTo) {
			snapshot.DateTo = r.Date
		}

		p, ok := products[r.ProductID]
		if !ok {
			p = &models.ProductStat{ProductID: r.ProductID, ProductName: r.ProductName, Revenue: decimal.Zero}
			products[r.ProductID] = p
		}
		p.Quantity += r.Quantity
		p.Revenue = p.Revenue.Add(r.LineTotal)

		reg, ok := regions[r.Region]
		if !ok {
			reg = &models.RegionStat{Region: r.Region, Revenue: decimal.Zero}
			regions[r.Region] = reg
		}
		reg.Count++
		reg.Revenue = reg.Revenue.Add(r.LineTotal)

		day := utils.DayKey(r.Date)
		d, ok := days[day]
		if !ok {
			d = &models.DayStat{Date: day, Revenue: decimal.Zero}
			days[day] = d
			dayCustomers[day] = make(map[string]struct{})
		}
		d.Count++
		d.Revenue = d.Revenue.Add(r.LineTotal)
		if r.CustomerID != "" {
			dayCustomers[day][r.CustomerID] = struct{}{}
		}

		if r.CustomerID != "" {
			c, ok := customers[r.CustomerID]
			if !ok {
				c = &models.CustomerStat{CustomerID: r.CustomerID, Revenue: decimal.Zero}
				customers[r.CustomerID] = c
			}
			c.Orders++
			c.Revenue = c.Revenue.Add(r.LineTotal)
		}
	}

	snapshot.AverageOrderValue = snapshot.TotalRevenue.
		DivRound(decimal.NewFromInt(int64(len(records))), currencyPrecision)

	for _, p := range products {
		snapshot.TopProducts = append(snapshot.TopProducts, *p)
	}
	sort.Slice(snapshot.TopProducts, func(i, j int) bool {
		a, b := snapshot.TopProducts[i], snapshot.TopProducts[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.ProductID < b.ProductID
	})

	for _, reg := range regions {
		if snapshot.TotalRevenue.IsPositive() {
			share, _ := reg.Revenue.Div(snapshot.TotalRevenue).Float64()
			reg.Share = share * 100
		}
		snapshot.Regions = append(snapshot.Regions, *reg)
	}
	sort.Slice(snapshot.Regions, func(i, j int) bool {
		a, b := snapshot.Regions[i], snapshot.Regions[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.Region < b.Region
	})

	for day, d := range days {
		d.UniqueCustomers = len(dayCustomers[day])
		snapshot.Daily = append(snapshot.Daily, *d)
	}
	sort.Slice(snapshot.Daily, func(i, j int) bool {
		return snapshot.Daily[i].Date.Before(snapshot.Daily[j].Date)
	})

	for _, c := range customers {
		snapshot.TopCustomers = append(snapshot.TopCustomers, *c)
	}
	sort.Slice(snapshot.TopCustomers, func(i, j int) bool {
		a, b := snapshot.TopCustomers[i], snapshot.TopCustomers[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.CustomerID < b.CustomerID
	})

	return snapshot
}

// currencyPrecision mirrors the currency precision used for line totals.
const currencyPrecision = 2
