// Package analytics derives dashboard statistics from persisted sales line
// items. Everything here is a pure function over an item slice; no storage or
// network access.
package analytics

import (
	"sort"

	"catatkas/backend/internal/domain"
)

// Stats computes the full revenue breakdown for a set of line items. An empty
// slice yields zero totals and an average check of 0, never a division by
// zero.
func Stats(items []domain.SalesLineItem) domain.RevenueStats {
	stats := domain.RevenueStats{
		ByCategory: ByCategory(items),
		ByDay:      ByDay(items),
		ByHour:     ByHour(items),
	}

	orders := make(map[string]struct{})
	for _, item := range items {
		stats.TotalRevenue += item.Amount
		stats.TotalQuantity += item.Quantity
		if item.OrderNumber != "" {
			orders[item.OrderNumber] = struct{}{}
		}
	}
	stats.OrderCount = len(orders)
	if stats.OrderCount > 0 {
		stats.AverageCheck = stats.TotalRevenue / float64(stats.OrderCount)
	}

	return stats
}

// ByCategory groups by category name, descending by amount. A blank category
// is its own bucket: real data contains uncategorized dishes and they must
// not be dropped.
func ByCategory(items []domain.SalesLineItem) []domain.CategoryRevenue {
	type bucket struct {
		revenue domain.CategoryRevenue
		orders  map[string]struct{}
	}

	buckets := make(map[string]*bucket)
	for _, item := range items {
		b, ok := buckets[item.CategoryName]
		if !ok {
			b = &bucket{
				revenue: domain.CategoryRevenue{Category: item.CategoryName},
				orders:  make(map[string]struct{}),
			}
			buckets[item.CategoryName] = b
		}
		b.revenue.Amount += item.Amount
		b.revenue.Quantity += item.Quantity
		if item.OrderNumber != "" {
			b.orders[item.OrderNumber] = struct{}{}
		}
	}

	result := make([]domain.CategoryRevenue, 0, len(buckets))
	for _, b := range buckets {
		b.revenue.OrderCount = len(b.orders)
		if b.revenue.OrderCount > 0 {
			b.revenue.AverageCheck = b.revenue.Amount / float64(b.revenue.OrderCount)
		}
		result = append(result, b.revenue)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Amount != result[j].Amount {
			return result[i].Amount > result[j].Amount
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// ByDay groups by the sale's local calendar date, ascending.
func ByDay(items []domain.SalesLineItem) []domain.DayRevenue {
	totals := make(map[string]float64)
	for _, item := range items {
		day := item.SoldAt.Format("2006-01-02")
		totals[day] += item.Amount
	}

	result := make([]domain.DayRevenue, 0, len(totals))
	for day, amount := range totals {
		result = append(result, domain.DayRevenue{Date: day, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result
}

// ByHour groups by hour-of-day 0-23, ascending.
func ByHour(items []domain.SalesLineItem) []domain.HourRevenue {
	totals := make(map[int]float64)
	for _, item := range items {
		totals[item.SoldAt.Hour()] += item.Amount
	}

	result := make([]domain.HourRevenue, 0, len(totals))
	for hour, amount := range totals {
		result = append(result, domain.HourRevenue{Hour: hour, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Hour < result[j].Hour
	})
	return result
}

// TopItems ranks dishes by summed amount, descending, capped at limit. Dishes
// are identified by dish id, falling back to the display name when the id is
// blank.
func TopItems(items []domain.SalesLineItem, limit int) []domain.TopItem {
	if limit < 1 {
		limit = 10
	}

	totals := make(map[string]*domain.TopItem)
	for _, item := range items {
		key := item.DishID
		if key == "" {
			key = item.DishName
		}
		entry, ok := totals[key]
		if !ok {
			entry = &domain.TopItem{DishID: item.DishID, DishName: item.DishName}
			totals[key] = entry
		}
		entry.Quantity += item.Quantity
		entry.Amount += item.Amount
	}

	result := make([]domain.TopItem, 0, len(totals))
	for _, entry := range totals {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Amount != result[j].Amount {
			return result[i].Amount > result[j].Amount
		}
		return result[i].DishName < result[j].DishName
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
