package analytics

import (
	"testing"
	"time"

	"catatkas/backend/internal/domain"
)

func saleAt(day int, hour int, category string, dish string, amount float64, qty float64, order string) domain.SalesLineItem {
	return domain.SalesLineItem{
		DishID:       dish,
		DishName:     dish,
		CategoryName: category,
		Quantity:     qty,
		Amount:       amount,
		OrderNumber:  order,
		SoldAt:       time.Date(2024, 3, day, hour, 15, 0, 0, time.Local),
	}
}

func TestStatsTotalsAndAverageCheck(t *testing.T) {
	items := []domain.SalesLineItem{
		saleAt(15, 12, "BAR", "Mojito", 900, 2, "41"),
		saleAt(15, 19, "BAR", "Cola", 500, 1, "42"),
		saleAt(16, 12, "KITCHEN", "Soup", 300, 1, "41"),
	}

	stats := Stats(items)
	if stats.TotalRevenue != 1700 {
		t.Fatalf("expected revenue 1700, got %v", stats.TotalRevenue)
	}
	if stats.TotalQuantity != 4 {
		t.Fatalf("expected quantity 4, got %v", stats.TotalQuantity)
	}
	if stats.OrderCount != 2 {
		t.Fatalf("expected 2 distinct orders, got %d", stats.OrderCount)
	}
	if stats.AverageCheck != 850 {
		t.Fatalf("expected average check 850, got %v", stats.AverageCheck)
	}
}

func TestStatsEmptyInputHasZeroAverageCheck(t *testing.T) {
	stats := Stats(nil)
	if stats.OrderCount != 0 {
		t.Fatalf("expected 0 orders, got %d", stats.OrderCount)
	}
	if stats.AverageCheck != 0 {
		t.Fatalf("expected average check 0 with no orders, got %v", stats.AverageCheck)
	}
	if len(stats.ByCategory) != 0 || len(stats.ByDay) != 0 || len(stats.ByHour) != 0 {
		t.Fatalf("expected empty breakdowns, got %+v", stats)
	}
}

func TestByCategorySortsDescendingAndKeepsBlankBucket(t *testing.T) {
	items := []domain.SalesLineItem{
		saleAt(15, 12, "BAR", "Mojito", 900, 2, "41"),
		saleAt(15, 12, "BAR", "Cola", 500, 1, "42"),
		saleAt(15, 13, "", "Mystery Dish", 2000, 1, "43"),
	}

	byCategory := ByCategory(items)
	if len(byCategory) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(byCategory))
	}
	if byCategory[0].Category != "" || byCategory[0].Amount != 2000 {
		t.Fatalf("uncategorized bucket must rank first by amount: %+v", byCategory[0])
	}
	bar := byCategory[1]
	if bar.Category != "BAR" || bar.Amount != 1400 || bar.Quantity != 3 {
		t.Fatalf("unexpected BAR bucket: %+v", bar)
	}
	if bar.OrderCount != 2 || bar.AverageCheck != 700 {
		t.Fatalf("expected per-category order count 2 and average check 700, got %+v", bar)
	}
}

func TestByDaySortedAscending(t *testing.T) {
	items := []domain.SalesLineItem{
		saleAt(17, 10, "BAR", "A", 100, 1, "1"),
		saleAt(15, 10, "BAR", "B", 200, 1, "2"),
		saleAt(16, 10, "BAR", "C", 300, 1, "3"),
		saleAt(15, 22, "BAR", "D", 50, 1, "4"),
	}

	byDay := ByDay(items)
	if len(byDay) != 3 {
		t.Fatalf("expected 3 days, got %d", len(byDay))
	}
	for i := 1; i < len(byDay); i++ {
		if byDay[i-1].Date >= byDay[i].Date {
			t.Fatalf("days not ascending: %+v", byDay)
		}
	}
	if byDay[0].Date != "2024-03-15" || byDay[0].Amount != 250 {
		t.Fatalf("unexpected first day: %+v", byDay[0])
	}
}

func TestByHourSortedAscending(t *testing.T) {
	items := []domain.SalesLineItem{
		saleAt(15, 22, "BAR", "A", 100, 1, "1"),
		saleAt(15, 9, "BAR", "B", 200, 1, "2"),
		saleAt(16, 9, "BAR", "C", 300, 1, "3"),
	}

	byHour := ByHour(items)
	if len(byHour) != 2 {
		t.Fatalf("expected 2 hour buckets, got %d", len(byHour))
	}
	if byHour[0].Hour != 9 || byHour[0].Amount != 500 {
		t.Fatalf("unexpected 9h bucket: %+v", byHour[0])
	}
	if byHour[1].Hour != 22 {
		t.Fatalf("hours not ascending: %+v", byHour)
	}
}

func TestTopItemsRanksByAmountWithNameFallback(t *testing.T) {
	items := []domain.SalesLineItem{
		{DishID: "d-1", DishName: "Mojito", Amount: 300, Quantity: 1},
		{DishID: "d-1", DishName: "Mojito", Amount: 600, Quantity: 2},
		{DishID: "", DishName: "Unlisted Special", Amount: 700, Quantity: 1},
		{DishID: "", DishName: "Unlisted Special", Amount: 100, Quantity: 1},
		{DishID: "d-3", DishName: "Cola", Amount: 50, Quantity: 1},
	}

	top := TopItems(items, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 items, got %d", len(top))
	}
	if top[0].DishName != "Mojito" || top[0].Amount != 900 || top[0].Quantity != 3 {
		t.Fatalf("unexpected leader: %+v", top[0])
	}
	if top[1].DishName != "Unlisted Special" || top[1].Amount != 800 {
		t.Fatalf("blank dish ids must merge by name: %+v", top[1])
	}
}
