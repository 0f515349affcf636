package pos

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"catatkas/backend/internal/domain"
)

// Field naming drifts across POS server versions: newer builds emit the
// OLAP-style names (DishId, DishSumInt), older ones emit short forms (Sum,
// Discount). Each logical field therefore carries an ordered alias list,
// most specific first, and extraction takes the first key present.
var pivotAliases = map[string][]string{
	"dishId":         {"DishId", "Dish.Id"},
	"dishName":       {"DishName", "Dish.Name", "Dish"},
	"dishCode":       {"DishCode", "Dish.Code"},
	"categoryId":     {"DishCategory.Id", "DishCategoryId", "Category.Id"},
	"categoryName":   {"DishCategory.Name", "DishCategory", "Category"},
	"groupId":        {"DishGroup.Id", "DishGroupId", "Group.Id"},
	"groupName":      {"DishGroup.Name", "DishGroup", "Group"},
	"departmentId":   {"Department.Id", "DepartmentId"},
	"departmentName": {"Department.Name", "Department"},
	"quantity":       {"DishAmountInt", "Amount"},
	"gross":          {"DishSumInt", "Sum"},
	"discount":       {"DishDiscountSumInt", "Discount"},
	"orderNumber":    {"OrderNum", "Order.Num", "OrderNumber"},
	"soldAt":         {"OpenDate.Typed", "OpenDate", "OpenTime"},
}

var soldAtLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
}

type pivotEnvelope struct {
	Data []map[string]any `json:"data"`
	Rows []map[string]any `json:"rows"`
}

// ParsePivotReport normalizes an OLAP pivot response into canonical line
// items. The persisted amount is always net: gross (DishSumInt/Sum) minus
// discount (DishDiscountSumInt/Discount). The raw gross figure is never
// stored as-is. A malformed row degrades to zeros/empties instead of aborting
// the batch, and zero rows is a valid empty result.
func ParsePivotReport(raw []byte) (domain.ParsedReport, error) {
	var envelope pivotEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return domain.ParsedReport{}, &RequestError{Detail: fmt.Sprintf("malformed pivot response: %v", err), Err: err}
	}

	rows := envelope.Data
	if rows == nil {
		rows = envelope.Rows
	}

	report := domain.ParsedReport{Items: make([]domain.SalesLineItem, 0, len(rows))}
	for _, row := range rows {
		gross := floatField(row, pivotAliases["gross"])
		discount := floatField(row, pivotAliases["discount"])
		quantity := floatField(row, pivotAliases["quantity"])

		item := domain.SalesLineItem{
			DishID:         stringField(row, pivotAliases["dishId"]),
			DishName:       stringField(row, pivotAliases["dishName"]),
			DishCode:       stringField(row, pivotAliases["dishCode"]),
			CategoryID:     stringField(row, pivotAliases["categoryId"]),
			CategoryName:   stringField(row, pivotAliases["categoryName"]),
			GroupID:        stringField(row, pivotAliases["groupId"]),
			GroupName:      stringField(row, pivotAliases["groupName"]),
			DepartmentID:   stringField(row, pivotAliases["departmentId"]),
			DepartmentName: stringField(row, pivotAliases["departmentName"]),
			Quantity:       quantity,
			Amount:         gross - discount,
			Discount:       discount,
			OrderNumber:    stringField(row, pivotAliases["orderNumber"]),
			SoldAt:         timeField(row, pivotAliases["soldAt"]),
		}
		report.Items = append(report.Items, item)

		report.Summary.TotalGross += gross
		report.Summary.TotalDiscount += discount
		report.Summary.TotalQuantity += quantity
	}
	report.Summary.TotalNet = report.Summary.TotalGross - report.Summary.TotalDiscount

	return report, nil
}

// stringField returns the first alias present in the row, rendered as a
// string. Missing values become "" so downstream grouping stays stable.
func stringField(row map[string]any, aliases []string) string {
	for _, key := range aliases {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		default:
			return strings.TrimSpace(fmt.Sprintf("%v", v))
		}
	}
	return ""
}

// floatField parses the first alias present permissively; anything that does
// not look numeric yields 0.
func floatField(row map[string]any, aliases []string) float64 {
	for _, key := range aliases {
		value, ok := row[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case float64:
			return v
		case json.Number:
			parsed, err := v.Float64()
			if err != nil {
				return 0
			}
			return parsed
		case string:
			parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", "."), 64)
			if err != nil {
				return 0
			}
			return parsed
		default:
			return 0
		}
	}
	return 0
}

func timeField(row map[string]any, aliases []string) time.Time {
	raw := stringField(row, aliases)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range soldAtLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Daily report parsing. The legacy report endpoint answers with tag-delimited
// text that is not guaranteed to be well-formed XML, so blocks and scalar
// fields are extracted by tolerant text matching rather than a strict
// decoder. An absent tag yields an empty value, never an error.

var dailyBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)<row>(.*?)</row>`),
	regexp.MustCompile(`(?s)<item>(.*?)</item>`),
}

var dailyFieldAliases = map[string][]string{
	"dishName": {"DishName", "dish", "name"},
	"amount":   {"DishSumInt", "sum", "amount"},
	"quantity": {"DishAmountInt", "count", "quantity"},
}

// DefaultTopItemsLimit caps the re-aggregated top-items list of the daily
// report path.
const DefaultTopItemsLimit = 10

// ParseDailyReport extracts per-dish lines from the daily report payload and
// re-aggregates them by dish name into a ranked top-items list, descending by
// amount, capped at limit. Amounts in this format are already net of
// discount; no gross-minus-discount math applies here.
func ParseDailyReport(raw []byte, limit int) ([]domain.TopItem, error) {
	if limit < 1 {
		limit = DefaultTopItemsLimit
	}

	text := string(raw)
	var blocks []string
	for _, pattern := range dailyBlockPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			blocks = append(blocks, match[1])
		}
		if len(blocks) > 0 {
			break
		}
	}

	totals := make(map[string]*domain.TopItem, len(blocks))
	for _, block := range blocks {
		name := innerTag(block, dailyFieldAliases["dishName"])
		if name == "" {
			continue
		}
		entry, ok := totals[name]
		if !ok {
			entry = &domain.TopItem{DishName: name}
			totals[name] = entry
		}
		entry.Amount += parseLooseFloat(innerTag(block, dailyFieldAliases["amount"]))
		entry.Quantity += parseLooseFloat(innerTag(block, dailyFieldAliases["quantity"]))
	}

	items := make([]domain.TopItem, 0, len(totals))
	for _, entry := range totals {
		items = append(items, *entry)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Amount != items[j].Amount {
			return items[i].Amount > items[j].Amount
		}
		return items[i].DishName < items[j].DishName
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func innerTag(block string, aliases []string) string {
	for _, tag := range aliases {
		openTag := "<" + tag + ">"
		closeTag := "</" + tag + ">"
		start := strings.Index(block, openTag)
		if start < 0 {
			continue
		}
		rest := block[start+len(openTag):]
		end := strings.Index(rest, closeTag)
		if end < 0 {
			continue
		}
		return strings.TrimSpace(rest[:end])
	}
	return ""
}

func parseLooseFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0
	}
	return parsed
}

// ParseOrderList is a diagnostic passthrough: it only checks the payload is
// decodable and hands the rows back untouched. It is not part of the
// canonical sync path.
func ParseOrderList(raw []byte) ([]map[string]any, error) {
	var orders []map[string]any
	if err := json.Unmarshal(raw, &orders); err == nil {
		return orders, nil
	}

	var wrapped struct {
		Orders []map[string]any `json:"orders"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, &RequestError{Detail: fmt.Sprintf("malformed order list response: %v", err), Err: err}
	}
	return wrapped.Orders, nil
}
