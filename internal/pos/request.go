package pos

import (
	"net/url"
	"time"
)

// dailyReportDateLayout is the day.month.year form the legacy report endpoint
// requires for its date parameters.
const dailyReportDateLayout = "02.01.2006"

// DailyReportPresetID identifies the fixed named report template the POS
// server ships for per-dish daily sales.
const DailyReportPresetID = "SALES_DISHES"

// PivotReportRequest is the body of an OLAP report request. Rows are grouped
// by the listed dimensions and summed over the listed measures.
type PivotReportRequest struct {
	ReportType       string         `json:"reportType"`
	GroupByRowFields []string       `json:"groupByRowFields"`
	AggregateFields  []string       `json:"aggregateFields"`
	Filters          map[string]any `json:"filters"`
}

// NewSalesPivotRequest shapes the canonical sales pivot query for [from, to],
// inclusive on both ends. departmentID, when non-empty, narrows the report to
// one department.
func NewSalesPivotRequest(from time.Time, to time.Time, departmentID string) PivotReportRequest {
	req := PivotReportRequest{
		ReportType: "SALES",
		GroupByRowFields: []string{
			"Department.Id",
			"Department",
			"DishId",
			"DishName",
			"DishCode",
			"DishCategory.Id",
			"DishCategory",
			"DishGroup.Id",
			"DishGroup",
			"OpenDate.Typed",
			"OrderNum",
		},
		AggregateFields: []string{
			"DishAmountInt",
			"DishDiscountSumInt",
			"DishSumInt",
		},
		Filters: map[string]any{
			"OpenDate.Typed": map[string]any{
				"filterType":  "DateRange",
				"periodType":  "CUSTOM",
				"from":        from.Format("2006-01-02"),
				"to":          to.Format("2006-01-02"),
				"includeLow":  true,
				"includeHigh": true,
			},
		},
	}
	if departmentID != "" {
		req.Filters["Department.Id"] = map[string]any{
			"filterType": "IncludeValues",
			"values":     []string{departmentID},
		}
	}
	return req
}

// DailyReportParams shapes the query string for the XML-oriented daily report
// endpoint, which takes its dates in day.month.year form and references a
// fixed preset by id.
func DailyReportParams(from time.Time, to time.Time) url.Values {
	params := url.Values{}
	params.Set("dateFrom", from.Format(dailyReportDateLayout))
	params.Set("dateTo", to.Format(dailyReportDateLayout))
	params.Set("presetId", DailyReportPresetID)
	return params
}

// OrderListParams shapes the query string for the order/session list endpoint.
func OrderListParams(from time.Time, to time.Time, closedOnly bool) url.Values {
	params := url.Values{}
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	if closedOnly {
		params.Set("status", "CLOSED")
	}
	return params
}
