package domain

import "time"

// ConnectionSettings holds the credentials and endpoint of the external POS
// reporting server. Only one row is canonical at a time; saving overwrites it.
// PasswordHash is the SHA-1 hex digest the POS auth endpoint expects, never the
// raw password.
type ConnectionSettings struct {
	ID           string     `json:"id"`
	ServerURL    string     `json:"server_url"`
	Login        string     `json:"login"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type SettingsSaveRequest struct {
	ServerURL string `json:"server_url"`
	Login     string `json:"login"`
	Password  string `json:"password"`
}

type SettingsResponse struct {
	Settings ConnectionSettings `json:"settings"`
}

// SalesLineItem is one dish sold in one order at one point in time, as
// normalized from any of the POS report formats. Amount is net (after
// discount); Quantity is fractional because the POS supports weighted items.
type SalesLineItem struct {
	ID             string    `json:"id"`
	DishID         string    `json:"dish_id"`
	DishName       string    `json:"dish_name"`
	DishCode       string    `json:"dish_code"`
	CategoryID     string    `json:"category_id"`
	CategoryName   string    `json:"category_name"`
	GroupID        string    `json:"group_id"`
	GroupName      string    `json:"group_name"`
	DepartmentID   string    `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	Quantity       float64   `json:"quantity"`
	Amount         float64   `json:"amount"`
	Discount       float64   `json:"discount"`
	OrderNumber    string    `json:"order_number"`
	SoldAt         time.Time `json:"sold_at"`
	ImportedAt     time.Time `json:"imported_at"`
}

// SalesSummary totals a parsed batch before persistence.
// TotalNet == TotalGross - TotalDiscount.
type SalesSummary struct {
	TotalGross    float64 `json:"total_gross"`
	TotalNet      float64 `json:"total_net"`
	TotalQuantity float64 `json:"total_quantity"`
	TotalDiscount float64 `json:"total_discount"`
}

// ParsedReport is the canonical output of every response parser.
type ParsedReport struct {
	Items   []SalesLineItem `json:"items"`
	Summary SalesSummary    `json:"summary"`
}

type SyncRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

type SyncResult struct {
	ItemsImported int          `json:"items_imported"`
	Summary       SalesSummary `json:"summary"`
}

type SyncResponse struct {
	Success       bool         `json:"success"`
	ItemsImported int          `json:"items_imported"`
	Summary       SalesSummary `json:"summary"`
}

type TestConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CategoryRevenue struct {
	Category     string  `json:"category"`
	Amount       float64 `json:"amount"`
	Quantity     float64 `json:"quantity"`
	OrderCount   int     `json:"order_count"`
	AverageCheck float64 `json:"average_check"`
}

type DayRevenue struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type HourRevenue struct {
	Hour   int     `json:"hour"`
	Amount float64 `json:"amount"`
}

type TopItem struct {
	DishID   string  `json:"dish_id"`
	DishName string  `json:"dish_name"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// RevenueStats is the dashboard aggregation over persisted line items.
type RevenueStats struct {
	TotalRevenue  float64           `json:"total_revenue"`
	TotalQuantity float64           `json:"total_quantity"`
	OrderCount    int               `json:"order_count"`
	AverageCheck  float64           `json:"average_check"`
	ByCategory    []CategoryRevenue `json:"by_category"`
	ByDay         []DayRevenue      `json:"by_day"`
	ByHour        []HourRevenue     `json:"by_hour"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}
