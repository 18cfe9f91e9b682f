package models

// DashboardStats feeds the dashboard landing page.
type DashboardStats struct {
	Total             int          `json:"total"`
	DiterimaTerdaftar int          `json:"diterima_terdaftar"`
	Diproses          int          `json:"diproses"`
	Ditolak           int          `json:"ditolak"`
	Recent            []HKI        `json:"recent"`
	Yearly            []YearCount  `json:"yearly"`
	PerStatus         []LabelCount `json:"per_status"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// LabelCount is one bar/slice of a chart series.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReportSummary aggregates filings for the report page and PDF.
type ReportSummary struct {
	Yearly      []YearCount  `json:"yearly"`
	PerStatus   []LabelCount `json:"per_status"`
	PerJenis    []LabelCount `json:"per_jenis"`
	PerPengusul []LabelCount `json:"per_pengusul"`
}
