package model

// ValuationField pairs a normalized metric name with the upstream
// company-info key it is read from.
type ValuationField struct {
	Name      string
	SourceKey string
}

// ValuationVocabulary is the fixed, ordered set of valuation metrics.
var ValuationVocabulary = []ValuationField{
	{"pe_ratio", "trailingPE"},
	{"forward_pe", "forwardPE"},
	{"peg_ratio", "pegRatio"},
	{"ev_to_ebitda", "enterpriseToEbitda"},
	{"price_to_book", "priceToBook"},
	{"price_to_sales", "priceToSalesTrailing12Months"},
	{"roe", "returnOnEquity"},
	{"roa", "returnOnAssets"},
	{"profit_margin", "profitMargins"},
	{"operating_margin", "operatingMargins"},
	{"revenue_growth", "revenueGrowth"},
	{"earnings_growth", "earningsGrowth"},
	{"earnings_quarterly_growth", "earningsQuarterlyGrowth"},
	{"free_cash_flow", "freeCashflow"},
	{"operating_cash_flow", "operatingCashflow"},
	{"debt_to_equity", "debtToEquity"},
	{"current_ratio", "currentRatio"},
	{"quick_ratio", "quickRatio"},
	{"market_cap", "marketCap"},
	{"enterprise_value", "enterpriseValue"},
}

// Company-info keys read outside the metric vocabulary.
const (
	InfoLongName = "longName"
	InfoSector   = "sector"
	InfoIndustry = "industry"
)

// ValuationRecord is the normalized valuation output for one ticker.
// Every vocabulary name is present in Metrics; a nil value means unavailable.
type ValuationRecord struct {
	Ticker      string         `json:"ticker"`
	CompanyName string         `json:"company_name"`
	Sector      any            `json:"sector"`
	Industry    any            `json:"industry"`
	Metrics     map[string]any `json:"metrics"`
}
