package realestate

// Amounts are in units of 10,000 KRW, as published by MOLIT.

// AptTradeItem is one apartment sale.
type AptTradeItem struct {
	AptName   string  `json:"apt_name"`
	Dong      string  `json:"dong"`
	AreaSqm   float64 `json:"area_sqm"`
	Floor     int     `json:"floor"`
	Price10k  int     `json:"price_10k"`
	TradeDate string  `json:"trade_date"`
	BuildYear int     `json:"build_year"`
	DealType  string  `json:"deal_type"`
}

// UnitTradeItem is one officetel, villa or detached house sale. HouseType
// is set for villas and detached houses only.
type UnitTradeItem struct {
	UnitName  string  `json:"unit_name"`
	HouseType string  `json:"house_type,omitempty"`
	Dong      string  `json:"dong"`
	AreaSqm   float64 `json:"area_sqm"`
	Floor     int     `json:"floor"`
	Price10k  int     `json:"price_10k"`
	TradeDate string  `json:"trade_date"`
	BuildYear int     `json:"build_year"`
	DealType  string  `json:"deal_type"`
}

// CommercialTradeItem is one commercial building sale.
type CommercialTradeItem struct {
	BuildingType string  `json:"building_type"`
	BuildingUse  string  `json:"building_use"`
	LandUse      string  `json:"land_use"`
	Dong         string  `json:"dong"`
	BuildingAr   float64 `json:"building_ar"`
	Floor        int     `json:"floor"`
	Price10k     int     `json:"price_10k"`
	TradeDate    string  `json:"trade_date"`
	BuildYear    int     `json:"build_year"`
	DealType     string  `json:"deal_type"`
	ShareDealing string  `json:"share_dealing"`
}

// RentItem is one lease of any housing type. A zero monthly rent is a
// jeonse lease.
type RentItem struct {
	UnitName       string  `json:"unit_name"`
	HouseType      string  `json:"house_type,omitempty"`
	Dong           string  `json:"dong"`
	AreaSqm        float64 `json:"area_sqm"`
	Floor          int     `json:"floor"`
	Deposit10k     int     `json:"deposit_10k"`
	MonthlyRent10k int     `json:"monthly_rent_10k"`
	ContractType   string  `json:"contract_type"`
	TradeDate      string  `json:"trade_date"`
	BuildYear      int     `json:"build_year"`
}

// TradeSummary describes sale prices.
type TradeSummary struct {
	MedianPrice10k int `json:"median_price_10k"`
	MinPrice10k    int `json:"min_price_10k"`
	MaxPrice10k    int `json:"max_price_10k"`
	SampleCount    int `json:"sample_count"`
}

// RentSummary describes lease deposits. JeonseRatioPct needs sale data of
// the same complex and is always null.
type RentSummary struct {
	MedianDeposit10k  int      `json:"median_deposit_10k"`
	MinDeposit10k     int      `json:"min_deposit_10k"`
	MaxDeposit10k     int      `json:"max_deposit_10k"`
	MonthlyRentAvg10k int      `json:"monthly_rent_avg_10k"`
	JeonseRatioPct    *float64 `json:"jeonse_ratio_pct"`
	SampleCount       int      `json:"sample_count"`
}

// TradeResult is the answer of a sale tool.
type TradeResult[T any] struct {
	TotalCount int          `json:"total_count"`
	Items      []T          `json:"items"`
	Summary    TradeSummary `json:"summary"`
}

// RentResult is the answer of a lease tool.
type RentResult struct {
	TotalCount int         `json:"total_count"`
	Items      []RentItem  `json:"items"`
	Summary    RentSummary `json:"summary"`
}
