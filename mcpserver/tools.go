package mcpserver

import (
	"context"
	"fmt"

	"github.com/jonwraymond/realestate/cache"
	"github.com/jonwraymond/realestate/realestate"
	"github.com/jonwraymond/realestate/resilience"
	"github.com/jonwraymond/realestate/toolerr"
)

// RegionInput is the input of get_region_code.
type RegionInput struct {
	Query string `json:"query" jsonschema:"District name in Korean, e.g. 마포구, 서울 강남구 or 분당구"`
}

// TransactionInput is the input of the nine MOLIT tools.
type TransactionInput struct {
	RegionCode string `json:"region_code" jsonschema:"5-digit legal district (LAWD) code from get_region_code, e.g. 11440"`
	YearMonth  string `json:"year_month" jsonschema:"Contract month as YYYYMM, from 200601 to the current month"`
	NumOfRows  int    `json:"num_of_rows,omitempty" jsonschema:"Maximum records to fetch, 1 to 1000 (default 100)"`
}

// SubscriptionInput is the input of get_apt_subscription_info.
type SubscriptionInput struct {
	Page    int `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	PerPage int `json:"per_page,omitempty" jsonschema:"Records per page (default 100)"`
}

// OnbidInput is the input of the Onbid category code tools. CtgrID is
// ignored by the top level tool.
type OnbidInput struct {
	CtgrID    string `json:"ctgr_id,omitempty" jsonschema:"Parent CTGR_ID from the level above, e.g. 10000 (real estate) or 10100 (land)"`
	PageNo    int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 100)"`
}

// OnbidPageInput is the input of get_onbid_addr1_info.
type OnbidPageInput struct {
	PageNo    int `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows int `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 100)"`
}

// OnbidAddr2Input is the input of get_onbid_addr2_info.
type OnbidAddr2Input struct {
	Addr1     string `json:"addr1" jsonschema:"Province (시/도) from get_onbid_addr1_info, e.g. 서울특별시"`
	PageNo    int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 100)"`
}

// OnbidAddr3Input is the input of get_onbid_addr3_info.
type OnbidAddr3Input struct {
	Addr2     string `json:"addr2" jsonschema:"District (시/군/구) from get_onbid_addr2_info, e.g. 마포구"`
	PageNo    int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 100)"`
}

// OnbidDtlAddrInput is the input of get_onbid_dtl_addr_info.
type OnbidDtlAddrInput struct {
	Addr3     string `json:"addr3" jsonschema:"Neighbourhood (읍/면/동) from get_onbid_addr3_info, e.g. 상수동"`
	PageNo    int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 100)"`
}

// ThingInfoInput is the input of get_onbid_thing_info_list. Zero amounts
// and empty strings are not sent.
type ThingInfoInput struct {
	PageNo         int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows      int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 20)"`
	DpslMtdCd      string `json:"dpsl_mtd_cd,omitempty" jsonschema:"Disposal method: 0001 sale, 0002 lease"`
	CtgrHirkID     string `json:"ctgr_hirk_id,omitempty" jsonschema:"Specific category CTGR_ID from get_onbid_bottom_code_info"`
	CtgrHirkIDMid  string `json:"ctgr_hirk_id_mid,omitempty" jsonschema:"Broad category CTGR_ID from get_onbid_middle_code_info, e.g. 10100 (land)"`
	Sido           string `json:"sido,omitempty" jsonschema:"Province from get_onbid_addr1_info"`
	Sgk            string `json:"sgk,omitempty" jsonschema:"District from get_onbid_addr2_info"`
	Emd            string `json:"emd,omitempty" jsonschema:"Neighbourhood from get_onbid_addr3_info"`
	GoodsPriceFrom int64  `json:"goods_price_from,omitempty" jsonschema:"Minimum appraisal value in KRW"`
	GoodsPriceTo   int64  `json:"goods_price_to,omitempty" jsonschema:"Maximum appraisal value in KRW"`
	OpenPriceFrom  int64  `json:"open_price_from,omitempty" jsonschema:"Minimum lowest bid price in KRW"`
	OpenPriceTo    int64  `json:"open_price_to,omitempty" jsonschema:"Maximum lowest bid price in KRW"`
	PbctBegnDtm    string `json:"pbct_begn_dtm,omitempty" jsonschema:"Bid period start as YYYYMMDD"`
	PbctClsDtm     string `json:"pbct_cls_dtm,omitempty" jsonschema:"Bid period end as YYYYMMDD"`
	CltrNm         string `json:"cltr_nm,omitempty" jsonschema:"Item name keyword"`
}

func (in ThingInfoInput) query() realestate.ThingQuery {
	return realestate.ThingQuery{
		DpslMtdCd:      in.DpslMtdCd,
		CtgrHirkID:     in.CtgrHirkID,
		CtgrHirkIDMid:  in.CtgrHirkIDMid,
		Sido:           in.Sido,
		Sgk:            in.Sgk,
		Emd:            in.Emd,
		GoodsPriceFrom: in.GoodsPriceFrom,
		GoodsPriceTo:   in.GoodsPriceTo,
		OpenPriceFrom:  in.OpenPriceFrom,
		OpenPriceTo:    in.OpenPriceTo,
		PbctBegnDtm:    in.PbctBegnDtm,
		PbctClsDtm:     in.PbctClsDtm,
		CltrNm:         in.CltrNm,
	}
}

// AuctionItemsInput is the input of get_public_auction_items. Zero amounts
// and empty strings are not sent.
type AuctionItemsInput struct {
	PageNo           int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows        int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 20)"`
	CltrTypeCd       string `json:"cltr_type_cd,omitempty" jsonschema:"Item type code, e.g. 0001 real estate"`
	PrptDivCd        string `json:"prpt_div_cd,omitempty" jsonschema:"Property division code"`
	DspsMthodCd      string `json:"dsps_mthod_cd,omitempty" jsonschema:"Disposal method: 0001 sale, 0002 lease"`
	BidDivCd         string `json:"bid_div_cd,omitempty" jsonschema:"Bid division code"`
	LctnSdnm         string `json:"lctn_sdnm,omitempty" jsonschema:"Province name, e.g. 서울특별시"`
	LctnSggnm        string `json:"lctn_sggnm,omitempty" jsonschema:"District name, e.g. 강남구"`
	LctnEmdNm        string `json:"lctn_emd_nm,omitempty" jsonschema:"Neighbourhood name"`
	OpbdDtStart      string `json:"opbd_dt_start,omitempty" jsonschema:"Bid opening date from, YYYYMMDD"`
	OpbdDtEnd        string `json:"opbd_dt_end,omitempty" jsonschema:"Bid opening date to, YYYYMMDD"`
	ApslEvlAmtStart  int64  `json:"apsl_evl_amt_start,omitempty" jsonschema:"Minimum appraisal amount in KRW"`
	ApslEvlAmtEnd    int64  `json:"apsl_evl_amt_end,omitempty" jsonschema:"Maximum appraisal amount in KRW"`
	LowstBidPrcStart int64  `json:"lowst_bid_prc_start,omitempty" jsonschema:"Minimum lowest bid price in KRW"`
	LowstBidPrcEnd   int64  `json:"lowst_bid_prc_end,omitempty" jsonschema:"Maximum lowest bid price in KRW"`
	PbctStatCd       string `json:"pbct_stat_cd,omitempty" jsonschema:"Bid result status code"`
	OnbidCltrNm      string `json:"onbid_cltr_nm,omitempty" jsonschema:"Item name keyword"`
}

func (in AuctionItemsInput) query() realestate.AuctionQuery {
	return realestate.AuctionQuery{
		CltrTypeCd:       in.CltrTypeCd,
		PrptDivCd:        in.PrptDivCd,
		DspsMthodCd:      in.DspsMthodCd,
		BidDivCd:         in.BidDivCd,
		LctnSdnm:         in.LctnSdnm,
		LctnSggnm:        in.LctnSggnm,
		LctnEmdNm:        in.LctnEmdNm,
		OpbdDtStart:      in.OpbdDtStart,
		OpbdDtEnd:        in.OpbdDtEnd,
		ApslEvlAmtStart:  in.ApslEvlAmtStart,
		ApslEvlAmtEnd:    in.ApslEvlAmtEnd,
		LowstBidPrcStart: in.LowstBidPrcStart,
		LowstBidPrcEnd:   in.LowstBidPrcEnd,
		PbctStatCd:       in.PbctStatCd,
		OnbidCltrNm:      in.OnbidCltrNm,
	}
}

// AuctionDetailInput is the input of get_public_auction_item_detail.
type AuctionDetailInput struct {
	CltrMngNo  string `json:"cltr_mng_no" jsonschema:"Item management number (cltrMngNo) from get_public_auction_items"`
	PbctCdtnNo string `json:"pbct_cdtn_no" jsonschema:"Disposal condition number (pbctCdtnNo) from get_public_auction_items"`
	PageNo     int    `json:"page_no,omitempty" jsonschema:"1-based page number (default 1)"`
	NumOfRows  int    `json:"num_of_rows,omitempty" jsonschema:"Records per page (default 20)"`
}

// LoanInput is the input of calculate_loan_payment.
type LoanInput struct {
	Principal10k  int     `json:"principal_10k" jsonschema:"Loan principal in 10,000 KRW, at least 1"`
	AnnualRatePct float64 `json:"annual_rate_pct" jsonschema:"Annual interest rate in percent, e.g. 3.5"`
	Years         int     `json:"years" jsonschema:"Loan term in years, at least 1"`
}

// GrowthInput is the input of calculate_compound_growth.
type GrowthInput struct {
	Initial10k             int     `json:"initial_10k" jsonschema:"Initial capital in 10,000 KRW"`
	MonthlyContribution10k float64 `json:"monthly_contribution_10k" jsonschema:"Monthly contribution in 10,000 KRW"`
	AnnualRatePct          float64 `json:"annual_rate_pct" jsonschema:"Annual return in percent, compounded monthly"`
	Years                  int     `json:"years" jsonschema:"Horizon in years, at least 1"`
}

// CashflowInput is the input of calculate_monthly_cashflow.
type CashflowInput struct {
	MonthlyIncome10k      float64 `json:"monthly_income_10k" jsonschema:"Monthly income in 10,000 KRW"`
	MonthlyLoanPayment10k float64 `json:"monthly_loan_payment_10k" jsonschema:"Monthly debt service in 10,000 KRW, e.g. from calculate_loan_payment"`
	MonthlyLivingCost10k  float64 `json:"monthly_living_cost_10k,omitempty" jsonschema:"Monthly living cost in 10,000 KRW; 0 assumes 40% of income"`
	OtherMonthlyCosts10k  float64 `json:"other_monthly_costs_10k,omitempty" jsonschema:"Other monthly costs in 10,000 KRW"`
}

// StatsInput is the empty input of get_cache_stats.
type StatsInput struct{}

// CacheStatsResult is the answer of get_cache_stats.
type CacheStatsResult struct {
	Cache           cache.Stats                                 `json:"cache"`
	CircuitBreakers map[string]resilience.CircuitBreakerMetrics `json:"circuit_breakers"`
}

const (
	categoryRegion  = "region"
	categoryMOLIT   = "molit"
	categoryOdcloud = "odcloud"
	categoryOnbid   = "onbid"
	categoryAuction = "auction"
	categoryFinance = "finance"
	categoryDiag    = "diagnostics"
)

// defaultAuctionRows is the page size of the auction item tools.
const defaultAuctionRows = 20

func (s *Server) registerTools() {
	addTool(s, toolDef[RegionInput]{
		name:     "get_region_code",
		category: categoryRegion,
		description: "Convert a Korean district name to the 5-digit legal district code used by the " +
			"transaction tools. Returns region_code, full_name and every matching row. " +
			"Korean keywords: 법정동코드, 지역코드, 시군구.",
		run: func(ctx context.Context, in RegionInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.RegionCode(ctx, in.Query))
		},
	})

	for _, d := range realestate.Datasets {
		addTool(s, toolDef[TransactionInput]{
			name:        d.Tool,
			category:    categoryMOLIT,
			description: transactionDescription(d),
			defaults:    TransactionInput{NumOfRows: realestate.DefaultRows},
			run: func(ctx context.Context, in TransactionInput) (any, *toolerr.Envelope) {
				return s.svc.Transactions(ctx, d, in.RegionCode, in.YearMonth, in.NumOfRows)
			},
		})
	}

	addTool(s, toolDef[SubscriptionInput]{
		name:     "get_apt_subscription_info",
		category: categoryOdcloud,
		description: "List Applyhome (청약홈) apartment subscription notices: announcement, " +
			"application and winner dates, supply size and location. Items are returned as published. " +
			"Korean keywords: 청약, 분양정보, 청약홈.",
		defaults: SubscriptionInput{Page: 1, PerPage: realestate.DefaultRows},
		run: func(ctx context.Context, in SubscriptionInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.SubscriptionInfo(ctx, in.Page, in.PerPage))
		},
	})

	onbid := []struct {
		name        string
		level       realestate.OnbidLevel
		description string
	}{
		{
			"get_onbid_top_code_info", realestate.OnbidTop,
			"List top level Onbid (온비드) public auction categories, e.g. 부동산 with CTGR_ID 10000. " +
				"Drill down with get_onbid_middle_code_info.",
		},
		{
			"get_onbid_middle_code_info", realestate.OnbidMiddle,
			"List Onbid categories under a top level CTGR_ID (ctgr_id required), e.g. 토지 with CTGR_ID 10100 under 10000.",
		},
		{
			"get_onbid_bottom_code_info", realestate.OnbidBottom,
			"List the most specific Onbid categories under a middle level CTGR_ID (ctgr_id required).",
		},
	}
	for _, o := range onbid {
		addTool(s, toolDef[OnbidInput]{
			name:        o.name,
			category:    categoryOnbid,
			description: o.description + " Items carry CTGR_ID and CTGR_NM as returned upstream.",
			defaults:    OnbidInput{PageNo: 1, NumOfRows: realestate.DefaultRows},
			run: func(ctx context.Context, in OnbidInput) (any, *toolerr.Envelope) {
				return unwrap(s.svc.OnbidCodes(ctx, o.level, in.CtgrID, in.PageNo, in.NumOfRows))
			},
		})
	}

	addTool(s, toolDef[OnbidPageInput]{
		name:     "get_onbid_addr1_info",
		category: categoryOnbid,
		description: "List Onbid provinces (시/도, ADDR1). Drill down with get_onbid_addr2_info and use the " +
			"values as sido, sgk and emd in get_onbid_thing_info_list.",
		defaults: OnbidPageInput{PageNo: 1, NumOfRows: realestate.DefaultRows},
		run: func(ctx context.Context, in OnbidPageInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.OnbidCodes(ctx, realestate.OnbidAddr1, "", in.PageNo, in.NumOfRows))
		},
	})

	addTool(s, toolDef[OnbidAddr2Input]{
		name:        "get_onbid_addr2_info",
		category:    categoryOnbid,
		description: "List Onbid districts (시/군/구, ADDR2) under a province (addr1 required).",
		defaults:    OnbidAddr2Input{PageNo: 1, NumOfRows: realestate.DefaultRows},
		run: func(ctx context.Context, in OnbidAddr2Input) (any, *toolerr.Envelope) {
			return unwrap(s.svc.OnbidCodes(ctx, realestate.OnbidAddr2, in.Addr1, in.PageNo, in.NumOfRows))
		},
	})

	addTool(s, toolDef[OnbidAddr3Input]{
		name:        "get_onbid_addr3_info",
		category:    categoryOnbid,
		description: "List Onbid neighbourhoods (읍/면/동, ADDR3) under a district (addr2 required).",
		defaults:    OnbidAddr3Input{PageNo: 1, NumOfRows: realestate.DefaultRows},
		run: func(ctx context.Context, in OnbidAddr3Input) (any, *toolerr.Envelope) {
			return unwrap(s.svc.OnbidCodes(ctx, realestate.OnbidAddr3, in.Addr2, in.PageNo, in.NumOfRows))
		},
	})

	addTool(s, toolDef[OnbidDtlAddrInput]{
		name:        "get_onbid_dtl_addr_info",
		category:    categoryOnbid,
		description: "List Onbid detailed addresses under a neighbourhood (addr3 required).",
		defaults:    OnbidDtlAddrInput{PageNo: 1, NumOfRows: realestate.DefaultRows},
		run: func(ctx context.Context, in OnbidDtlAddrInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.OnbidCodes(ctx, realestate.OnbidDtlAddr, in.Addr3, in.PageNo, in.NumOfRows))
		},
	})

	addTool(s, toolDef[ThingInfoInput]{
		name:     "get_onbid_thing_info_list",
		category: categoryAuction,
		description: "Search Onbid (온비드) public auction items (물건정보조회) by disposal method, category, " +
			"location, appraisal and lowest bid price and bid period. Resolve category codes with the " +
			"get_onbid_*_code_info tools and locations with the get_onbid_addr*_info tools. " +
			"Items carry the raw upstream fields such as CLTR_NO and CLTR_NM.",
		defaults: ThingInfoInput{PageNo: 1, NumOfRows: defaultAuctionRows},
		run: func(ctx context.Context, in ThingInfoInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.ThingInfoList(ctx, in.PageNo, in.NumOfRows, in.query()))
		},
	})

	addTool(s, toolDef[AuctionItemsInput]{
		name:     "get_public_auction_items",
		category: categoryAuction,
		description: "List Onbid public auction bid results (입찰 결과, 낙찰/유찰) filtered by item type, location, " +
			"opening date and price ranges. Items are returned with their upstream field names. " +
			"Korean keywords: 공매, 온비드, 개찰일, 감정가, 최저입찰가.",
		defaults: AuctionItemsInput{PageNo: 1, NumOfRows: defaultAuctionRows},
		run: func(ctx context.Context, in AuctionItemsInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.AuctionItems(ctx, in.PageNo, in.NumOfRows, in.query()))
		},
	})

	addTool(s, toolDef[AuctionDetailInput]{
		name:     "get_public_auction_item_detail",
		category: categoryAuction,
		description: "Get the Onbid bid result detail of one item (cltr_mng_no and pbct_cdtn_no required, " +
			"both from get_public_auction_items).",
		defaults: AuctionDetailInput{PageNo: 1, NumOfRows: defaultAuctionRows},
		run: func(ctx context.Context, in AuctionDetailInput) (any, *toolerr.Envelope) {
			return unwrap(s.svc.AuctionItemDetail(ctx, in.CltrMngNo, in.PbctCdtnNo, in.PageNo, in.NumOfRows))
		},
	})

	addTool(s, toolDef[LoanInput]{
		name:     "calculate_loan_payment",
		category: categoryFinance,
		description: "Calculate the equal monthly installment of a mortgage (원리금균등상환) in 10,000 KRW, " +
			"with total payment and total interest.",
		run: func(_ context.Context, in LoanInput) (any, *toolerr.Envelope) {
			return unwrap(realestate.CalculateLoanPayment(in.Principal10k, in.AnnualRatePct, in.Years))
		},
	})

	addTool(s, toolDef[GrowthInput]{
		name:     "calculate_compound_growth",
		category: categoryFinance,
		description: "Project savings growth from initial capital and monthly contributions with monthly " +
			"compounding, in 10,000 KRW.",
		run: func(_ context.Context, in GrowthInput) (any, *toolerr.Envelope) {
			return unwrap(realestate.CalculateCompoundGrowth(in.Initial10k, in.MonthlyContribution10k, in.AnnualRatePct, in.Years))
		},
	})

	addTool(s, toolDef[CashflowInput]{
		name:     "calculate_monthly_cashflow",
		category: categoryFinance,
		description: "Calculate monthly free cashflow after debt service, living and other costs, in 10,000 KRW. " +
			"A zero living cost is estimated as 40% of income.",
		run: func(_ context.Context, in CashflowInput) (any, *toolerr.Envelope) {
			return unwrap(realestate.CalculateCashflow(in.MonthlyIncome10k, in.MonthlyLoanPayment10k,
				in.MonthlyLivingCost10k, in.OtherMonthlyCosts10k))
		},
	})

	addTool(s, toolDef[StatsInput]{
		name:        "get_cache_stats",
		category:    categoryDiag,
		description: "Report response cache counters and the circuit breaker state of every upstream service.",
		run: func(ctx context.Context, _ StatsInput) (any, *toolerr.Envelope) {
			return CacheStatsResult{
				Cache:           s.diag.CacheStats(),
				CircuitBreakers: s.diag.BreakerStates(),
			}, nil
		},
	})
}

func transactionDescription(d realestate.Dataset) string {
	if d.Kind == realestate.DealRent {
		return fmt.Sprintf("Get %s records for one district and month from MOLIT (service %s). "+
			"Returns items with deposit_10k and monthly_rent_10k (10,000 KRW; 0 monthly rent is jeonse) "+
			"and a summary with median, min and max deposit and the average monthly rent. "+
			"Cancelled contracts are excluded. Use get_region_code for region_code.", d.Label, d.Service)
	}
	return fmt.Sprintf("Get %s records for one district and month from MOLIT (service %s). "+
		"Returns items with price_10k (10,000 KRW) and a summary with median, min and max price. "+
		"Cancelled deals are excluded. Use get_region_code for region_code.", d.Label, d.Service)
}

// unwrap turns a typed result into the untyped pair without wrapping a nil
// pointer in a non-nil interface.
func unwrap[T any](v *T, env *toolerr.Envelope) (any, *toolerr.Envelope) {
	if env != nil {
		return nil, env
	}
	return v, nil
}
