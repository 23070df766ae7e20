package realestate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/realestate/toolerr"
)

// Onbid item endpoints. The bid result services are the next generation
// (B010003) gateway on data.go.kr and answer in JSON; the item list is XML.
const (
	OnbidThingInfoURL       = "http://openapi.onbid.co.kr/openapi/services/ThingInfoInquireSvc/getUnifyUsageCltr"
	OnbidBidResultListURL   = "http://apis.data.go.kr/B010003/OnbidCltrBidRsltListSrvc/getCltrBidRsltList"
	OnbidBidResultDetailURL = "http://apis.data.go.kr/B010003/OnbidCltrBidRsltDtlSrvc/getCltrBidRsltDtl"
)

// ThingQuery filters get_onbid_thing_info_list. Empty strings and zero
// amounts are left out of the request.
type ThingQuery struct {
	DpslMtdCd      string
	CtgrHirkID     string
	CtgrHirkIDMid  string
	Sido           string
	Sgk            string
	Emd            string
	GoodsPriceFrom int64
	GoodsPriceTo   int64
	OpenPriceFrom  int64
	OpenPriceTo    int64
	PbctBegnDtm    string
	PbctClsDtm     string
	CltrNm         string
}

// Validate checks the date and amount filters.
func (q ThingQuery) Validate() error {
	return errors.Join(
		validateDate("pbct_begn_dtm", q.PbctBegnDtm),
		validateDate("pbct_cls_dtm", q.PbctClsDtm),
		validateAmount("goods_price_from", q.GoodsPriceFrom),
		validateAmount("goods_price_to", q.GoodsPriceTo),
		validateAmount("open_price_from", q.OpenPriceFrom),
		validateAmount("open_price_to", q.OpenPriceTo),
	)
}

// ThingInfoURL builds the ThingInfoInquireSvc request URL.
func ThingInfoURL(endpoint, serviceKey string, pageNo, numOfRows int, q ThingQuery) string {
	return onbidURL(endpoint, serviceKey,
		queryParam{"pageNo", strconv.Itoa(pageNo)},
		queryParam{"numOfRows", strconv.Itoa(numOfRows)},
		queryParam{"DPSL_MTD_CD", q.DpslMtdCd},
		queryParam{"CTGR_HIRK_ID", q.CtgrHirkID},
		queryParam{"CTGR_HIRK_ID_MID", q.CtgrHirkIDMid},
		queryParam{"SIDO", q.Sido},
		queryParam{"SGK", q.Sgk},
		queryParam{"EMD", q.Emd},
		queryParam{"GOODS_PRICE_FROM", amountParam(q.GoodsPriceFrom)},
		queryParam{"GOODS_PRICE_TO", amountParam(q.GoodsPriceTo)},
		queryParam{"OPEN_PRICE_FROM", amountParam(q.OpenPriceFrom)},
		queryParam{"OPEN_PRICE_TO", amountParam(q.OpenPriceTo)},
		queryParam{"PBCT_BEGN_DTM", q.PbctBegnDtm},
		queryParam{"PBCT_CLS_DTM", q.PbctClsDtm},
		queryParam{"CLTR_NM", q.CltrNm},
	)
}

// AuctionQuery filters get_public_auction_items. Empty strings and zero
// amounts are left out of the request.
type AuctionQuery struct {
	CltrTypeCd       string
	PrptDivCd        string
	DspsMthodCd      string
	BidDivCd         string
	LctnSdnm         string
	LctnSggnm        string
	LctnEmdNm        string
	OpbdDtStart      string
	OpbdDtEnd        string
	ApslEvlAmtStart  int64
	ApslEvlAmtEnd    int64
	LowstBidPrcStart int64
	LowstBidPrcEnd   int64
	PbctStatCd       string
	OnbidCltrNm      string
}

// Validate checks the date and amount filters.
func (q AuctionQuery) Validate() error {
	return errors.Join(
		validateDate("opbd_dt_start", q.OpbdDtStart),
		validateDate("opbd_dt_end", q.OpbdDtEnd),
		validateAmount("apsl_evl_amt_start", q.ApslEvlAmtStart),
		validateAmount("apsl_evl_amt_end", q.ApslEvlAmtEnd),
		validateAmount("lowst_bid_prc_start", q.LowstBidPrcStart),
		validateAmount("lowst_bid_prc_end", q.LowstBidPrcEnd),
	)
}

// BidResultListURL builds the B010003 bid result list request URL.
func BidResultListURL(endpoint, serviceKey string, pageNo, numOfRows int, q AuctionQuery) string {
	return onbidURL(endpoint, serviceKey,
		queryParam{"pageNo", strconv.Itoa(pageNo)},
		queryParam{"numOfRows", strconv.Itoa(numOfRows)},
		queryParam{"resultType", "json"},
		queryParam{"cltrTypeCd", q.CltrTypeCd},
		queryParam{"prptDivCd", q.PrptDivCd},
		queryParam{"dspsMthodCd", q.DspsMthodCd},
		queryParam{"bidDivCd", q.BidDivCd},
		queryParam{"lctnSdnm", q.LctnSdnm},
		queryParam{"lctnSggnm", q.LctnSggnm},
		queryParam{"lctnEmdNm", q.LctnEmdNm},
		queryParam{"opbdDtStart", q.OpbdDtStart},
		queryParam{"opbdDtEnd", q.OpbdDtEnd},
		queryParam{"apslEvlAmtStart", amountParam(q.ApslEvlAmtStart)},
		queryParam{"apslEvlAmtEnd", amountParam(q.ApslEvlAmtEnd)},
		queryParam{"lowstBidPrcStart", amountParam(q.LowstBidPrcStart)},
		queryParam{"lowstBidPrcEnd", amountParam(q.LowstBidPrcEnd)},
		queryParam{"pbctStatCd", q.PbctStatCd},
		queryParam{"onbidCltrNm", q.OnbidCltrNm},
	)
}

// BidResultDetailURL builds the B010003 bid result detail request URL for
// one item and disposal condition.
func BidResultDetailURL(endpoint, serviceKey string, pageNo, numOfRows int, cltrMngNo, pbctCdtnNo string) string {
	return onbidURL(endpoint, serviceKey,
		queryParam{"pageNo", strconv.Itoa(pageNo)},
		queryParam{"numOfRows", strconv.Itoa(numOfRows)},
		queryParam{"resultType", "json"},
		queryParam{"cltrMngNo", cltrMngNo},
		queryParam{"pbctCdtnNo", pbctCdtnNo},
	)
}

// BidResult is the answer of the bid result tools. Items are passed
// through with their upstream field names.
type BidResult struct {
	TotalCount int              `json:"total_count"`
	Items      []map[string]any `json:"items"`
	PageNo     int              `json:"page_no"`
	NumOfRows  int              `json:"num_of_rows"`
}

// ParseBidResults maps a decoded B010003 payload. The gateway wraps the
// data.go.kr header/body pair in "response" but some deployments answer
// flat, and a single item may arrive as an object instead of a list.
func ParseBidResults(payload any, pageNo, numOfRows int) (*BidResult, error) {
	root, ok := payload.(map[string]any)
	if !ok {
		return nil, &toolerr.DecodeError{Format: "json", Err: fmt.Errorf("expected an object, got %T", payload)}
	}
	if inner, ok := root["response"].(map[string]any); ok {
		root = inner
	}
	header := objectOr(root["header"], root)
	body := objectOr(root["body"], root)

	code := scalarString(header["resultCode"])
	if code == "" {
		code = scalarString(root["resultCode"])
	}
	if code != "" && !toolerr.IsSuccessCode(code) {
		msg := strings.TrimSpace(scalarString(header["resultMsg"]))
		if msg == "" {
			msg = strings.TrimSpace(scalarString(root["resultMsg"]))
		}
		if msg == "" {
			msg = "Onbid API error"
		}
		return nil, &toolerr.ResultCodeError{Code: code, Message: msg}
	}

	return &BidResult{
		TotalCount: jsonInt(body["totalCount"], 0),
		Items:      bidItems(body["items"]),
		PageNo:     jsonInt(body["pageNo"], pageNo),
		NumOfRows:  jsonInt(body["numOfRows"], numOfRows),
	}, nil
}

func bidItems(v any) []map[string]any {
	if m, ok := v.(map[string]any); ok {
		v = m["item"]
	}
	items := []map[string]any{}
	switch t := v.(type) {
	case map[string]any:
		items = append(items, t)
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}
	return items
}

func objectOr(v any, fallback map[string]any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return fallback
}

// scalarString renders a JSON scalar; null and containers become "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func amountParam(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
