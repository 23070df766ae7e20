package realestate

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/realestate/toolerr"
)

const thingInfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<response>
  <header><resultCode>00</resultCode><resultMsg>NORMAL SERVICE.</resultMsg></header>
  <body>
    <items>
      <item>
        <CLTR_NO>1120369</CLTR_NO>
        <PBCT_NO>9238013</PBCT_NO>
        <CLTR_NM>서울특별시 송파구 석촌동 242-15 짜투리 대지</CLTR_NM>
        <DPSL_MTD_CD>0001</DPSL_MTD_CD>
      </item>
    </items>
    <TotalCount>1</TotalCount>
  </body>
</response>`

func TestParseOnbidItems_ThingInfo(t *testing.T) {
	got, err := ParseOnbidItems(thingInfoXML, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := &OnbidResult{
		TotalCount: 1,
		Items: []map[string]string{{
			"CLTR_NO":     "1120369",
			"PBCT_NO":     "9238013",
			"CLTR_NM":     "서울특별시 송파구 석촌동 242-15 짜투리 대지",
			"DPSL_MTD_CD": "0001",
		}},
		PageNo:    1,
		NumOfRows: 10,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseOnbidItems() mismatch (-want +got):\n%s", diff)
	}
}

func TestThingInfoURL(t *testing.T) {
	got := ThingInfoURL(OnbidThingInfoURL, "k", 2, 10, ThingQuery{
		DpslMtdCd:     "0001",
		CtgrHirkIDMid: "10100",
		Sido:          "서울특별시",
		OpenPriceTo:   300000000,
		PbctClsDtm:    "20250131",
	})
	want := OnbidThingInfoURL + "?serviceKey=k&pageNo=2&numOfRows=10&DPSL_MTD_CD=0001&CTGR_HIRK_ID_MID=10100" +
		"&SIDO=" + url.QueryEscape("서울특별시") + "&OPEN_PRICE_TO=300000000&PBCT_CLS_DTM=20250131"
	if got != want {
		t.Errorf("ThingInfoURL() = %s\nwant %s", got, want)
	}
}

func TestBidResultURLs(t *testing.T) {
	list := BidResultListURL(OnbidBidResultListURL, "a+b", 1, 20, AuctionQuery{
		CltrTypeCd:      "0001",
		LctnSggnm:       "강남구",
		ApslEvlAmtStart: 100000000,
	})
	wantList := OnbidBidResultListURL + "?serviceKey=a%2Bb&pageNo=1&numOfRows=20&resultType=json&cltrTypeCd=0001" +
		"&lctnSggnm=" + url.QueryEscape("강남구") + "&apslEvlAmtStart=100000000"
	if list != wantList {
		t.Errorf("BidResultListURL() = %s\nwant %s", list, wantList)
	}

	detail := BidResultDetailURL(OnbidBidResultDetailURL, "k", 1, 20, "X-1", "2")
	wantDetail := OnbidBidResultDetailURL + "?serviceKey=k&pageNo=1&numOfRows=20&resultType=json&cltrMngNo=X-1&pbctCdtnNo=2"
	if detail != wantDetail {
		t.Errorf("BidResultDetailURL() = %s\nwant %s", detail, wantDetail)
	}
}

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"valid thing", ThingQuery{PbctBegnDtm: "20250101", GoodsPriceTo: 5}.Validate(), ""},
		{"bad thing date", ThingQuery{PbctBegnDtm: "2025-01-01"}.Validate(), "pbct_begn_dtm"},
		{"impossible date", ThingQuery{PbctClsDtm: "20250231"}.Validate(), "pbct_cls_dtm"},
		{"negative price", ThingQuery{OpenPriceFrom: -1}.Validate(), "open_price_from"},
		{"valid auction", AuctionQuery{OpbdDtEnd: "20251231"}.Validate(), ""},
		{"bad auction date", AuctionQuery{OpbdDtStart: "202501"}.Validate(), "opbd_dt_start"},
		{"negative bid", AuctionQuery{LowstBidPrcEnd: -10}.Validate(), "lowst_bid_prc_end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field == "" {
				if tt.err != nil {
					t.Fatalf("Validate() = %v, want nil", tt.err)
				}
				return
			}
			env := toolerr.Classify(tt.err)
			if env == nil || env.Kind != toolerr.KindInvalidInput {
				t.Fatalf("envelope = %+v, want invalid input", env)
			}
			if env.Details["field"] != tt.field {
				t.Errorf("field = %v, want %s", env.Details["field"], tt.field)
			}
		})
	}
}

func TestParseBidResults(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    *BidResult
	}{
		{
			name: "wrapped single item",
			payload: map[string]any{"response": map[string]any{
				"header": map[string]any{"resultCode": "00", "resultMsg": "NORMAL SERVICE"},
				"body": map[string]any{
					"pageNo": float64(1), "numOfRows": float64(20), "totalCount": float64(1),
					"items": map[string]any{"item": map[string]any{"cltrMngNo": "X", "pbctCdtnNo": "1"}},
				},
			}},
			want: &BidResult{
				TotalCount: 1,
				Items:      []map[string]any{{"cltrMngNo": "X", "pbctCdtnNo": "1"}},
				PageNo:     1,
				NumOfRows:  20,
			},
		},
		{
			name: "flat list",
			payload: map[string]any{
				"resultCode": "00",
				"totalCount": "2",
				"items":      map[string]any{"item": []any{map[string]any{"a": float64(1)}, map[string]any{"b": float64(2)}}},
			},
			want: &BidResult{
				TotalCount: 2,
				Items:      []map[string]any{{"a": float64(1)}, {"b": float64(2)}},
				PageNo:     3,
				NumOfRows:  5,
			},
		},
		{
			name: "items as list",
			payload: map[string]any{"response": map[string]any{
				"header": map[string]any{"resultCode": "000"},
				"body":   map[string]any{"items": []any{map[string]any{"id": "1"}, "junk"}},
			}},
			want: &BidResult{
				Items:     []map[string]any{{"id": "1"}},
				PageNo:    3,
				NumOfRows: 5,
			},
		},
		{
			name: "no items",
			payload: map[string]any{"response": map[string]any{
				"header": map[string]any{"resultCode": nil},
				"body":   map[string]any{},
			}},
			want: &BidResult{Items: []map[string]any{}, PageNo: 3, NumOfRows: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBidResults(tt.payload, 3, 5)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseBidResults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseBidResults_Failures(t *testing.T) {
	tests := []struct {
		name     string
		payload  any
		wantKind toolerr.Kind
		wantCode string
	}{
		{"result code", map[string]any{"response": map[string]any{
			"header": map[string]any{"resultCode": "30", "resultMsg": "SERVICE KEY IS NOT REGISTERED ERROR."},
		}}, toolerr.KindAPI, "30"},
		{"numeric code", map[string]any{"response": map[string]any{
			"header": map[string]any{"resultCode": float64(0)},
		}}, toolerr.KindAPI, "0"},
		{"not an object", []any{}, toolerr.KindParse, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBidResults(tt.payload, 1, 20)
			env := toolerr.Classify(err)
			if env == nil || env.Kind != tt.wantKind {
				t.Fatalf("envelope = %+v, want kind %v", env, tt.wantKind)
			}
			if tt.wantCode != "" && env.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", env.Code, tt.wantCode)
			}
		})
	}
}
