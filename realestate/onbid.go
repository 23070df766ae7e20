package realestate

import (
	"encoding/xml"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonwraymond/realestate/toolerr"
)

// OnbidCodeBaseURL is the root of the Onbid category and address code
// service.
const OnbidCodeBaseURL = "http://openapi.onbid.co.kr/openapi/services/OnbidCodeInfoInquireSvc"

// OnbidLevel selects one operation of the code service.
type OnbidLevel string

const (
	OnbidTop    OnbidLevel = "getOnbidTopCodeInfo"
	OnbidMiddle OnbidLevel = "getOnbidMiddleCodeInfo"
	OnbidBottom OnbidLevel = "getOnbidBottomCodeInfo"

	OnbidAddr1   OnbidLevel = "getOnbidAddr1Info"
	OnbidAddr2   OnbidLevel = "getOnbidAddr2Info"
	OnbidAddr3   OnbidLevel = "getOnbidAddr3Info"
	OnbidDtlAddr OnbidLevel = "getOnbidDtlAddrInfo"
)

// onbidParent describes the parent value a level is queried under.
type onbidParent struct {
	param   string // upstream query parameter
	field   string // tool argument named in input errors
	example string
}

var onbidParents = map[OnbidLevel]onbidParent{
	OnbidMiddle:  {"CTGR_ID", "ctgr_id", "10000"},
	OnbidBottom:  {"CTGR_ID", "ctgr_id", "10100"},
	OnbidAddr2:   {"ADDR1", "addr1", "서울특별시"},
	OnbidAddr3:   {"ADDR2", "addr2", "마포구"},
	OnbidDtlAddr: {"ADDR3", "addr3", "상수동"},
}

// onbidSuccess is the only result code the Onbid XML services use for
// success.
const onbidSuccess = "00"

// OnbidResult is the answer of the Onbid code, address and item list
// tools. Items keep the raw upstream tag names such as CTGR_ID or CLTR_NM.
type OnbidResult struct {
	TotalCount int                 `json:"total_count"`
	Items      []map[string]string `json:"items"`
	PageNo     int                 `json:"page_no"`
	NumOfRows  int                 `json:"num_of_rows"`
}

type queryParam struct {
	key   string
	value string
}

// onbidURL appends serviceKey and every non-empty parameter to endpoint,
// in order.
func onbidURL(endpoint, serviceKey string, params ...queryParam) string {
	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString("?serviceKey=")
	b.WriteString(url.QueryEscape(serviceKey))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		b.WriteByte('&')
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// OnbidURL builds the request URL of a code service level. parent is
// omitted for the top and first address levels.
func OnbidURL(base string, level OnbidLevel, serviceKey string, pageNo, numOfRows int, parent string) string {
	params := []queryParam{
		{"pageNo", strconv.Itoa(pageNo)},
		{"numOfRows", strconv.Itoa(numOfRows)},
	}
	if p, ok := onbidParents[level]; ok {
		params = append(params, queryParam{p.param, parent})
	}
	return onbidURL(strings.TrimRight(base, "/")+"/"+string(level), serviceKey, params...)
}

type onbidField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type onbidItem struct {
	Fields []onbidField `xml:",any"`
}

type onbidResponse struct {
	Header struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Gateway struct {
		ReturnAuthMsg    string `xml:"returnAuthMsg"`
		ReturnReasonCode string `xml:"returnReasonCode"`
	} `xml:"cmmMsgHeader"`
	Body struct {
		Items           []onbidItem `xml:"items>item"`
		TotalCountUpper string      `xml:"TotalCount"`
		TotalCount      string      `xml:"totalCount"`
		TotalCountLower string      `xml:"totalcount"`
	} `xml:"body"`
}

// ParseOnbidItems parses an Onbid XML body whose items are flat tag to
// text records. It serves the code, address and item list services.
func ParseOnbidItems(body string, pageNo, numOfRows int) (*OnbidResult, error) {
	var resp onbidResponse
	if err := xml.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &toolerr.DecodeError{Format: "xml", Err: err}
	}
	if code := strings.TrimSpace(resp.Gateway.ReturnReasonCode); code != "" {
		return nil, &toolerr.ResultCodeError{Code: code, Message: strings.TrimSpace(resp.Gateway.ReturnAuthMsg)}
	}

	code := strings.TrimSpace(resp.Header.ResultCode)
	if code == "" {
		return nil, &toolerr.DecodeError{Format: "xml", Err: errors.New("response has no resultCode")}
	}
	if code != onbidSuccess {
		msg := strings.TrimSpace(resp.Header.ResultMsg)
		if msg == "" {
			msg = "Onbid API error"
		}
		return nil, &toolerr.ResultCodeError{Code: code, Message: msg}
	}

	items := make([]map[string]string, 0, len(resp.Body.Items))
	for _, it := range resp.Body.Items {
		m := make(map[string]string, len(it.Fields))
		for _, f := range it.Fields {
			m[f.XMLName.Local] = strings.TrimSpace(f.Value)
		}
		items = append(items, m)
	}

	total := len(items)
	for _, raw := range []string{resp.Body.TotalCountUpper, resp.Body.TotalCount, resp.Body.TotalCountLower} {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			total = n
			break
		}
	}

	return &OnbidResult{
		TotalCount: total,
		Items:      items,
		PageNo:     pageNo,
		NumOfRows:  numOfRows,
	}, nil
}
