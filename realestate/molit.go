package realestate

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonwraymond/realestate/toolerr"
)

// MOLITBaseURL is the root of the MOLIT real transaction price services.
const MOLITBaseURL = "https://apis.data.go.kr/1613000"

// DealKind separates sales from leases.
type DealKind int

const (
	DealTrade DealKind = iota
	DealRent
)

// Dataset is one MOLIT transaction service.
type Dataset struct {
	// Tool is the MCP tool name serving the dataset.
	Tool string
	// Service is the RTMSDataSvc suffix, e.g. "AptTrade".
	Service string
	// Label is a human name used in tool descriptions.
	Label string
	Kind  DealKind
}

// The nine MOLIT datasets.
var (
	AptTrade        = Dataset{Tool: "get_apartment_trades", Service: "AptTrade", Label: "apartment sale", Kind: DealTrade}
	AptRent         = Dataset{Tool: "get_apartment_rent", Service: "AptRent", Label: "apartment lease (jeonse/wolse)", Kind: DealRent}
	OffiTrade       = Dataset{Tool: "get_officetel_trades", Service: "OffiTrade", Label: "officetel sale", Kind: DealTrade}
	OffiRent        = Dataset{Tool: "get_officetel_rent", Service: "OffiRent", Label: "officetel lease", Kind: DealRent}
	VillaTrade      = Dataset{Tool: "get_villa_trades", Service: "RHTrade", Label: "row house and multi-family (villa) sale", Kind: DealTrade}
	VillaRent       = Dataset{Tool: "get_villa_rent", Service: "RHRent", Label: "row house and multi-family (villa) lease", Kind: DealRent}
	SingleTrade     = Dataset{Tool: "get_single_house_trades", Service: "SHTrade", Label: "detached and multi-unit house sale", Kind: DealTrade}
	SingleRent      = Dataset{Tool: "get_single_house_rent", Service: "SHRent", Label: "detached and multi-unit house lease", Kind: DealRent}
	CommercialTrade = Dataset{Tool: "get_commercial_trade", Service: "NrgTrade", Label: "commercial and business building sale", Kind: DealTrade}
)

// Datasets lists every MOLIT dataset in tool registration order.
var Datasets = []Dataset{
	AptTrade, AptRent,
	OffiTrade, OffiRent,
	VillaTrade, VillaRent,
	SingleTrade, SingleRent,
	CommercialTrade,
}

// Endpoint returns the service URL without query.
func (d Dataset) Endpoint(base string) string {
	return fmt.Sprintf("%s/RTMSDataSvc%s/getRTMSDataSvc%s", strings.TrimRight(base, "/"), d.Service, d.Service)
}

// URL builds the request URL. The key is escaped by hand and placed first
// because data.go.kr rejects keys that are encoded twice.
func (d Dataset) URL(base, serviceKey, lawdCode, yearMonth string, numOfRows int) string {
	return fmt.Sprintf("%s?serviceKey=%s&LAWD_CD=%s&DEAL_YMD=%s&numOfRows=%d&pageNo=1",
		d.Endpoint(base), url.QueryEscape(serviceKey), lawdCode, yearMonth, numOfRows)
}

// molitResponse covers both the normal envelope and the gateway error
// envelope data.go.kr returns for key problems.
type molitResponse struct {
	Header struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Gateway struct {
		ErrMsg           string `xml:"errMsg"`
		ReturnAuthMsg    string `xml:"returnAuthMsg"`
		ReturnReasonCode string `xml:"returnReasonCode"`
	} `xml:"cmmMsgHeader"`
	Body struct {
		Items      []molitItem `xml:"items>item"`
		TotalCount string      `xml:"totalCount"`
	} `xml:"body"`
}

type molitItem struct {
	AptNm            string `xml:"aptNm"`
	OffiNm           string `xml:"offiNm"`
	MhouseNm         string `xml:"mhouseNm"`
	UmdNm            string `xml:"umdNm"`
	HouseType        string `xml:"houseType"`
	ExcluUseAr       string `xml:"excluUseAr"`
	TotalFloorAr     string `xml:"totalFloorAr"`
	BuildingAr       string `xml:"buildingAr"`
	BuildingType     string `xml:"buildingType"`
	BuildingUse      string `xml:"buildingUse"`
	LandUse          string `xml:"landUse"`
	Floor            string `xml:"floor"`
	DealAmount       string `xml:"dealAmount"`
	Deposit          string `xml:"deposit"`
	MonthlyRent      string `xml:"monthlyRent"`
	ContractType     string `xml:"contractType"`
	DealYear         string `xml:"dealYear"`
	DealMonth        string `xml:"dealMonth"`
	DealDay          string `xml:"dealDay"`
	BuildYear        string `xml:"buildYear"`
	DealingGbn       string `xml:"dealingGbn"`
	CdealType        string `xml:"cdealType"`
	CdealTypeLower   string `xml:"cdealtype"`
	ShareDealingType string `xml:"shareDealingType"`
}

func (it molitItem) cancelled() bool {
	return strings.TrimSpace(it.CdealType) == "O" || strings.TrimSpace(it.CdealTypeLower) == "O"
}

func (it molitItem) date() string {
	year := strings.TrimSpace(it.DealYear)
	if year == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", year, zeroPad(it.DealMonth), zeroPad(it.DealDay))
}

// decodeMOLIT parses body and turns in-band failures into errors.
func decodeMOLIT(body string) (*molitResponse, error) {
	var resp molitResponse
	if err := xml.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &toolerr.DecodeError{Format: "xml", Err: err}
	}
	if code := strings.TrimSpace(resp.Gateway.ReturnReasonCode); code != "" {
		msg := strings.TrimSpace(resp.Gateway.ReturnAuthMsg)
		if msg == "" {
			msg = strings.TrimSpace(resp.Gateway.ErrMsg)
		}
		return nil, &toolerr.ResultCodeError{Code: code, Message: msg}
	}

	code := strings.TrimSpace(resp.Header.ResultCode)
	if code == "" {
		return nil, &toolerr.DecodeError{Format: "xml", Err: errors.New("response has no resultCode")}
	}
	if !toolerr.IsSuccessCode(code) {
		return nil, &toolerr.ResultCodeError{Code: code, Message: strings.TrimSpace(resp.Header.ResultMsg)}
	}
	return &resp, nil
}

func (r *molitResponse) totalCount(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.Body.TotalCount))
	if err != nil {
		return fallback
	}
	return n
}

func parseAmount(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	return n, err == nil
}

func parseFloat(raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func zeroPad(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return strings.Repeat("0", 2-len(raw)) + raw
	}
	return raw
}
