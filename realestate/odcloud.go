package realestate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonwraymond/realestate/toolerr"
)

// SubscriptionInfoURL is the Applyhome subscription notice dataset on
// odcloud.
const SubscriptionInfoURL = "https://api.odcloud.kr/api/15101046/v1/uddi:14a46595-03dd-47d3-a418-d64e52820598"

// SubscriptionResult is the answer of get_apt_subscription_info. Items are
// passed through as published.
type SubscriptionResult struct {
	TotalCount   int   `json:"total_count"`
	MatchCount   int   `json:"match_count"`
	CurrentCount int   `json:"current_count"`
	Page         int   `json:"page"`
	PerPage      int   `json:"per_page"`
	Items        []any `json:"items"`
}

// SubscriptionURL builds the request URL. serviceKey is empty when the key
// travels in the Authorization header.
func SubscriptionURL(base string, page, perPage int, serviceKey string) string {
	u := fmt.Sprintf("%s?page=%d&perPage=%d", base, page, perPage)
	if serviceKey != "" {
		u += "&serviceKey=" + url.QueryEscape(serviceKey)
	}
	return u
}

// ParseSubscription maps a decoded odcloud payload. odcloud reports
// failures as {"code": <negative>, "msg": ...} with HTTP 200 in some
// gateway configurations.
func ParseSubscription(payload any, page, perPage int) (*SubscriptionResult, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return nil, &toolerr.DecodeError{Format: "json", Err: fmt.Errorf("expected an object, got %T", payload)}
	}

	if _, hasData := m["data"]; !hasData {
		if code, ok := m["code"]; ok {
			msg, _ := m["msg"].(string)
			return nil, &toolerr.ResultCodeError{Code: fmt.Sprint(code), Message: strings.TrimSpace(msg)}
		}
	}

	items, _ := m["data"].([]any)
	if items == nil {
		items = []any{}
	}
	return &SubscriptionResult{
		TotalCount:   jsonInt(m["totalCount"], len(items)),
		MatchCount:   jsonInt(m["matchCount"], len(items)),
		CurrentCount: jsonInt(m["currentCount"], len(items)),
		Page:         jsonInt(m["page"], page),
		PerPage:      jsonInt(m["perPage"], perPage),
		Items:        items,
	}, nil
}

// jsonInt reads a JSON number, or a numeric string as some data.go.kr
// gateways send.
func jsonInt(v any, fallback int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return fallback
}
