package toolerr

// resultCode describes one data.go.kr result code.
type resultCode struct {
	message    string
	suggestion string
}

// data.go.kr OpenAPI result codes. Success is "00" or "000".
var resultCodes = map[string]resultCode{
	"01": {"Upstream application error.", "Retry later. The upstream service reported an internal error."},
	"02": {"Upstream database error.", "Retry later. The upstream service reported a database error."},
	"03": {"No trade records found for the specified region and period.", "Try a different month or a neighbouring region."},
	"04": {"Upstream HTTP error.", "Retry later."},
	"05": {"Upstream service timed out.", "Retry later."},
	"10": {"Invalid API request parameters.", "Check region_code (5 digits) and year_month (YYYYMM)."},
	"11": {"A mandatory request parameter is missing.", "Check that all required parameters are provided."},
	"12": {"The requested OpenAPI service does not exist or was withdrawn.", "Check the endpoint configuration."},
	"20": {"Access to this API service is denied.", "Apply for access to this API on data.go.kr."},
	"22": {"Daily API request limit exceeded.", "Wait until tomorrow or request a higher quota on data.go.kr."},
	"30": {"Unregistered API key.", "Check DATA_GO_KR_API_KEY; use the decoded service key issued by data.go.kr."},
	"31": {"API key has expired.", "Renew the API key on data.go.kr."},
	"32": {"Request from an unregistered IP address.", "Register this server's IP address on data.go.kr."},
	"99": {"Unknown upstream error.", "Retry later."},
}

// IsSuccessCode reports whether code means success.
func IsSuccessCode(code string) bool {
	return code == "00" || code == "000"
}

// APIResult builds the api_error envelope for an in-band result code.
// upstreamMsg is used when the code is not in the table.
func APIResult(code, upstreamMsg string) *Envelope {
	if rc, ok := resultCodes[code]; ok {
		env := APIError(code, rc.message, rc.suggestion)
		if upstreamMsg != "" {
			env = env.WithDetail("upstream_message", upstreamMsg)
		}
		return env
	}
	msg := upstreamMsg
	if msg == "" {
		msg = "API error code: " + code
	}
	return APIError(code, msg, "")
}
