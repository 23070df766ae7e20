package realestate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonwraymond/realestate/config"
	"github.com/jonwraymond/realestate/observe"
	"github.com/jonwraymond/realestate/toolerr"
)

// Fetcher is the resilient fetch pipeline as seen by the tools.
type Fetcher interface {
	FetchXML(ctx context.Context, url string) (string, *toolerr.Envelope)
	FetchJSON(ctx context.Context, url string, headers map[string]string) (any, *toolerr.Envelope)
	Forget(ctx context.Context, url string)
}

// KeySource hands out API keys per family. *config.Config implements it.
type KeySource interface {
	MOLITKey() (string, error)
	OnbidKey() (string, error)
	OdcloudKey() (config.OdcloudAuth, error)
}

// Service implements the tool operations on top of a Fetcher. Every method
// returns exactly one of a result or an envelope.
type Service struct {
	fetcher Fetcher
	keys    KeySource
	regions *Regions
	logger  observe.Logger
	now     func() time.Time

	molitBase        string
	onbidBase        string
	subscriptionBase string

	thingInfoURL       string
	bidResultListURL   string
	bidResultDetailURL string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRegions replaces the embedded region table.
func WithRegions(r *Regions) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.regions = r
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l observe.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNow sets the clock used to reject future periods.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithBaseURLs points the three API families somewhere else. Empty values
// keep the defaults.
func WithBaseURLs(molit, onbid, subscription string) ServiceOption {
	return func(s *Service) {
		if molit != "" {
			s.molitBase = molit
		}
		if onbid != "" {
			s.onbidBase = onbid
		}
		if subscription != "" {
			s.subscriptionBase = subscription
		}
	}
}

// NewService creates a Service.
func NewService(fetcher Fetcher, keys KeySource, opts ...ServiceOption) *Service {
	s := &Service{
		fetcher:          fetcher,
		keys:             keys,
		regions:          DefaultRegions(),
		logger:           observe.NopLogger(),
		now:              time.Now,
		molitBase:        MOLITBaseURL,
		onbidBase:        OnbidCodeBaseURL,
		subscriptionBase: SubscriptionInfoURL,

		thingInfoURL:       OnbidThingInfoURL,
		bidResultListURL:   OnbidBidResultListURL,
		bidResultDetailURL: OnbidBidResultDetailURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Regions returns the region table in use.
func (s *Service) Regions() *Regions {
	return s.regions
}

// RegionCode resolves a free text district name.
func (s *Service) RegionCode(ctx context.Context, query string) (*RegionResult, *toolerr.Envelope) {
	res, err := s.regions.Search(query)
	if err != nil {
		return nil, toolerr.Classify(err)
	}
	s.logger.Debug(ctx, "region resolved",
		observe.F("region_code", res.RegionCode),
		observe.F("matches", len(res.Matches)),
	)
	return res, nil
}

// Transactions fetches one month of a MOLIT dataset for one district.
func (s *Service) Transactions(ctx context.Context, d Dataset, regionCode, yearMonth string, numOfRows int) (any, *toolerr.Envelope) {
	if err := errors.Join(
		ValidateLAWDCode(s.regions, regionCode),
		ValidateYearMonth(yearMonth, s.now()),
		ValidateNumOfRows(numOfRows),
	); err != nil {
		return nil, toolerr.Classify(err)
	}

	key, err := s.keys.MOLITKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}

	url := d.URL(s.molitBase, key, regionCode, yearMonth, numOfRows)
	body, env := s.fetcher.FetchXML(ctx, url)
	if env != nil {
		return nil, env
	}

	var result any
	switch {
	case d.Kind == DealRent:
		result, err = ParseRents(d, body)
	case d.Service == AptTrade.Service:
		result, err = ParseAptTrades(body)
	case d.Service == CommercialTrade.Service:
		result, err = ParseCommercialTrades(body)
	default:
		result, err = ParseUnitTrades(d, body)
	}
	if err != nil {
		return nil, s.inBandFailure(ctx, url, err)
	}
	return result, nil
}

// SubscriptionInfo fetches a page of Applyhome subscription notices.
func (s *Service) SubscriptionInfo(ctx context.Context, page, perPage int) (*SubscriptionResult, *toolerr.Envelope) {
	if err := errors.Join(ValidatePage("page", page), ValidatePage("per_page", perPage)); err != nil {
		return nil, toolerr.Classify(err)
	}

	auth, err := s.keys.OdcloudKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}

	var headers map[string]string
	queryKey := auth.Key
	if auth.Header {
		headers = map[string]string{"Authorization": "Infuser " + auth.Key}
		queryKey = ""
	}

	url := SubscriptionURL(s.subscriptionBase, page, perPage, queryKey)
	payload, env := s.fetcher.FetchJSON(ctx, url, headers)
	if env != nil {
		return nil, env
	}

	res, err := ParseSubscription(payload, page, perPage)
	if err != nil {
		return nil, s.inBandFailure(ctx, url, err)
	}
	return res, nil
}

// OnbidCodes fetches one level of the Onbid category or address tree.
// parent is required below the top levels (CTGR_ID for categories, the
// ADDR value of the level above for addresses) and ignored otherwise.
func (s *Service) OnbidCodes(ctx context.Context, level OnbidLevel, parent string, pageNo, numOfRows int) (*OnbidResult, *toolerr.Envelope) {
	parent = strings.TrimSpace(parent)
	checks := []error{ValidatePage("page_no", pageNo), ValidatePage("num_of_rows", numOfRows)}
	if p, ok := onbidParents[level]; ok {
		checks = append(checks, ValidateRequired(p.field, parent, p.example))
	} else {
		parent = ""
	}
	if err := errors.Join(checks...); err != nil {
		return nil, toolerr.Classify(err)
	}

	key, err := s.keys.OnbidKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}
	return s.onbidItems(ctx, OnbidURL(s.onbidBase, level, key, pageNo, numOfRows, parent), pageNo, numOfRows)
}

// ThingInfoList searches Onbid auction items through ThingInfoInquireSvc.
func (s *Service) ThingInfoList(ctx context.Context, pageNo, numOfRows int, q ThingQuery) (*OnbidResult, *toolerr.Envelope) {
	if err := errors.Join(
		ValidatePage("page_no", pageNo),
		ValidatePage("num_of_rows", numOfRows),
		q.Validate(),
	); err != nil {
		return nil, toolerr.Classify(err)
	}

	key, err := s.keys.OnbidKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}
	return s.onbidItems(ctx, ThingInfoURL(s.thingInfoURL, key, pageNo, numOfRows, q), pageNo, numOfRows)
}

// AuctionItems lists public auction bid results.
func (s *Service) AuctionItems(ctx context.Context, pageNo, numOfRows int, q AuctionQuery) (*BidResult, *toolerr.Envelope) {
	if err := errors.Join(
		ValidatePage("page_no", pageNo),
		ValidatePage("num_of_rows", numOfRows),
		q.Validate(),
	); err != nil {
		return nil, toolerr.Classify(err)
	}

	key, err := s.keys.OnbidKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}
	return s.bidResults(ctx, BidResultListURL(s.bidResultListURL, key, pageNo, numOfRows, q), pageNo, numOfRows)
}

// AuctionItemDetail fetches the bid results of one item under one
// disposal condition.
func (s *Service) AuctionItemDetail(ctx context.Context, cltrMngNo, pbctCdtnNo string, pageNo, numOfRows int) (*BidResult, *toolerr.Envelope) {
	cltrMngNo = strings.TrimSpace(cltrMngNo)
	pbctCdtnNo = strings.TrimSpace(pbctCdtnNo)
	if err := errors.Join(
		ValidateRequired("cltr_mng_no", cltrMngNo, "1111000001"),
		ValidateRequired("pbct_cdtn_no", pbctCdtnNo, "1"),
		ValidatePage("page_no", pageNo),
		ValidatePage("num_of_rows", numOfRows),
	); err != nil {
		return nil, toolerr.Classify(err)
	}

	key, err := s.keys.OnbidKey()
	if err != nil {
		return nil, toolerr.Classify(err)
	}
	url := BidResultDetailURL(s.bidResultDetailURL, key, pageNo, numOfRows, cltrMngNo, pbctCdtnNo)
	return s.bidResults(ctx, url, pageNo, numOfRows)
}

func (s *Service) onbidItems(ctx context.Context, url string, pageNo, numOfRows int) (*OnbidResult, *toolerr.Envelope) {
	body, env := s.fetcher.FetchXML(ctx, url)
	if env != nil {
		return nil, env
	}
	res, err := ParseOnbidItems(body, pageNo, numOfRows)
	if err != nil {
		return nil, s.inBandFailure(ctx, url, err)
	}
	return res, nil
}

func (s *Service) bidResults(ctx context.Context, url string, pageNo, numOfRows int) (*BidResult, *toolerr.Envelope) {
	payload, env := s.fetcher.FetchJSON(ctx, url, nil)
	if env != nil {
		return nil, env
	}
	res, err := ParseBidResults(payload, pageNo, numOfRows)
	if err != nil {
		return nil, s.inBandFailure(ctx, url, err)
	}
	return res, nil
}

// inBandFailure classifies a parse or result code failure of a body the
// pipeline already cached, and drops that body so the next call asks the
// upstream again.
func (s *Service) inBandFailure(ctx context.Context, url string, err error) *toolerr.Envelope {
	s.fetcher.Forget(ctx, url)
	env := toolerr.Classify(err)
	s.logger.Warn(ctx, "upstream answered with an error",
		observe.F("url", observe.RedactURL(url)),
		observe.F("kind", env.KindName()),
		observe.F("code", env.Code),
	)
	return env
}
