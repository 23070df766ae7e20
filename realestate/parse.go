package realestate

import (
	"sort"
	"strings"
)

// ParseAptTrades parses an AptTrade body.
func ParseAptTrades(body string) (*TradeResult[AptTradeItem], error) {
	return parseTrades(body, func(it molitItem, price int) AptTradeItem {
		return AptTradeItem{
			AptName:   strings.TrimSpace(it.AptNm),
			Dong:      strings.TrimSpace(it.UmdNm),
			AreaSqm:   parseFloat(it.ExcluUseAr),
			Floor:     parseInt(it.Floor),
			Price10k:  price,
			TradeDate: it.date(),
			BuildYear: parseInt(it.BuildYear),
			DealType:  strings.TrimSpace(it.DealingGbn),
		}
	})
}

// ParseUnitTrades parses an OffiTrade, RHTrade or SHTrade body.
func ParseUnitTrades(d Dataset, body string) (*TradeResult[UnitTradeItem], error) {
	return parseTrades(body, func(it molitItem, price int) UnitTradeItem {
		return UnitTradeItem{
			UnitName:  unitName(d, it),
			HouseType: strings.TrimSpace(it.HouseType),
			Dong:      strings.TrimSpace(it.UmdNm),
			AreaSqm:   area(d, it),
			Floor:     parseInt(it.Floor),
			Price10k:  price,
			TradeDate: it.date(),
			BuildYear: parseInt(it.BuildYear),
			DealType:  strings.TrimSpace(it.DealingGbn),
		}
	})
}

// ParseCommercialTrades parses an NrgTrade body.
func ParseCommercialTrades(body string) (*TradeResult[CommercialTradeItem], error) {
	return parseTrades(body, func(it molitItem, price int) CommercialTradeItem {
		return CommercialTradeItem{
			BuildingType: strings.TrimSpace(it.BuildingType),
			BuildingUse:  strings.TrimSpace(it.BuildingUse),
			LandUse:      strings.TrimSpace(it.LandUse),
			Dong:         strings.TrimSpace(it.UmdNm),
			BuildingAr:   parseFloat(it.BuildingAr),
			Floor:        parseInt(it.Floor),
			Price10k:     price,
			TradeDate:    it.date(),
			BuildYear:    parseInt(it.BuildYear),
			DealType:     strings.TrimSpace(it.DealingGbn),
			ShareDealing: strings.TrimSpace(it.ShareDealingType),
		}
	})
}

// ParseRents parses any of the four lease bodies.
func ParseRents(d Dataset, body string) (*RentResult, error) {
	resp, err := decodeMOLIT(body)
	if err != nil {
		return nil, err
	}

	items := make([]RentItem, 0, len(resp.Body.Items))
	for _, it := range resp.Body.Items {
		if it.cancelled() {
			continue
		}
		deposit, ok := parseAmount(it.Deposit)
		if !ok {
			continue
		}
		monthly, _ := parseAmount(it.MonthlyRent)
		items = append(items, RentItem{
			UnitName:       unitName(d, it),
			HouseType:      strings.TrimSpace(it.HouseType),
			Dong:           strings.TrimSpace(it.UmdNm),
			AreaSqm:        area(d, it),
			Floor:          parseInt(it.Floor),
			Deposit10k:     deposit,
			MonthlyRent10k: monthly,
			ContractType:   strings.TrimSpace(it.ContractType),
			TradeDate:      it.date(),
			BuildYear:      parseInt(it.BuildYear),
		})
	}

	return &RentResult{
		TotalCount: resp.totalCount(len(items)),
		Items:      items,
		Summary:    SummarizeRents(items),
	}, nil
}

func parseTrades[T any](body string, build func(molitItem, int) T) (*TradeResult[T], error) {
	resp, err := decodeMOLIT(body)
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, len(resp.Body.Items))
	prices := make([]int, 0, len(resp.Body.Items))
	for _, it := range resp.Body.Items {
		if it.cancelled() {
			continue
		}
		price, ok := parseAmount(it.DealAmount)
		if !ok {
			continue
		}
		items = append(items, build(it, price))
		prices = append(prices, price)
	}

	return &TradeResult[T]{
		TotalCount: resp.totalCount(len(items)),
		Items:      items,
		Summary:    SummarizePrices(prices),
	}, nil
}

// unitName picks the complex name column of the dataset. Detached houses
// have none.
func unitName(d Dataset, it molitItem) string {
	switch d.Service {
	case AptTrade.Service, AptRent.Service:
		return strings.TrimSpace(it.AptNm)
	case OffiTrade.Service, OffiRent.Service:
		return strings.TrimSpace(it.OffiNm)
	case VillaTrade.Service, VillaRent.Service:
		return strings.TrimSpace(it.MhouseNm)
	default:
		return ""
	}
}

// area is the exclusive area, or the total floor area for detached houses.
func area(d Dataset, it molitItem) float64 {
	if d.Service == SingleTrade.Service || d.Service == SingleRent.Service {
		return parseFloat(it.TotalFloorAr)
	}
	return parseFloat(it.ExcluUseAr)
}

// SummarizePrices computes median, min and max. The median of an even
// count is the mean of the middle pair truncated toward zero.
func SummarizePrices(prices []int) TradeSummary {
	if len(prices) == 0 {
		return TradeSummary{}
	}
	sorted := sortedCopy(prices)
	return TradeSummary{
		MedianPrice10k: median(sorted),
		MinPrice10k:    sorted[0],
		MaxPrice10k:    sorted[len(sorted)-1],
		SampleCount:    len(sorted),
	}
}

// SummarizeRents computes deposit statistics and the mean monthly rent.
func SummarizeRents(items []RentItem) RentSummary {
	if len(items) == 0 {
		return RentSummary{}
	}
	deposits := make([]int, len(items))
	rentTotal := 0
	for i, it := range items {
		deposits[i] = it.Deposit10k
		rentTotal += it.MonthlyRent10k
	}
	sorted := sortedCopy(deposits)
	return RentSummary{
		MedianDeposit10k:  median(sorted),
		MinDeposit10k:     sorted[0],
		MaxDeposit10k:     sorted[len(sorted)-1],
		MonthlyRentAvg10k: rentTotal / len(items),
		SampleCount:       len(items),
	}
}

func sortedCopy(v []int) []int {
	out := append([]int(nil), v...)
	sort.Ints(out)
	return out
}

func median(sorted []int) int {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return int(float64(sorted[n/2-1]+sorted[n/2]) / 2)
}
