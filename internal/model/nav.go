package model

// FundNAV is one net asset value record of a fund
type FundNAV struct {
	TSCode        string   `json:"ts_code"`
	AnnDate       string   `json:"ann_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	UnitNAV       *float64 `json:"unit_nav"`
	AccumNAV      *float64 `json:"accum_nav"`
	NetAsset      *float64 `json:"net_asset"`
	TotalNetAsset *float64 `json:"total_net_asset"`
	AdjNAV        *float64 `json:"adj_nav"`
	Date          string   `json:"date,omitempty"`
}

// NAVDate returns the date a record is ordered by: the announcement date,
// falling back to the period end date
func (n FundNAV) NAVDate() string {
	if n.AnnDate != "" {
		return n.AnnDate
	}
	return n.EndDate
}

// ValueDate is the date the NAV value refers to
func (n FundNAV) ValueDate() string {
	if n.EndDate != "" {
		return n.EndDate
	}
	return n.AnnDate
}

// Price returns the adjusted NAV when available, else the unit NAV
func (n FundNAV) Price() (float64, bool) {
	if n.AdjNAV != nil && *n.AdjNAV > 0 {
		return *n.AdjNAV, true
	}
	if n.UnitNAV != nil && *n.UnitNAV > 0 {
		return *n.UnitNAV, true
	}
	return 0, false
}

// NAVResponse is the JSON payload of GET /api/etf-nav
type NAVResponse struct {
	Success bool      `json:"success"`
	Data    []FundNAV `json:"data"`
	Count   int       `json:"count"`
}
