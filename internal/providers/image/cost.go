package image

import "brandstudio/internal/domain"

// Cost table keys that are not generation backends.
const (
	CostKeyRemoveBG domain.BackendID = "remove-bg"
	CostKeyFreeCut  domain.BackendID = "free-cutout"
)

// CostTable maps a backend or model id to its unit cost in USD.
type CostTable map[domain.BackendID]float64

// DefaultCostTable holds list prices per generated image or removal.
func DefaultCostTable() CostTable {
	return CostTable{
		domain.BackendQwen:   0.005,
		domain.BackendGemini: 0.04,
		CostKeyRemoveBG:      0.20,
		CostKeyFreeCut:       0,
	}
}

// Lookup returns the unit cost for id, or 0 when it is unknown.
func (t CostTable) Lookup(id domain.BackendID) float64 {
	if t == nil {
		return 0
	}
	return t[id]
}

// With returns a copy of t with id set to usd.
func (t CostTable) With(id domain.BackendID, usd float64) CostTable {
	out := make(CostTable, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[id] = usd
	return out
}
