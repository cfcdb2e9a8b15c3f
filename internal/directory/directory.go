// Package directory carries the built-in catalog of fictional companies.
// The catalog only supplies display names and sector labels; synthesis never
// reads it, so tickers outside the catalog still generate series and simply
// fall back to the raw ticker as their display name.
package directory

import (
	"sort"
	"strings"

	"github.com/syntick/syntick/pkg/utils"
)

// Sector labels used by the catalog.
const (
	SectorTechnology = "Technology"
	SectorFinancials = "Financials"
	SectorHealthcare = "Healthcare"
	SectorEnergy     = "Energy"
	SectorConsumer   = "Consumer"
	SectorIndustrial = "Industrials"
)

// Company is one catalog entry.
type Company struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// catalog is the built-in universe. Every entry is fictional.
var catalog = []Company{
	{"ARQT", "Arqtra Systems", SectorTechnology},
	{"NLMN", "Neulumen Labs", SectorTechnology},
	{"VEXA", "Vexa Microdevices", SectorTechnology},
	{"OCTV", "Octavine Software", SectorTechnology},
	{"DRFT", "Driftline Networks", SectorTechnology},
	{"QNTF", "Quantaforge Computing", SectorTechnology},

	{"KSTL", "Kestrel Capital Group", SectorFinancials},
	{"MRDN", "Meridian Bancshares", SectorFinancials},
	{"HRBR", "Harborline Trust", SectorFinancials},
	{"APXN", "Apexon Insurance", SectorFinancials},
	{"LDGR", "Ledgerstone Partners", SectorFinancials},

	{"CURO", "Curonix Therapeutics", SectorHealthcare},
	{"VYTL", "Vytalis Biosciences", SectorHealthcare},
	{"GNMD", "Genomadic Health", SectorHealthcare},
	{"SRGX", "Surgix Medical", SectorHealthcare},

	{"HLIO", "Heliodyne Power", SectorEnergy},
	{"TDLW", "Tidalworks Energy", SectorEnergy},
	{"PTRC", "Petracore Resources", SectorEnergy},
	{"VLTK", "Voltaik Grid", SectorEnergy},

	{"LMNS", "Luminis Retail Group", SectorConsumer},
	{"FZZW", "Fizzworks Beverage", SectorConsumer},
	{"ORCH", "Orchard & Vale", SectorConsumer},
	{"SWFT", "Swiftcart Commerce", SectorConsumer},
	{"BRST", "Burrow & Stone Outfitters", SectorConsumer},

	{"FRGE", "Forgeline Industries", SectorIndustrial},
	{"STRF", "Stratus Freight", SectorIndustrial},
	{"BLDN", "Boulder Dynamics", SectorIndustrial},
	{"AERM", "Aeromach Holdings", SectorIndustrial},
}

// Directory answers ticker lookups and name searches over the catalog.
type Directory struct {
	companies []Company
	byTicker  map[string]Company
}

// New builds a Directory over the built-in catalog, sorted by ticker.
func New() *Directory {
	companies := make([]Company, len(catalog))
	copy(companies, catalog)
	sort.Slice(companies, func(i, j int) bool {
		return companies[i].Ticker < companies[j].Ticker
	})

	byTicker := make(map[string]Company, len(companies))
	for _, c := range companies {
		byTicker[c.Ticker] = c
	}
	return &Directory{companies: companies, byTicker: byTicker}
}

// Lookup resolves a ticker to its catalog entry. The input is normalized the
// same way the engine normalizes tickers, so "nlmn.nasdaq" finds NLMN.
func (d *Directory) Lookup(ticker string) (Company, bool) {
	c, ok := d.byTicker[utils.NormalizeTicker(ticker)]
	return c, ok
}

// DisplayName returns the catalog name for a ticker, or the normalized
// ticker itself when the catalog has no entry.
func (d *Directory) DisplayName(ticker string) string {
	normalized := utils.NormalizeTicker(ticker)
	if c, ok := d.byTicker[normalized]; ok {
		return c.Name
	}
	return normalized
}

// Search returns companies matching the query, ticker-prefix matches first,
// then name substring matches, each group in ticker order. An empty query
// returns the whole catalog. A non-positive limit means no limit.
func (d *Directory) Search(query string, limit int) []Company {
	query = strings.TrimSpace(query)
	if query == "" {
		return truncate(d.All(), limit)
	}

	upper := strings.ToUpper(query)
	lower := strings.ToLower(query)

	var prefix, name []Company
	for _, c := range d.companies {
		switch {
		case strings.HasPrefix(c.Ticker, upper):
			prefix = append(prefix, c)
		case strings.Contains(strings.ToLower(c.Name), lower):
			name = append(name, c)
		}
	}
	return truncate(append(prefix, name...), limit)
}

// All returns a copy of the catalog in ticker order.
func (d *Directory) All() []Company {
	out := make([]Company, len(d.companies))
	copy(out, d.companies)
	return out
}

// Sectors lists the distinct sector labels present in the catalog, sorted.
func (d *Directory) Sectors() []string {
	seen := make(map[string]bool)
	var sectors []string
	for _, c := range d.companies {
		if !seen[c.Sector] {
			seen[c.Sector] = true
			sectors = append(sectors, c.Sector)
		}
	}
	sort.Strings(sectors)
	return sectors
}

func truncate(companies []Company, limit int) []Company {
	if limit > 0 && len(companies) > limit {
		return companies[:limit]
	}
	return companies
}
