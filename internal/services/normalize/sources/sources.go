// Package sources declares the mapping specs for every bronze source the
// lake ingests. A new source is a new spec here, not new pipeline code
package sources

import (
	"ratelake/internal/core/productmap"
	"ratelake/internal/services/normalize/domain"
)

// scrapedLayout is the naive ISO timestamp the scrapers stamp into fetched_at
const scrapedLayout = "2006-01-02T15:04:05.999999"

// Klar maps the scraped Klar product table. Product names pair a term
// class with an optional "platino" tier; the tiered rule sits first so it
// wins over the bare term
func Klar() domain.SourceSpec {
	return domain.SourceSpec{
		Name:          "klar",
		EntityID:      2,
		ProductColumn: "producto",
		Products: &productmap.Table{
			Rules: []productmap.Rule{
				{Contains: []string{"cuenta", "platino"}, ProductID: 2},
				{Contains: []string{"cuenta"}, ProductID: 1},
				{Contains: []string{"flexible", "platino"}, ProductID: 4},
				{Contains: []string{"flexible"}, ProductID: 3},
				{Contains: []string{"7", "platino"}, ProductID: 6},
				{Contains: []string{"7"}, ProductID: 5},
				{Contains: []string{"30", "platino"}, ProductID: 8},
				{Contains: []string{"30"}, ProductID: 7},
				{Contains: []string{"90", "platino"}, ProductID: 10},
				{Contains: []string{"90"}, ProductID: 9},
				{Contains: []string{"180", "platino"}, ProductID: 12},
				{Contains: []string{"180"}, ProductID: 11},
				{Contains: []string{"365", "platino"}, ProductID: 14},
				{Contains: []string{"365"}, ProductID: 13},
			},
			Default: 1,
		},
		RateColumn: "tasa_anual_fija",
		DateColumn: "fetched_at",
		DateLayout: scrapedLayout,
	}
}

// Stori maps the scraped Stori investment table
func Stori() domain.SourceSpec {
	return domain.SourceSpec{
		Name:          "stori",
		EntityID:      4,
		ProductColumn: "producto",
		Products: &productmap.Table{
			Rules: []productmap.Rule{
				{Contains: []string{"sin plazo"}, ProductID: 21},
				{Contains: []string{"30"}, ProductID: 22},
				{Contains: []string{"90"}, ProductID: 23},
				{Contains: []string{"180"}, ProductID: 24},
				{Contains: []string{"360"}, ProductID: 25},
			},
			Default: 21,
		},
		RateColumn: "tasa_anual_fija",
		DateColumn: "fetched_at",
		DateLayout: scrapedLayout,
	}
}

// Banxico maps the CETES series feed. Series ids are stable, so the lookup
// is a plain table; the api publishes dates day-first
func Banxico() domain.SourceSpec {
	return domain.SourceSpec{
		Name:         "banxico",
		EntityID:     1,
		SeriesColumn: "serie_id",
		Series: map[string]int32{
			"SF60633": 26, // CETES 28d
			"SF60634": 27, // CETES 91d
			"SF60635": 28, // CETES 182d
			"SF60636": 29, // CETES 364d
		},
		RateColumn: "tasa",
		DateColumn: "fecha",
		DateLayout: "02/01/2006",
	}
}

// All returns every registered spec in a stable order
func All() []domain.SourceSpec {
	return []domain.SourceSpec{Banxico(), Klar(), Stori()}
}
