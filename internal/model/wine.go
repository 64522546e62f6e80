// Package model defines the core data types shared across the API.
package model

import "time"

// WineRecord is the canonical structured description of a wine, produced
// by label recognition and stored in the wines table. Nil pointer fields
// mean the attribute is absent; present fields are never empty strings.
type WineRecord struct {
	ID             string   `json:"id,omitempty"`
	Name           *string  `json:"name"`
	Winery         *string  `json:"winery"`
	Vintage        *string  `json:"vintage"`
	Region         *string  `json:"region"`
	Country        *string  `json:"country"`
	GrapeVariety   *string  `json:"grape_variety"`
	AlcoholContent *string  `json:"alcohol_content"`
	WineType       *string  `json:"wine_type"`
	Description    *string  `json:"description"`
	Confidence     *float64 `json:"confidence"`
}

// Fields returns the record's attributes as a column->value map with nil
// and literal "null" values stripped, the shape persisted to the store.
func (w WineRecord) Fields() map[string]any {
	out := make(map[string]any)
	put := func(key string, v *string) {
		if v != nil && *v != "" && *v != "null" {
			out[key] = *v
		}
	}
	put("name", w.Name)
	put("winery", w.Winery)
	put("vintage", w.Vintage)
	put("region", w.Region)
	put("country", w.Country)
	put("grape_variety", w.GrapeVariety)
	put("alcohol_content", w.AlcoholContent)
	put("wine_type", w.WineType)
	put("description", w.Description)
	if w.Confidence != nil {
		out["confidence"] = *w.Confidence
	}
	return out
}

// RatingResult is a single rating candidate from one source.
type RatingResult struct {
	Rating      float64 `json:"rating"`
	MaxRating   float64 `json:"max_rating"`
	Source      string  `json:"source"`
	ReviewCount int     `json:"review_count,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Confidence  string  `json:"confidence,omitempty"` // "estimated" on fallback results
}

// PriceQuote is a single price candidate from one retail source.
type PriceQuote struct {
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Source       string  `json:"source"`
	Availability string  `json:"availability,omitempty"` // "In Stock" or "Limited"
	URL          string  `json:"url,omitempty"`
	Confidence   string  `json:"confidence,omitempty"` // "estimated" on fallback results
}

// PriceSummary is the reduced answer for a price query with live quotes.
type PriceSummary struct {
	AveragePrice float64      `json:"average_price"`
	LowestPrice  PriceQuote   `json:"lowest_price"`
	AllPrices    []PriceQuote `json:"all_prices"`
	Currency     string       `json:"currency"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TastingNotes is the output of the tasting-note generator.
type TastingNotes struct {
	TastingNotes string        `json:"tasting_notes"`
	GeneratedBy  string        `json:"generated_by"`
	WineContext  EnrichRequest `json:"wine_context"`
	GeneratedAt  time.Time     `json:"generated_at"`
}

// EnrichRequest carries the wine descriptors for the rating, price and
// tasting-note endpoints. Only WineName is required.
type EnrichRequest struct {
	WineName       string `json:"wine_name"`
	Winery         string `json:"winery,omitempty"`
	Vintage        string `json:"vintage,omitempty"`
	Region         string `json:"region,omitempty"`
	Country        string `json:"country,omitempty"`
	GrapeVariety   string `json:"grape_variety,omitempty"`
	WineType       string `json:"wine_type,omitempty"`
	AlcoholContent string `json:"alcohol_content,omitempty"`
}
