package types

import (
	"encoding/json"
	"time"
)

// ExtractTimeLayout matches the millisecond UTC layout used for capture times.
const ExtractTimeLayout = "2006-01-02T15:04:05.000Z"

// Price groups the price fields of a product page.
type Price struct {
	Current  string `json:"current"  bson:"current"`
	Original string `json:"original" bson:"original"`

	// Discount is derived from Current and Original, e.g. "5.0折".
	Discount string `json:"discount" bson:"discount"`
}

// ProductRecord is the result of one extraction run against a product page.
type ProductRecord struct {
	Title        string   `json:"title"        bson:"title"`
	Price        Price    `json:"price"        bson:"price"`
	Sales        string   `json:"sales"        bson:"sales"`
	MainImages   []string `json:"mainImages"   bson:"mainImages"`
	DetailImages []string `json:"detailImages" bson:"detailImages"`
	URL          string   `json:"url"          bson:"url"`
	ExtractTime  string   `json:"extractTime"  bson:"extractTime"`
}

// NewProductRecord creates an empty record for pageURL stamped with the capture time.
func NewProductRecord(pageURL string, at time.Time) *ProductRecord {
	return &ProductRecord{
		MainImages:   []string{},
		DetailImages: []string{},
		URL:          pageURL,
		ExtractTime:  at.UTC().Format(ExtractTimeLayout),
	}
}

// Clone returns a deep copy, so the caller can hold it after the extractor is done.
func (r *ProductRecord) Clone() *ProductRecord {
	clone := *r
	clone.MainImages = append([]string{}, r.MainImages...)
	clone.DetailImages = append([]string{}, r.DetailImages...)
	return &clone
}

// Normalize replaces nil image slices with empty ones so JSON output has arrays.
func (r *ProductRecord) Normalize() {
	if r.MainImages == nil {
		r.MainImages = []string{}
	}
	if r.DetailImages == nil {
		r.DetailImages = []string{}
	}
}

// ToJSON serializes the record with two-space indentation.
func (r *ProductRecord) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
