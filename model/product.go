package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices go over the wire as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductDraft    ProductStatus = "draft"
)

// Valid reports whether s is one of the known product statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case ProductActive, ProductInactive, ProductDraft:
		return true
	}
	return false
}

const DefaultBrand = "Apple"

type Product struct {
	ID               int64           `json:"id"`
	SKU              string          `json:"sku,omitempty"`
	Title            string          `json:"title"`
	Brand            string          `json:"brand"`
	Category         string          `json:"category"`
	Subcategory      string          `json:"subcategory"`
	Price            decimal.Decimal `json:"price"`
	Stock            int             `json:"stock"`
	HeroImage        string          `json:"heroImage"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"shortDescription"`
	Tags             []string        `json:"tags"`
	Status           ProductStatus   `json:"status"`
	Featured         bool            `json:"featured"`
	FreeShipping     bool            `json:"freeShipping"`
	HasVariants      bool            `json:"hasVariants"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ProductInput carries the writable product fields. Nil means "not provided",
// which lets the same shape serve both create and partial update.
type ProductInput struct {
	SKU              *string          `json:"sku,omitempty"`
	Title            *string          `json:"title,omitempty"`
	Brand            *string          `json:"brand,omitempty"`
	Category         *string          `json:"category,omitempty"`
	Subcategory      *string          `json:"subcategory,omitempty"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	Stock            *int             `json:"stock,omitempty"`
	HeroImage        *string          `json:"heroImage,omitempty"`
	Description      *string          `json:"description,omitempty"`
	ShortDescription *string          `json:"shortDescription,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	Status           *ProductStatus   `json:"status,omitempty"`
	Featured         *bool            `json:"featured,omitempty"`
	FreeShipping     *bool            `json:"freeShipping,omitempty"`
	HasVariants      *bool            `json:"hasVariants,omitempty"`
}

// MissingFields returns the JSON names of the fields a new product cannot do without.
func (in ProductInput) MissingFields() []string {
	var missing []string
	if blank(in.Title) {
		missing = append(missing, "title")
	}
	if blank(in.Category) {
		missing = append(missing, "category")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.Stock == nil {
		missing = append(missing, "stock")
	}
	if blank(in.HeroImage) {
		missing = append(missing, "heroImage")
	}
	return missing
}

// Check validates the values that were provided. It does not look for missing fields.
func (in ProductInput) Check() error {
	if in.Price != nil && in.Price.IsNegative() {
		return &ValidationError{Msg: "price must be >= 0", Fields: []string{"price"}}
	}
	if in.Stock != nil && *in.Stock < 0 {
		return &ValidationError{Msg: "stock must be >= 0", Fields: []string{"stock"}}
	}
	if in.Status != nil && !in.Status.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("unknown status %q", *in.Status), Fields: []string{"status"}}
	}
	return nil
}

// ValidateNew runs the create-time checks: required fields first, then values.
func (in ProductInput) ValidateNew() error {
	if missing := in.MissingFields(); len(missing) > 0 {
		return &ValidationError{Msg: "Missing required fields", Fields: missing}
	}
	return in.Check()
}

// NewProduct builds an unsaved product from in, filling the defaults the
// admin form leaves empty. ID, SKU fallback and timestamps belong to the repository.
func (in ProductInput) NewProduct() Product {
	p := Product{
		Brand:  DefaultBrand,
		Status: ProductActive,
		Tags:   []string{},
	}
	in.Apply(&p)
	return p
}

// Apply merges every provided field of in onto p.
func (in ProductInput) Apply(p *Product) {
	setString(&p.SKU, in.SKU)
	setString(&p.Title, in.Title)
	if in.Brand != nil && strings.TrimSpace(*in.Brand) != "" {
		p.Brand = *in.Brand
	}
	setString(&p.Category, in.Category)
	setString(&p.Subcategory, in.Subcategory)
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	setString(&p.HeroImage, in.HeroImage)
	setString(&p.Description, in.Description)
	setString(&p.ShortDescription, in.ShortDescription)
	if in.Tags != nil {
		p.Tags = dedupe(in.Tags)
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.FreeShipping != nil {
		p.FreeShipping = *in.FreeShipping
	}
	if in.HasVariants != nil {
		p.HasVariants = *in.HasVariants
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// tags are a set
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
