package domain

import "context"

// CachedProduct is the partial product record kept by the product reference cache.
type CachedProduct struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	NameAr        string   `json:"nameAr"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	Discount      *float64 `json:"discount,omitempty"`
	Badge         string   `json:"badge,omitempty"`
}

// RawProduct is a product document as the listing endpoint returns it.
// Numeric fields may arrive as numbers or strings, IDs as `_id` or `id`.
type RawProduct struct {
	MongoID       any      `json:"_id,omitempty"`
	ID            any      `json:"id,omitempty"`
	Name          string   `json:"name,omitempty"`
	NameAr        string   `json:"nameAr,omitempty"`
	Price         any      `json:"price,omitempty"`
	OriginalPrice any      `json:"originalPrice,omitempty"`
	Image         string   `json:"image,omitempty"`
	Images        []string `json:"images,omitempty"`
	Rating        any      `json:"rating,omitempty"`
	Reviews       any      `json:"reviews,omitempty"`
	Discount      any      `json:"discount,omitempty"`
	Badge         string   `json:"badge,omitempty"`
}

// ProductCatalog is the storefront product listing endpoint, filtered by ID
// and projected to the given fields.
type ProductCatalog interface {
	ListProductsByIDs(ctx context.Context, ids []string, fields []string) ([]RawProduct, error)
}
