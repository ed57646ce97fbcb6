// Copyright (c) 2026 Optica. All rights reserved.

/*
Package catalog serves the demo eyewear catalog.

The catalog is a fixed in-memory dataset: it exists so the admin panel has
realistic product data to browse while the commerce backend is under
construction. Every view lands in the audit trail as a PRODUCT_VIEW event.
*/
package catalog

import (
	"context"
	"sort"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/pkg/pagination"
)

const targetTableProducts = "products"

// Product is a single catalog entry.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"price_cents"`
	Currency    string  `json:"currency"`
	InStock     bool    `json:"in_stock"`
	Rating      float64 `json:"rating"`
}

// demoProducts is the fixed dataset. IDs are stable so bookmarked admin
// panel links keep working between deployments.
var demoProducts = []Product{
	{ID: 1, Name: "Aviator Classic", Brand: "Luxottica", Category: "sunglasses", Description: "Teardrop lenses with a gold-tone metal frame.", PriceCents: 15900, Currency: "EUR", InStock: true, Rating: 4.7},
	{ID: 2, Name: "Wayfarer Ease", Brand: "Luxottica", Category: "sunglasses", Description: "Iconic acetate frame with G-15 lenses.", PriceCents: 13900, Currency: "EUR", InStock: true, Rating: 4.5},
	{ID: 3, Name: "Round Metal", Brand: "Persol", Category: "sunglasses", Description: "Slim round frame with crystal lenses.", PriceCents: 17400, Currency: "EUR", InStock: false, Rating: 4.6},
	{ID: 4, Name: "Clubmaster Optics", Brand: "Persol", Category: "optical", Description: "Browline frame for prescription lenses.", PriceCents: 16200, Currency: "EUR", InStock: true, Rating: 4.4},
	{ID: 5, Name: "Hexagonal Flat", Brand: "Vogue", Category: "sunglasses", Description: "Flat crystal lenses in a hexagonal rim.", PriceCents: 12800, Currency: "EUR", InStock: true, Rating: 4.2},
	{ID: 6, Name: "Erika Soft", Brand: "Vogue", Category: "sunglasses", Description: "Rounded rubberized frame, gradient lenses.", PriceCents: 11900, Currency: "EUR", InStock: true, Rating: 4.3},
	{ID: 7, Name: "Frames of Life", Brand: "Armani", Category: "optical", Description: "Lightweight titanium optical frame.", PriceCents: 21500, Currency: "EUR", InStock: true, Rating: 4.8},
	{ID: 8, Name: "Justin Matte", Brand: "Luxottica", Category: "sunglasses", Description: "Matte rubber finish with mirrored lenses.", PriceCents: 14100, Currency: "EUR", InStock: false, Rating: 4.1},
	{ID: 9, Name: "Caravan Square", Brand: "Persol", Category: "sunglasses", Description: "Squared take on the aviator silhouette.", PriceCents: 16800, Currency: "EUR", InStock: true, Rating: 4.0},
	{ID: 10, Name: "Reading Comfort 2.0", Brand: "Optica House", Category: "reading", Description: "House-brand readers, +2.0 diopter.", PriceCents: 3900, Currency: "EUR", InStock: true, Rating: 3.9},
}

// Service answers catalog queries from the in-memory dataset.
type Service struct {
	products map[int64]Product
	recorder *audit.Recorder
}

// NewService constructs the catalog [Service] over the demo dataset.
func NewService(recorder *audit.Recorder) *Service {
	products := make(map[int64]Product, len(demoProducts))
	for _, product := range demoProducts {
		products[product.ID] = product
	}
	return &Service{products: products, recorder: recorder}
}

// List returns a page of products ordered by ID.
func (service *Service) List(context context.Context, actor *audit.Actor, params pagination.Params, ip string) ([]Product, int, error) {
	all := make([]Product, 0, len(service.products))
	for _, product := range service.products {
		all = append(all, product)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	offset := params.Offset()
	if offset >= total {
		return []Product{}, total, nil
	}
	end := offset + params.Limit
	if end > total {
		end = total
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actor,
		Operation:   audit.OpProductView,
		TargetTable: targetTableProducts,
		Status:      audit.StatusSuccess,
		IP:          ip,
		Details:     "browsed catalog",
	})

	return all[offset:end], total, nil
}

// Get returns a single product by ID.
func (service *Service) Get(context context.Context, actor *audit.Actor, productID int64, ip string) (*Product, error) {
	product, ok := service.products[productID]
	if !ok {
		return nil, apperr.NotFound("Product")
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actor,
		Operation:   audit.OpProductView,
		TargetTable: targetTableProducts,
		TargetID:    product.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
	})

	return &product, nil
}
