package httpserver

import (
	"time"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
)

// cartView is the session-plus-fresh-totals shape shared by the REST cart
// and checkout endpoints.
type cartView struct {
	CartToken string                `json:"cart_token"`
	Status    domain.CheckoutStatus `json:"status"`
	Customer  domain.BuyerContext   `json:"customer"`
	Totals    *domain.Totals        `json:"totals"`
	ExpiresAt time.Time             `json:"expires_at"`
	CreatedAt time.Time             `json:"created_at"`
}

func toCartView(sess *domain.CartSession, totals *domain.Totals) cartView {
	return cartView{
		CartToken: sess.Token,
		Status:    sess.DerivedStatus(),
		Customer:  sess.Buyer,
		Totals:    totals,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
	}
}

type productView struct {
	ID            int64  `json:"id"`
	SKU           string `json:"sku,omitempty"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	PriceCents    int64  `json:"price_cents"`
	Currency      string `json:"currency"`
	Purchasable   bool   `json:"purchasable"`
	InStock       bool   `json:"in_stock"`
	NeedsShipping bool   `json:"needs_shipping"`
}

func toProductView(p domain.Product) productView {
	return productView{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		PriceCents:    p.PriceCents,
		Currency:      p.Currency,
		Purchasable:   p.Purchasable,
		InStock:       p.InStock,
		NeedsShipping: p.NeedsShipping,
	}
}

type productListView struct {
	Products []productView `json:"products"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PerPage  int           `json:"per_page"`
}

type storeInfoView struct {
	Name            string                    `json:"name"`
	URL             string                    `json:"url"`
	Currency        string                    `json:"currency"`
	PaymentGateways []commerce.PaymentGateway `json:"payment_gateways"`
	ShippingMethods []commerce.ShippingMethod `json:"shipping_methods"`
}

// addressPayload is the wire shape for billing/shipping addresses.
type addressPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Country   string `json:"country"`
	State     string `json:"state"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Address1  string `json:"address_1"`
}

func (a *addressPayload) toDomain() *domain.Address {
	if a == nil {
		return nil
	}
	return &domain.Address{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Country:   a.Country,
		State:     a.State,
		City:      a.City,
		Postcode:  a.Postcode,
		Address1:  a.Address1,
	}
}

// itemPayload is one inbound line item reference.
type itemPayload struct {
	ProductID   int64             `json:"product_id"`
	VariationID int64             `json:"variation_id"`
	Options     map[string]string `json:"options"`
	Quantity    int               `json:"quantity"`
}

func itemsToDomain(items []itemPayload) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, domain.LineItem{
			ProductID:   it.ProductID,
			VariationID: it.VariationID,
			Options:     it.Options,
			Quantity:    qty,
		})
	}
	return out
}
