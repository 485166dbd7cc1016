package catalog

import (
	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
)

// pricedLine pairs a session line item with its resolved catalog product.
type pricedLine struct {
	item    domain.LineItem
	product domain.Product
}

// computeTotals is the pricing pass: subtotal from live unit prices,
// coupon discounts on the subtotal, shipping iff any line needs physical
// fulfillment, tax on (subtotal - discount). All arithmetic in cents.
func computeTotals(lines []pricedLine, coupons []domain.Coupon, shippingMethod string, settings Settings) *domain.Totals {
	totals := &domain.Totals{
		Items:    []domain.PricedItem{},
		Coupons:  []string{},
		Currency: settings.Currency,
	}

	for _, l := range lines {
		lineSubtotal := l.product.PriceCents * int64(l.item.Quantity)
		lineTax := lineSubtotal * settings.TaxRateBps / 10000
		totals.Items = append(totals.Items, domain.PricedItem{
			Key:           l.item.Key,
			ProductID:     l.item.ProductID,
			VariationID:   l.item.VariationID,
			Options:       l.item.Options,
			Name:          l.product.Name,
			SKU:           l.product.SKU,
			Quantity:      l.item.Quantity,
			UnitCents:     l.product.PriceCents,
			SubtotalCents: lineSubtotal,
			TaxCents:      lineTax,
			TotalCents:    lineSubtotal + lineTax,
			NeedsShipping: l.product.NeedsShipping,
		})
		totals.ItemCount += l.item.Quantity
		totals.SubtotalCents += lineSubtotal
		if l.product.NeedsShipping {
			totals.NeedsShipping = true
		}
	}

	for _, c := range coupons {
		remaining := totals.SubtotalCents - totals.DiscountCents
		if remaining <= 0 {
			break
		}
		var off int64
		switch c.Kind {
		case domain.CouponPercent:
			off = totals.SubtotalCents * c.Amount / 100
		case domain.CouponFixed:
			off = c.Amount
		}
		if off > remaining {
			off = remaining
		}
		totals.DiscountCents += off
		totals.Coupons = append(totals.Coupons, c.Code)
	}

	if totals.NeedsShipping {
		totals.ShippingCents = shippingCost(shippingMethod, settings.ShippingMethods)
	}

	taxable := totals.SubtotalCents - totals.DiscountCents
	totals.TaxCents = taxable * settings.TaxRateBps / 10000
	totals.TotalCents = taxable + totals.ShippingCents + totals.TaxCents
	return totals
}

// shippingCost quotes the chosen method, falling back to the cheapest
// configured method when none (or an unknown one) was chosen.
func shippingCost(methodID string, methods []commerce.ShippingMethod) int64 {
	if len(methods) == 0 {
		return 0
	}
	cheapest := methods[0].CostCents
	for _, m := range methods {
		if m.ID == methodID {
			return m.CostCents
		}
		if m.CostCents < cheapest {
			cheapest = m.CostCents
		}
	}
	return cheapest
}
