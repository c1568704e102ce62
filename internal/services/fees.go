package services

import "github.com/shopspring/decimal"

// FeeRates are the percentages frozen onto an invoice at settlement time.
type FeeRates struct {
	BuyerPremiumPercent     decimal.Decimal
	SellerCommissionPercent decimal.Decimal
}

type FeeBreakdown struct {
	SaleAmount             decimal.Decimal
	BuyerPremiumAmount     decimal.Decimal
	SellerCommissionAmount decimal.Decimal
	TotalBuyerPays         decimal.Decimal
	SellerPayoutAmount     decimal.Decimal
	PlatformEarnings       decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// CalculateFees derives every invoice amount from the sale amount and the
// resolved rates. Amounts are rounded to cents; all arithmetic is exact
// decimal so repeated settlement never drifts.
func CalculateFees(saleAmount decimal.Decimal, rates FeeRates) FeeBreakdown {
	premium := saleAmount.Mul(rates.BuyerPremiumPercent).Div(oneHundred).Round(2)
	commission := saleAmount.Mul(rates.SellerCommissionPercent).Div(oneHundred).Round(2)

	return FeeBreakdown{
		SaleAmount:             saleAmount,
		BuyerPremiumAmount:     premium,
		SellerCommissionAmount: commission,
		TotalBuyerPays:         saleAmount.Add(premium),
		SellerPayoutAmount:     saleAmount.Sub(commission),
		PlatformEarnings:       premium.Add(commission),
	}
}
