package services_test

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"saleroom/internal/services"
)

func TestCalculateFees(t *testing.T) {
	tests := []struct {
		name           string
		saleAmount     string
		premiumPct     string
		commissionPct  string
		wantPremium    string
		wantCommission string
		wantTotal      string
		wantPayout     string
		wantEarnings   string
	}{
		{
			name:       "standard eight percent both sides",
			saleAmount: "10000", premiumPct: "8", commissionPct: "8",
			wantPremium: "800", wantCommission: "800",
			wantTotal: "10800", wantPayout: "9200", wantEarnings: "1600",
		},
		{
			name:       "asymmetric rates",
			saleAmount: "250", premiumPct: "10", commissionPct: "5",
			wantPremium: "25", wantCommission: "12.5",
			wantTotal: "275", wantPayout: "237.5", wantEarnings: "37.5",
		},
		{
			name:       "cent rounding stays exact",
			saleAmount: "33.33", premiumPct: "8", commissionPct: "8",
			wantPremium: "2.67", wantCommission: "2.67",
			wantTotal: "36", wantPayout: "30.66", wantEarnings: "5.34",
		},
		{
			name:       "zero rates",
			saleAmount: "99.99", premiumPct: "0", commissionPct: "0",
			wantPremium: "0", wantCommission: "0",
			wantTotal: "99.99", wantPayout: "99.99", wantEarnings: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sale, err := decimal.NewFromString(tt.saleAmount)
			assert.Nil(t, err)

			got := services.CalculateFees(sale, services.FeeRates{
				BuyerPremiumPercent:     dec(tt.premiumPct),
				SellerCommissionPercent: dec(tt.commissionPct),
			})

			check.True(t, got.BuyerPremiumAmount.Equal(dec(tt.wantPremium)))
			check.True(t, got.SellerCommissionAmount.Equal(dec(tt.wantCommission)))
			check.True(t, got.TotalBuyerPays.Equal(dec(tt.wantTotal)))
			check.True(t, got.SellerPayoutAmount.Equal(dec(tt.wantPayout)))
			check.True(t, got.PlatformEarnings.Equal(dec(tt.wantEarnings)))
		})
	}
}

func TestCalculateFeesIdentity(t *testing.T) {
	// total buyer pays minus seller payout always equals platform earnings
	sale := dec("1234.56")
	got := services.CalculateFees(sale, services.FeeRates{
		BuyerPremiumPercent:     dec("12.5"),
		SellerCommissionPercent: dec("7.25"),
	})
	assert.True(t, got.TotalBuyerPays.Sub(got.SellerPayoutAmount).Equal(got.PlatformEarnings))
}
