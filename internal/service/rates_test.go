package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"ridebook/internal/service"
)

func TestRateService_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		tax        string
		commission string
		wantErr    bool
	}{
		{name: "valid", tax: "7.5", commission: "15"},
		{name: "zero", tax: "0", commission: "0"},
		{name: "full commission", tax: "0", commission: "100"},
		{name: "negative tax", tax: "-1", commission: "20", wantErr: true},
		{name: "commission above 100", tax: "8", commission: "100.01", wantErr: true},
		{name: "tax finer than a hundredth", tax: "8.255", commission: "20", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			ctx := context.Background()
			tax := decimal.RequireFromString(tc.tax)
			commission := decimal.RequireFromString(tc.commission)

			_, err := f.rates.Update(ctx, tax, commission)
			if tc.wantErr {
				expectErr(t, err, service.ErrInvalidRates)

				current, err := f.rates.Current(ctx)
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				if !current.TaxRatePct.Equal(testRates.TaxRatePct) {
					t.Errorf("expected rates unchanged, got %s", current.TaxRatePct)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			current, err := f.rates.Current(ctx)
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if !current.TaxRatePct.Equal(tax) || !current.CommissionRatePct.Equal(commission) {
				t.Errorf("expected %s/%s, got %s/%s", tax, commission, current.TaxRatePct, current.CommissionRatePct)
			}
		})
	}
}
