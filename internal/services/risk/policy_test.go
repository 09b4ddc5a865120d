package risk

import "testing"

func TestClassifyPartition(t *testing.T) {
	cases := []struct {
		price float64
		want  Tier
	}{
		{0, TierLow},
		{0.003, TierLow},
		{0.049999, TierLow},
		{0.05, TierMedium}, // lower bound inclusive
		{0.10, TierMedium},
		{0.149999, TierMedium},
		{0.15, TierHigh}, // lower bound inclusive
		{1.00, TierHigh},
		{42_000, TierHigh},
	}
	for _, c := range cases {
		if got := Classify(c.price); got != c.want {
			t.Errorf("Classify(%v) = %v, want %v", c.price, got, c.want)
		}
	}
}

func TestParamsForLowTier(t *testing.T) {
	p := ParamsFor(0.003)
	if p.Tier != TierLow {
		t.Fatalf("tier = %v, want low", p.Tier)
	}
	if p.SizeMultiplier != 1.0 {
		t.Errorf("size multiplier = %v, want 1.0", p.SizeMultiplier)
	}
	if p.ProfitMargin != 0.015 {
		t.Errorf("profit margin = %v, want 0.015", p.ProfitMargin)
	}
}

func TestParamsDescendWithTier(t *testing.T) {
	low, med, high := tierParams[TierLow], tierParams[TierMedium], tierParams[TierHigh]
	if !(low.SizeMultiplier > med.SizeMultiplier && med.SizeMultiplier > high.SizeMultiplier) {
		t.Error("size multipliers must strictly decrease with tier")
	}
	if !(low.ProfitMargin > med.ProfitMargin && med.ProfitMargin > high.ProfitMargin) {
		t.Error("profit margins must strictly decrease with tier")
	}
	if !(low.MinDailyVolume > med.MinDailyVolume && med.MinDailyVolume > high.MinDailyVolume) {
		t.Error("volume floors must strictly decrease with tier")
	}
	if !(low.MaxSpread > med.MaxSpread && med.MaxSpread > high.MaxSpread) {
		t.Error("spread ceilings must strictly decrease with tier")
	}
}

func TestValidate(t *testing.T) {
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		if err := tier.Validate(); err != nil {
			t.Errorf("Validate(%v): %v", tier, err)
		}
	}
	if err := Tier("extreme").Validate(); err == nil {
		t.Error("expected error for unknown tier")
	}
}
