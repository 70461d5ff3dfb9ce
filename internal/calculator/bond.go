package calculator

import (
	"math"

	"GreenDeck/internal/model"
)

// DefaultFaceValue is the par amount all coupons are quoted against.
const DefaultFaceValue = 100.0

// MaxFaceValue caps the face value accepted by Clamp.
const MaxFaceValue = 1e6

// Slider ranges of the calculator view.
const (
	MinDiscountRate = 0.0
	MaxDiscountRate = 10.0
	MinGreenium     = 0.0
	MaxGreenium     = 10.0
	MinMaturity     = 1
	MaxMaturity     = 30
	MinCoupon       = 0.0
	MaxCoupon       = 8.0
)

// DefaultParameters returns the calculator's initial inputs: a 10-year 3% coupon
// bond discounted at 2.5% with a 3 bps greenium.
func DefaultParameters() model.BondParameters {
	return model.BondParameters{
		DiscountRate:  2.5,
		GreeniumBps:   3,
		MaturityYears: 10,
		CouponRate:    3,
		FaceValue:     DefaultFaceValue,
	}
}

// Clamp forces p into the ranges the calculator view accepts. The pricing
// functions themselves never guard their inputs.
func Clamp(p model.BondParameters) model.BondParameters {
	p.DiscountRate = clampFloat(p.DiscountRate, MinDiscountRate, MaxDiscountRate)
	p.GreeniumBps = clampFloat(p.GreeniumBps, MinGreenium, MaxGreenium)
	p.CouponRate = clampFloat(p.CouponRate, MinCoupon, MaxCoupon)
	if p.MaturityYears < MinMaturity {
		p.MaturityYears = MinMaturity
	}
	if p.MaturityYears > MaxMaturity {
		p.MaturityYears = MaxMaturity
	}
	switch {
	case math.IsNaN(p.FaceValue) || p.FaceValue <= 0:
		p.FaceValue = DefaultFaceValue
	case p.FaceValue > MaxFaceValue:
		p.FaceValue = MaxFaceValue
	}
	return p
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Price returns the present value of the coupon annuity plus the discounted
// face value. rate is in percent; the coupon is the cash amount per period
// (CouponRate against a face of 100).
func Price(p model.BondParameters, rate float64) float64 {
	r := rate / 100
	c := p.CouponRate
	T := float64(p.MaturityYears)
	F := p.FaceValue

	if r == 0 {
		return c*T + F
	}

	pvCoupons := c * (1 - math.Pow(1+r, -T)) / r
	pvPrincipal := F * math.Pow(1+r, -T)
	return pvCoupons + pvPrincipal
}

// cashFlowSums walks the cash flows period by period and returns the plain,
// time-weighted and convexity-weighted present value sums.
func cashFlowSums(p model.BondParameters, rate float64) (pv, weighted, convex float64) {
	r := rate / 100
	T := p.MaturityYears
	for t := 1; t <= T; t++ {
		cf := p.CouponRate
		if t == T {
			cf += p.FaceValue
		}
		d := cf / math.Pow(1+r, float64(t))
		ft := float64(t)
		pv += d
		weighted += ft * d
		convex += ft * (ft + 1) * d
	}
	return pv, weighted, convex
}

// LoopPrice is the price obtained from the per-period cash flow sum, the same
// denominator MacaulayDuration uses. It agrees with Price to rounding error.
func LoopPrice(p model.BondParameters, rate float64) float64 {
	pv, _, _ := cashFlowSums(p, rate)
	return pv
}

// MacaulayDuration is the PV-weighted average time to each cash flow, in years.
func MacaulayDuration(p model.BondParameters, rate float64) float64 {
	pv, weighted, _ := cashFlowSums(p, rate)
	return weighted / pv
}

// ModifiedDuration is the Macaulay duration divided by (1 + r).
func ModifiedDuration(p model.BondParameters, rate float64) float64 {
	return MacaulayDuration(p, rate) / (1 + rate/100)
}

// Convexity is Σ t(t+1)·PV_t / (P·(1+r)²).
func Convexity(p model.BondParameters, rate float64) float64 {
	r := rate / 100
	pv, _, convex := cashFlowSums(p, rate)
	return convex / (pv * math.Pow(1+r, 2))
}

// GreenRate shifts the conventional rate down by the greenium. The slider unit
// is divided by 100, so 1 "bps" moves the rate by 0.01 percentage points.
func GreenRate(rate, greeniumBps float64) float64 {
	return rate - greeniumBps/100
}

// Evaluate computes all four metrics at the given rate.
func Evaluate(p model.BondParameters, rate float64) model.BondMetrics {
	return model.BondMetrics{
		Rate:             rate,
		Price:            Price(p, rate),
		MacaulayDuration: MacaulayDuration(p, rate),
		ModifiedDuration: ModifiedDuration(p, rate),
		Convexity:        Convexity(p, rate),
	}
}

// Compare values the bond at the conventional rate and at the green rate.
func Compare(p model.BondParameters) model.BondComparison {
	conv := Evaluate(p, p.DiscountRate)
	green := Evaluate(p, GreenRate(p.DiscountRate, p.GreeniumBps))
	diff := green.Price - conv.Price
	return model.BondComparison{
		Parameters:        p,
		Conventional:      conv,
		Green:             green,
		PriceDifference:   diff,
		PercentDifference: diff / conv.Price * 100,
	}
}
