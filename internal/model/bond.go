package model

// BondParameters are the calculator inputs. Rates and coupon are in percent.
type BondParameters struct {
	DiscountRate  float64 `json:"discountRate"`
	GreeniumBps   float64 `json:"greeniumBps"`
	MaturityYears int     `json:"maturityYears"`
	CouponRate    float64 `json:"couponRate"`
	FaceValue     float64 `json:"faceValue"`
}

// BondMetrics holds the valuation results at a single discount rate.
type BondMetrics struct {
	Rate             float64 `json:"rate"`
	Price            float64 `json:"price"`
	MacaulayDuration float64 `json:"macaulayDuration"`
	ModifiedDuration float64 `json:"modifiedDuration"`
	Convexity        float64 `json:"convexity"`
}

// BondComparison contrasts a conventional bond with its green counterpart.
type BondComparison struct {
	Parameters        BondParameters `json:"parameters"`
	Conventional      BondMetrics    `json:"conventional"`
	Green             BondMetrics    `json:"green"`
	PriceDifference   float64        `json:"priceDifference"`
	PercentDifference float64        `json:"percentDifference"`
}
