package synth

// PriceTier buckets a seed into one of four price regimes.
type PriceTier int

const (
	TierPenny PriceTier = iota
	TierLow
	TierMid
	TierBlueChip
)

func (t PriceTier) String() string {
	switch t {
	case TierPenny:
		return "penny"
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierBlueChip:
		return "blue-chip"
	default:
		return "unknown"
	}
}

// TierFor maps a seed to its price tier.
func TierFor(seed int64) PriceTier {
	return PriceTier(seed % 4)
}

// Per-tier base price and daily volatility ranges. Volatility is a fraction
// of price per day.
var tierRanges = [4]struct {
	baseMin, baseMax float64
	volMin, volMax   float64
}{
	TierPenny:    {0.5, 5.0, 0.04, 0.08},
	TierLow:      {5.0, 20.0, 0.02, 0.05},
	TierMid:      {20.0, 100.0, 0.01, 0.03},
	TierBlueChip: {100.0, 500.0, 0.005, 0.02},
}

// Parameters fixes one run's synthesis inputs. They are drawn exactly once
// per run and never resampled mid-walk.
type Parameters struct {
	Seed            int64
	Tier            PriceTier
	BasePrice       float64
	DailyVolatility float64 // fraction of price per day
	TrendBias       float64 // per-day drift as a fraction of current price
	CycleLength     float64 // trading days per sinusoid period
	CycleAmplitude  float64 // absolute price amount
}

// DeriveParameters draws the per-run synthesis inputs for a seed. The trend
// bias range leans slightly positive so the average ticker drifts up.
func DeriveParameters(seed int64) Parameters {
	tier := TierFor(seed)
	r := tierRanges[tier]

	base := Rand(seed, offsetBasePrice, 0, r.baseMin, r.baseMax)
	return Parameters{
		Seed:            seed,
		Tier:            tier,
		BasePrice:       base,
		DailyVolatility: Rand(seed, offsetVolatility, 0, r.volMin, r.volMax),
		TrendBias:       Rand(seed, offsetTrendBias, 0, -0.002, 0.003),
		CycleLength:     Rand(seed, offsetCycleLen, 0, 5, 12),
		CycleAmplitude:  Rand(seed, offsetCycleAmp, 0, 0.01, 0.04) * base,
	}
}
