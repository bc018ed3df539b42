package engine

import (
	"math"
	"sort"

	"apartmentiq/server/internal/models"
)

// BuildMarketContext computes the shared market snapshot for one scoring
// invocation over the candidate batch. It is recomputed on every call and
// never cached across invocations.
func (e *Engine) BuildMarketContext(candidates []models.Candidate) *models.MarketContext {
	ctx := &models.MarketContext{
		PropertyStats: make(map[string]models.PropertyGroupStats),
	}
	if len(candidates) == 0 {
		return ctx
	}

	rents := make([]float64, 0, len(candidates))
	doms := make([]float64, 0, len(candidates))
	perSqft := make([]float64, 0, len(candidates))

	type propAgg struct {
		count   int
		rentSum float64
		domSum  float64
	}
	props := make(map[string]*propAgg)

	for _, cand := range candidates {
		unit := cand.Unit
		if unit == nil || unit.CurrentPrice <= 0 {
			// Unscoreable candidates are skipped later by the ranking
			// pass; they must not distort the aggregate stats either.
			continue
		}
		rent := unit.CurrentPrice
		sqft := e.cfg.Scoring.DefaultSquareFeet
		if unit.SquareFeet != nil && *unit.SquareFeet > 0 {
			sqft = *unit.SquareFeet
		}

		rents = append(rents, rent)
		doms = append(doms, float64(unit.DaysOnMarket))
		perSqft = append(perSqft, rent/float64(sqft))

		agg, ok := props[unit.PropertyName]
		if !ok {
			agg = &propAgg{}
			props[unit.PropertyName] = agg
		}
		agg.count++
		agg.rentSum += rent
		agg.domSum += float64(unit.DaysOnMarket)
	}

	ctx.Stats = models.MarketStats{
		AvgRent:         mean(rents),
		MedianRent:      quantile(rents, 0.5),
		AvgDaysOnMarket: mean(doms),
		AvgRentPerSqft:  mean(perSqft),
	}
	ctx.RentPercentiles = percentiles(rents)
	ctx.DaysOnMarketPercentiles = percentiles(doms)
	ctx.RentPerSqftPercentiles = percentiles(perSqft)

	for name, agg := range props {
		ctx.PropertyStats[name] = models.PropertyGroupStats{
			AvailableUnits:  agg.count,
			AvgDaysOnMarket: agg.domSum / float64(agg.count),
			AvgRent:         agg.rentSum / float64(agg.count),
		}
	}

	return ctx
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func percentiles(values []float64) *models.Percentiles {
	if len(values) == 0 {
		return nil
	}
	return &models.Percentiles{
		P10: quantile(values, 0.10),
		P25: quantile(values, 0.25),
		P50: quantile(values, 0.50),
		P75: quantile(values, 0.75),
		P90: quantile(values, 0.90),
	}
}

// quantile computes the q-th quantile with linear interpolation between the
// two nearest order statistics.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
