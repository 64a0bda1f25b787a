// Package enrich resolves hospital rows to coordinates through a three-tier
// address fallback against the Census geocoder and writes the augmented
// output plus an unmatched side table.
package enrich

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/hospital-geocoder/internal/address"
	"github.com/sells-group/hospital-geocoder/internal/table"
	"github.com/sells-group/hospital-geocoder/pkg/geocode"
)

// Result columns appended to every output row.
const (
	ColLatitude   = "Latitude"
	ColLongitude  = "Longitude"
	ColSource     = "Geo_Source"
	ColConfidence = "Geo_Confidence"
)

// Source tags recording which tier produced the coordinates.
const (
	SourceDefault  = "census"
	SourcePrimary  = "census_primary"
	SourceHospital = "census_hospital"
	SourceCity     = "census_city"
)

// coords is the raw (pre-rounding) outcome cached for a primary address.
// Empty strings mean no match.
type coords struct {
	Lat  string
	Lon  string
	Conf string
}

// Cache maps a primary-address string to the lookup outcome obtained for it,
// scoped to one run. Negative outcomes are cached too, so each distinct
// primary address costs at most one trip through the fallback chain.
// The key is always the primary address, whichever tier answered.
type Cache map[string]coords

// Resolution is the per-row result applied to the four output columns.
type Resolution struct {
	Latitude   string
	Longitude  string
	Source     string
	Confidence string
}

// Resolver runs the fallback chain for one row at a time.
type Resolver struct {
	client  geocode.Client
	cols    address.Columns
	limiter *rate.Limiter
	round   int
}

// NewResolver creates a Resolver. sleep is the minimum spacing between
// uncached rows (zero disables throttling); roundDecimals is the coordinate
// precision applied after the chain.
func NewResolver(client geocode.Client, cols address.Columns, sleep time.Duration, roundDecimals int) *Resolver {
	limit := rate.Inf
	if sleep > 0 {
		limit = rate.Every(sleep)
	}
	return &Resolver{
		client:  client,
		cols:    cols,
		limiter: rate.NewLimiter(limit, 1),
		round:   roundDecimals,
	}
}

// Resolve resolves coordinates for one row.
//
// Rows already carrying both coordinates are passed through untouched apart
// from rounding. Only a non-empty primary address triggers lookups. The
// chain result, matched or not, is stored in cache under the primary
// address, and the inter-request delay is charged exactly once per uncached
// row regardless of how many tiers made a network call.
func (r *Resolver) Resolve(ctx context.Context, idx int, row table.Row, cache Cache) (Resolution, error) {
	lat := row[ColLatitude]
	lon := row[ColLongitude]
	conf := row[ColConfidence]
	source := row[ColSource]
	if source == "" {
		source = SourceDefault
	}

	primary := r.cols.Primary(row)

	if (lat == "" || lon == "") && primary != "" {
		if hit, ok := cache[primary]; ok {
			lat, lon, conf = hit.Lat, hit.Lon, hit.Conf
		} else {
			log := zap.L().With(zap.Int("row", idx))

			// Tier 1: street address.
			res, err := r.client.Geocode(ctx, primary)
			if err != nil {
				return Resolution{}, err
			}
			lat, lon, conf = fromResult(res)
			if res.Matched {
				source = SourcePrimary
				log.Debug("geocoded", zap.String("tier", "primary"), zap.String("address", primary), zap.String("lat", lat), zap.String("lon", lon))
			} else {
				log.Debug("no match", zap.String("tier", "primary"), zap.String("address", primary))

				// Tier 2: hospital name, only when it adds information.
				hosp := r.cols.Hospital(row)
				if hosp != "" && hosp != primary {
					res, err = r.client.Geocode(ctx, hosp)
					if err != nil {
						return Resolution{}, err
					}
					lat, lon, conf = fromResult(res)
					if res.Matched {
						source = SourceHospital
						log.Debug("geocoded", zap.String("tier", "hospital"), zap.String("address", hosp), zap.String("lat", lat), zap.String("lon", lon))
					} else {
						log.Debug("no match", zap.String("tier", "hospital"), zap.String("address", hosp))
					}
				}

				// Tier 3: city centroid.
				if lat == "" || lon == "" {
					city := r.cols.City(row)
					if city != "" {
						res, err = r.client.Geocode(ctx, city)
						if err != nil {
							return Resolution{}, err
						}
						lat, lon, conf = fromResult(res)
						if res.Matched {
							source = SourceCity
							log.Debug("geocoded", zap.String("tier", "city"), zap.String("address", city), zap.String("lat", lat), zap.String("lon", lon))
						} else {
							log.Debug("no match", zap.String("tier", "city"), zap.String("address", city))
						}
					}
				}
			}

			cache[primary] = coords{Lat: lat, Lon: lon, Conf: conf}

			if err := r.limiter.Wait(ctx); err != nil {
				return Resolution{}, eris.Wrap(err, "enrich: inter-request delay")
			}
		}
	}

	return Resolution{
		Latitude:   roundCoord(lat, r.round),
		Longitude:  roundCoord(lon, r.round),
		Source:     source,
		Confidence: conf,
	}, nil
}

// fromResult flattens a lookup result into the string triple, clearing all
// three on no match.
func fromResult(res *geocode.Result) (lat, lon, conf string) {
	if !res.Matched {
		return "", "", ""
	}
	return formatCoord(res.Latitude), formatCoord(res.Longitude), res.Side
}

// formatCoord renders a coordinate with the shortest exact representation.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundCoord rounds a stored coordinate to the given number of decimals.
// Rounding is a no-op on empty or non-numeric input: the value is returned
// unchanged.
func roundCoord(s string, decimals int) string {
	if s == "" {
		return s
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return s
	}
	pow := math.Pow(10, float64(decimals))
	return formatCoord(math.Round(v*pow) / pow)
}
