package ingest

import (
	"math/rand"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// cityCenter anchors synthetic incidents to a metro area.
type cityCenter struct {
	name string
	lat  float64
	lon  float64
}

var defaultCities = []cityCenter{
	{"Mumbai", 19.0760, 72.8777},
	{"Delhi", 28.7041, 77.1025},
	{"Bangalore", 12.9716, 77.5946},
	{"Hyderabad", 17.3850, 78.4867},
	{"Chennai", 13.0827, 80.2707},
	{"Kolkata", 22.5726, 88.3639},
}

// crimeTypes and their sampling weights; heavier on property crime.
var crimeTypes = []struct {
	name   string
	weight float64
}{
	{"Theft", 0.4},
	{"Assault", 0.2},
	{"Burglary", 0.15},
	{"Vandalism", 0.1},
	{"Fraud", 0.1},
	{"Harassment", 0.05},
}

// coordSpread is the coordinate noise sigma, roughly 5km around a center.
const coordSpread = 0.05

// Synthesize generates n deterministic synthetic incidents over one calendar
// year, scattered around major city centers. The same seed always yields the
// same dataset.
func Synthesize(n int, seed int64) ([]model.Incident, error) {
	if n <= 0 {
		return nil, eris.Wrapf(model.ErrValidation, "ingest: sample count must be positive, got %d", n)
	}

	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	const yearDays = 364

	incidents := make([]model.Incident, n)
	for i := range incidents {
		city := defaultCities[rng.Intn(len(defaultCities))]
		ts := start.
			AddDate(0, 0, rng.Intn(yearDays)).
			Add(time.Duration(rng.Intn(24)) * time.Hour)

		incidents[i] = model.Incident{
			Latitude:  city.lat + rng.NormFloat64()*coordSpread,
			Longitude: city.lon + rng.NormFloat64()*coordSpread,
			Timestamp: ts,
			CrimeType: pickCrimeType(rng),
			Severity:  model.MinSeverity + rng.Intn(model.MaxSeverity-model.MinSeverity+1),
			City:      city.name,
		}
	}
	return incidents, nil
}

func pickCrimeType(rng *rand.Rand) string {
	r := rng.Float64()
	var cum float64
	for _, ct := range crimeTypes {
		cum += ct.weight
		if r < cum {
			return ct.name
		}
	}
	return crimeTypes[len(crimeTypes)-1].name
}
