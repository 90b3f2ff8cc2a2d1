package geo

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateCodes maps canonical state names to their ISO 3166-2:IN codes.
var stateCodes = map[string]string{
	"Maharashtra":    "MH",
	"Gujarat":        "GJ",
	"Karnataka":      "KA",
	"Tamil Nadu":     "TN",
	"Delhi":          "DL",
	"West Bengal":    "WB",
	"Telangana":      "TG",
	"Rajasthan":      "RJ",
	"Uttar Pradesh":  "UP",
	"Punjab":         "PB",
	"Haryana":        "HR",
	"Kerala":         "KL",
	"Madhya Pradesh": "MP",
	"Bihar":          "BR",
	"Odisha":         "OD",
	"Assam":          "AS",
}

// cityIndex maps well-known cities to their state.
var cityIndex = map[string]string{
	"Mumbai":      "Maharashtra",
	"Pune":        "Maharashtra",
	"Nagpur":      "Maharashtra",
	"Ahmedabad":   "Gujarat",
	"Surat":       "Gujarat",
	"Vadodara":    "Gujarat",
	"Bengaluru":   "Karnataka",
	"Bangalore":   "Karnataka",
	"Mysuru":      "Karnataka",
	"Chennai":     "Tamil Nadu",
	"Coimbatore":  "Tamil Nadu",
	"New Delhi":   "Delhi",
	"Kolkata":     "West Bengal",
	"Hyderabad":   "Telangana",
	"Jaipur":      "Rajasthan",
	"Jodhpur":     "Rajasthan",
	"Lucknow":     "Uttar Pradesh",
	"Kanpur":      "Uttar Pradesh",
	"Ludhiana":    "Punjab",
	"Amritsar":    "Punjab",
	"Gurugram":    "Haryana",
	"Kochi":       "Kerala",
	"Indore":      "Madhya Pradesh",
	"Bhopal":      "Madhya Pradesh",
	"Patna":       "Bihar",
	"Bhubaneswar": "Odisha",
	"Guwahati":    "Assam",
}

var titleCaser = cases.Title(language.English)

// StaticResolver resolves against the built-in city/state tables. It accepts
// bare city names ("Mumbai"), bare state names ("Gujarat"), and
// comma-separated forms ("Mumbai, Maharashtra").
type StaticResolver struct{}

// NewStaticResolver returns the table-backed resolver.
func NewStaticResolver() *StaticResolver { return &StaticResolver{} }

// Resolve implements Resolver. It never returns a non-nil error; unknown
// input yields a zero-confidence Resolution.
func (s *StaticResolver) Resolve(_ context.Context, raw string) (Resolution, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Resolution{}, nil
	}

	// "City, State": the state segment wins when it is recognized.
	if idx := strings.IndexByte(raw, ','); idx >= 0 {
		city := normalize(raw[:idx])
		state := normalize(raw[idx+1:])
		if code, ok := stateCodes[state]; ok {
			return Resolution{State: state, City: city, StateCode: code, Confidence: 0.95}, nil
		}
		raw = raw[:idx]
	}

	token := normalize(raw)
	if state, ok := cityIndex[token]; ok {
		return Resolution{State: state, City: token, StateCode: stateCodes[state], Confidence: 0.9}, nil
	}
	if code, ok := stateCodes[token]; ok {
		return Resolution{State: token, StateCode: code, Confidence: 0.8}, nil
	}

	// Prefix match against cities covers truncated inputs ("Bengalur").
	for city, state := range cityIndex {
		if strings.HasPrefix(city, token) && len(token) >= 4 {
			return Resolution{State: state, City: city, StateCode: stateCodes[state], Confidence: 0.6}, nil
		}
	}
	return Resolution{}, nil
}

func normalize(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}
