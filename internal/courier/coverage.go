package courier

import (
	"strings"

	"ferremas-fulfillment/internal/apperrors"
)

// Coverage is the courier network's serviceable-area table, keyed by comuna.
// It is loaded once at startup and read-only afterwards. Comuna resolution
// must happen before any courier network call: the courier's own API error
// for a bad location is not reliably distinguishable from other failures.
type Coverage struct {
	comunas map[string]string // normalized comuna -> region
}

// NewCoverage builds a coverage table from comuna->region pairs. An empty
// map falls back to the built-in table.
func NewCoverage(comunas map[string]string) *Coverage {
	if len(comunas) == 0 {
		comunas = defaultComunas
	}
	normalized := make(map[string]string, len(comunas))
	for comuna, region := range comunas {
		normalized[normalize(comuna)] = region
	}
	return &Coverage{comunas: normalized}
}

// Resolve checks that the comuna is serviceable and, when a region is given,
// that it matches the table. Returns the canonical region.
func (c *Coverage) Resolve(comuna, region string) (string, error) {
	canonical, ok := c.comunas[normalize(comuna)]
	if !ok {
		return "", apperrors.UnknownLocation(comuna)
	}
	if region != "" && !strings.EqualFold(strings.TrimSpace(region), canonical) {
		return "", apperrors.UnknownLocation(comuna + " (" + region + ")")
	}
	return canonical, nil
}

func normalize(comuna string) string {
	return strings.ToLower(strings.TrimSpace(comuna))
}

// defaultComunas is the courier's published coverage at the time of writing.
var defaultComunas = map[string]string{
	"santiago":     "Metropolitana",
	"providencia":  "Metropolitana",
	"las condes":   "Metropolitana",
	"vitacura":     "Metropolitana",
	"la florida":   "Metropolitana",
	"maipu":        "Metropolitana",
	"puente alto":  "Metropolitana",
	"nunoa":        "Metropolitana",
	"san bernardo": "Metropolitana",
	"valparaiso":   "Valparaiso",
	"vina del mar": "Valparaiso",
	"quilpue":      "Valparaiso",
	"concepcion":   "Biobio",
	"talcahuano":   "Biobio",
	"san pedro":    "Biobio",
	"temuco":       "La Araucania",
	"antofagasta":  "Antofagasta",
	"la serena":    "Coquimbo",
	"coquimbo":     "Coquimbo",
	"rancagua":     "O'Higgins",
	"talca":        "Maule",
	"puerto montt": "Los Lagos",
	"valdivia":     "Los Rios",
	"iquique":      "Tarapaca",
	"arica":        "Arica y Parinacota",
	"punta arenas": "Magallanes",
	"copiapo":      "Atacama",
	"chillan":      "Nuble",
	"coyhaique":    "Aysen",
}
