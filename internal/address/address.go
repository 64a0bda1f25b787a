// Package address builds the candidate lookup strings for a hospital row.
//
// Three candidates exist per row, tried in this order by the resolver:
// street-level, hospital-name-level, and city-centroid-level.
package address

import (
	"strings"

	"github.com/sells-group/hospital-geocoder/internal/table"
)

// Columns names the input columns the builders read. Names are exact and
// case-sensitive.
type Columns struct {
	Street      string
	CityCol     string
	State       string
	Zip         string
	HospitalCol string
}

// DefaultColumns returns the column names of the standard hospital export.
func DefaultColumns() Columns {
	return Columns{
		Street:      "Street_Address",
		CityCol:     "City",
		State:       "State",
		Zip:         "ZIP_Code",
		HospitalCol: "Hospital_Name",
	}
}

// Required lists every column the builders depend on, for header validation.
func (c Columns) Required() []string {
	return []string{c.Street, c.CityCol, c.State, c.Zip, c.HospitalCol}
}

// Primary builds the street-level candidate: street, city, state, zip.
func (c Columns) Primary(row table.Row) string {
	return joinNonEmpty(row[c.Street], row[c.CityCol], row[c.State], row[c.Zip])
}

// Hospital builds the name-level candidate: hospital name, city, state, zip.
func (c Columns) Hospital(row table.Row) string {
	return joinNonEmpty(row[c.HospitalCol], row[c.CityCol], row[c.State], row[c.Zip])
}

// City builds the centroid candidate: city, state, zip.
func (c Columns) City(row table.Row) string {
	return joinNonEmpty(row[c.CityCol], row[c.State], row[c.Zip])
}

// joinNonEmpty joins the trimmed non-empty parts with ", ".
func joinNonEmpty(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}
