package enrich

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hospital-geocoder/internal/address"
	"github.com/sells-group/hospital-geocoder/internal/table"
	"github.com/sells-group/hospital-geocoder/pkg/geocode"
)

func newTestProcessor(c geocode.Client) *Processor {
	cols := address.DefaultColumns()
	return NewProcessor(NewResolver(c, cols, 0, 5), cols)
}

func inputTable(rows ...table.Row) *table.Table {
	return &table.Table{
		Columns: []string{"Hospital_Name", "Street_Address", "City", "State", "ZIP_Code"},
		Rows:    rows,
	}
}

func rowFor(name, street, city string) table.Row {
	return table.Row{
		"Hospital_Name":  name,
		"Street_Address": street,
		"City":           city,
		"State":          "IL",
		"ZIP_Code":       "62701",
	}
}

func TestRun_AppendsResultColumnsInOrder(t *testing.T) {
	client := &stubClient{responses: map[string]*geocode.Result{
		"123 Main St, Springfield, IL, 62701": match(39.781721, -89.650148, "L"),
	}}
	p := newTestProcessor(client)

	var out bytes.Buffer
	unmatched, err := p.Run(context.Background(), inputTable(rowFor("General", "123 Main St", "Springfield")), &out, Options{})
	require.NoError(t, err)
	assert.Empty(t, unmatched.Rows)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Hospital_Name,Street_Address,City,State,ZIP_Code,Latitude,Longitude,Geo_Source,Geo_Confidence", lines[0])
	assert.Equal(t, "General,123 Main St,Springfield,IL,62701,39.78172,-89.65015,census_primary,L", lines[1])
}

func TestRun_PreservesRowOrder(t *testing.T) {
	// Mixed cache hits and fallback tiers must not reorder output.
	client := &stubClient{responses: map[string]*geocode.Result{
		"1 A St, Springfield, IL, 62701": match(1, 1, "L"),
		"Springfield, IL, 62701":         match(2, 2, ""),
	}}
	p := newTestProcessor(client)

	src := inputTable(
		rowFor("Alpha", "1 A St", "Springfield"),
		rowFor("Beta", "2 B St", "Springfield"),
		rowFor("Gamma", "1 A St", "Springfield"), // cache hit on Alpha's primary
	)

	var out bytes.Buffer
	_, err := p.Run(context.Background(), src, &out, Options{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Alpha,"))
	assert.True(t, strings.HasPrefix(lines[2], "Beta,"))
	assert.True(t, strings.HasPrefix(lines[3], "Gamma,"))
}

func TestRun_UnmatchedRowsCollected(t *testing.T) {
	client := &stubClient{}
	p := newTestProcessor(client)

	src := inputTable(rowFor("Nowhere Med", "1 Ghost Rd", "Faketown"))

	var out bytes.Buffer
	unmatched, err := p.Run(context.Background(), src, &out, Options{})
	require.NoError(t, err)

	require.Len(t, unmatched.Rows, 1)
	u := unmatched.Rows[0]
	assert.Equal(t, "1 Ghost Rd, Faketown, IL, 62701", u[ColUnmatchedPrimary])
	assert.Equal(t, "Nowhere Med, Faketown, IL, 62701", u[ColUnmatchedHospital])
	assert.Equal(t, "Faketown, IL, 62701", u[ColUnmatchedCity])
	assert.Empty(t, u[ColLatitude])
	assert.Empty(t, u[ColLongitude])

	// Main output keeps the row, with empty coordinates.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Nowhere Med,1 Ghost Rd,Faketown,IL,62701,,,census,", lines[1])

	// Unmatched table carries the augmented columns plus the three candidates.
	assert.Equal(t, []string{
		"Hospital_Name", "Street_Address", "City", "State", "ZIP_Code",
		ColLatitude, ColLongitude, ColSource, ColConfidence,
		ColUnmatchedPrimary, ColUnmatchedHospital, ColUnmatchedCity,
	}, unmatched.Columns)
}

func TestRun_CityTierMatchIsNotUnmatched(t *testing.T) {
	client := &stubClient{responses: map[string]*geocode.Result{
		"Springfield, IL, 62701": match(39.8, -89.6, ""),
	}}
	p := newTestProcessor(client)

	var out bytes.Buffer
	unmatched, err := p.Run(context.Background(), inputTable(rowFor("General", "1 Bad Addr", "Springfield")), &out, Options{})
	require.NoError(t, err)

	assert.Empty(t, unmatched.Rows)
	assert.Contains(t, out.String(), "census_city")
}

func TestRun_MissingRequiredColumn(t *testing.T) {
	src := &table.Table{
		Columns: []string{"Hospital_Name", "City", "State"},
		Rows:    []table.Row{{"Hospital_Name": "General", "City": "Springfield", "State": "IL"}},
	}
	client := &stubClient{}
	p := newTestProcessor(client)

	var out bytes.Buffer
	_, err := p.Run(context.Background(), src, &out, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Street_Address"`)
	assert.Empty(t, client.calls, "no network activity before config validation fails")
	assert.Empty(t, out.String())
}

func TestRun_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	p := newTestProcessor(&stubClient{})

	unmatched, err := p.Run(context.Background(), &table.Table{}, &out, Options{})
	require.NoError(t, err)
	assert.Empty(t, unmatched.Rows)
	assert.Empty(t, out.String())
}

func TestRun_StartAndLimit(t *testing.T) {
	client := &stubClient{}
	p := newTestProcessor(client)

	src := inputTable(
		rowFor("A", "1 A St", "Springfield"),
		rowFor("B", "2 B St", "Springfield"),
		rowFor("C", "3 C St", "Springfield"),
		rowFor("D", "4 D St", "Springfield"),
	)

	var out bytes.Buffer
	_, err := p.Run(context.Background(), src, &out, Options{Start: 1, Limit: 2})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3) // header + rows 1..2
	assert.True(t, strings.HasPrefix(lines[1], "B,"))
	assert.True(t, strings.HasPrefix(lines[2], "C,"))
}

func TestRun_StartBeyondEnd(t *testing.T) {
	p := newTestProcessor(&stubClient{})
	src := inputTable(rowFor("A", "1 A St", "Springfield"))

	var out bytes.Buffer
	unmatched, err := p.Run(context.Background(), src, &out, Options{Start: 10})
	require.NoError(t, err)
	assert.Empty(t, unmatched.Rows)

	// Header only.
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 1)
}

func TestRun_ExistingResultColumnsNotDuplicated(t *testing.T) {
	src := &table.Table{
		Columns: []string{"Hospital_Name", "Street_Address", "City", "State", "ZIP_Code", "Latitude", "Longitude", "Geo_Source", "Geo_Confidence"},
		Rows: []table.Row{{
			"Hospital_Name":  "General",
			"Street_Address": "123 Main St",
			"City":           "Springfield",
			"State":          "IL",
			"ZIP_Code":       "62701",
			"Latitude":       "39.78172",
			"Longitude":      "-89.65015",
			"Geo_Source":     "census_primary",
			"Geo_Confidence": "L",
		}},
	}
	client := &stubClient{}
	p := newTestProcessor(client)

	var out bytes.Buffer
	_, err := p.Run(context.Background(), src, &out, Options{})
	require.NoError(t, err)

	assert.Empty(t, client.calls, "geocoded rows are never re-geocoded")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(src.Columns, ","), lines[0])
	assert.Equal(t, "General,123 Main St,Springfield,IL,62701,39.78172,-89.65015,census_primary,L", lines[1])
}

func TestRun_LookupErrorAbortsRun(t *testing.T) {
	client := &stubClient{err: errors.New("boom")}
	p := newTestProcessor(client)

	var out bytes.Buffer
	_, err := p.Run(context.Background(), inputTable(rowFor("A", "1 A St", "Springfield")), &out, Options{})
	require.Error(t, err)
}
