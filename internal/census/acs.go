// Package census fetches ACS demographic data and TIGERweb block-group
// boundaries for a county, and spatially assigns parcels to block groups.
package census

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parcelworks/lvt-cli/internal/fetcher"
	"github.com/parcelworks/lvt-cli/internal/geoid"
	"github.com/parcelworks/lvt-cli/internal/model"
)

const (
	defaultACSBaseURL   = "https://api.census.gov/data"
	defaultTigerBaseURL = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/2/query"

	// ACS publishes large negative sentinels for suppressed estimates.
	acsSuppressed = -666666666
)

// acsVariable maps an ACS table code to the covariate name it populates.
type acsVariable struct {
	Code string
	Name string
}

// The ACS 5-year variables fetched per block group. Order matters: the API
// returns columns in request order.
var acsVariables = []acsVariable{
	{"B19013_001E", "median_income"},
	{"B01003_001E", "total_pop"},
	{"B03002_003E", "white_pop"},
	{"B03002_004E", "black_pop"},
	{"B03002_012E", "hispanic_pop"},
}

// incomeBracketBounds derive the income_bracket label from median income.
var incomeBracketBounds = []float64{25000, 50000, 75000, 100000, 150000}

// Client fetches census data over HTTP.
type Client struct {
	fetcher  fetcher.Fetcher
	apiKey   string
	acsURL   string
	tigerURL string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithACSBaseURL overrides the ACS API base URL.
func WithACSBaseURL(u string) ClientOption {
	return func(c *Client) { c.acsURL = u }
}

// WithTigerBaseURL overrides the TIGERweb query URL.
func WithTigerBaseURL(u string) ClientOption {
	return func(c *Client) { c.tigerURL = u }
}

// NewClient creates a census client. The API key is required for ACS
// demographic queries but not for TIGERweb boundaries.
func NewClient(f fetcher.Fetcher, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		fetcher:  f,
		apiKey:   apiKey,
		acsURL:   defaultACSBaseURL,
		tigerURL: defaultTigerBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchBlockGroups fetches ACS 5-year demographic data for every block group
// in a 5-digit county FIPS. Suppressed estimates become absent covariates,
// never zeros.
func (c *Client) FetchBlockGroups(ctx context.Context, countyFIPS string, year int) ([]model.CensusTract, error) {
	if c.apiKey == "" {
		return nil, eris.New("census: API key is required for ACS queries")
	}
	stateFIPS, county, err := geoid.SplitCountyFIPS(countyFIPS)
	if err != nil {
		return nil, eris.Wrap(err, "census: county FIPS")
	}

	fields := make([]string, 0, len(acsVariables)+1)
	fields = append(fields, "NAME")
	for _, v := range acsVariables {
		fields = append(fields, v.Code)
	}

	q := url.Values{}
	q.Set("get", strings.Join(fields, ","))
	q.Set("for", "block group:*")
	q.Set("in", "state:"+stateFIPS+" county:"+county)
	q.Set("key", c.apiKey)
	u := c.acsURL + "/" + strconv.Itoa(year) + "/acs/acs5?" + q.Encode()

	body, err := c.fetcher.Download(ctx, u)
	if err != nil {
		return nil, eris.Wrapf(err, "census: fetch ACS data for %s", countyFIPS)
	}
	defer body.Close() //nolint:errcheck

	// The ACS API returns an array of string arrays, header row first;
	// suppressed or missing estimates come back as null.
	var table [][]*string
	if err := json.NewDecoder(body).Decode(&table); err != nil {
		return nil, eris.Wrap(err, "census: decode ACS response")
	}
	if len(table) < 2 {
		return nil, eris.Errorf("census: ACS returned no block groups for %s", countyFIPS)
	}

	tracts, err := parseACSTable(table)
	if err != nil {
		return nil, err
	}

	zap.L().Info("census: ACS block groups fetched",
		zap.String("county_fips", countyFIPS),
		zap.Int("year", year),
		zap.Int("block_groups", len(tracts)),
	)
	return tracts, nil
}

// parseACSTable converts the raw ACS row/column response into CensusTract
// records with a composed block-group GEOID.
func parseACSTable(table [][]*string) ([]model.CensusTract, error) {
	header := table[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		if h != nil {
			col[*h] = i
		}
	}
	for _, name := range []string{"NAME", "state", "county", "tract", "block group"} {
		if _, ok := col[name]; !ok {
			return nil, eris.Errorf("census: ACS response missing column %q", name)
		}
	}

	cell := func(row []*string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) || row[i] == nil {
			return ""
		}
		return *row[i]
	}

	tracts := make([]model.CensusTract, 0, len(table)-1)
	for _, row := range table[1:] {
		gid, err := geoid.Compose(cell(row, "state"), cell(row, "county"), cell(row, "tract"), cell(row, "block group"))
		if err != nil {
			return nil, eris.Wrap(err, "census: compose GEOID")
		}

		t := model.CensusTract{
			GeoID:      gid,
			Name:       cell(row, "NAME"),
			Covariates: make(map[string]float64, len(acsVariables)),
			Labels:     map[string]string{"tract": gid[:geoid.TractWidth]},
		}

		for _, v := range acsVariables {
			raw := cell(row, v.Code)
			if raw == "" {
				continue
			}
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil || val <= acsSuppressed {
				continue
			}
			t.Covariates[v.Name] = val
		}

		if income, ok := t.Covariates["median_income"]; ok {
			t.Labels["income_bracket"] = model.BracketLabel(income, incomeBracketBounds)
		}

		tracts = append(tracts, t)
	}

	return tracts, nil
}

// CountyData bundles the demographic table and boundary set for one county.
type CountyData struct {
	Tracts     []model.CensusTract
	Boundaries []Boundary
}

// FetchCounty fetches ACS demographics and TIGERweb boundaries concurrently.
func (c *Client) FetchCounty(ctx context.Context, countyFIPS string, year int) (*CountyData, error) {
	var data CountyData

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tracts, err := c.FetchBlockGroups(gCtx, countyFIPS, year)
		if err != nil {
			return err
		}
		data.Tracts = tracts
		return nil
	})
	g.Go(func() error {
		boundaries, err := c.FetchBlockGroupBoundaries(gCtx, countyFIPS)
		if err != nil {
			return err
		}
		data.Boundaries = boundaries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
