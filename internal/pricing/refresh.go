package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/briandowns/spinner"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
)

// APIRegion is where the AWS Price List API is served from
const APIRegion = "us-east-1"

const (
	yearFilter12 = "Year 1, Year 2"
	yearFilter3  = "Year 3"
)

// PricingAPI defines the Price List operations used (enables mocking)
type PricingAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// productFilter identifies a profile in the Price List API
type productFilter struct {
	DatabaseEngine     string
	EngineMajorVersion string
}

var productFilters = map[string]productFilter{
	lifecycle.KeyMySQL57:            {"MySQL", "5.7"},
	lifecycle.KeyPostgres11:         {"PostgreSQL", "11"},
	lifecycle.KeyPostgres12:         {"PostgreSQL", "12"},
	lifecycle.KeyAuroraMySQL2:       {"Aurora MySQL", "5.7"},
	lifecycle.KeyAuroraPostgreSQL11: {"Aurora PostgreSQL", "11"},
	lifecycle.KeyAuroraPostgreSQL12: {"Aurora PostgreSQL", "12"},
}

// Refresher builds regional schedules from the Price List API
type Refresher struct {
	client       PricingAPI
	rules        *lifecycle.Rules
	limiter      *common.RateLimiter
	ShowProgress bool
}

// NewRefresher creates a refresher; cfg is re-pointed at the Price List API region
func NewRefresher(cfg aws.Config, rules *lifecycle.Rules) *Refresher {
	apiCfg := cfg.Copy()
	apiCfg.Region = APIRegion
	return &Refresher{
		client:  pricing.NewFromConfig(apiCfg),
		rules:   rules,
		limiter: common.NewRateLimiter(),
	}
}

// SetPricingAPI sets a custom Price List API client (for testing)
func (r *Refresher) SetPricingAPI(api PricingAPI) {
	r.client = api
}

// Refresh fetches hourly rates for every tracked profile and returns yearly schedules
func (r *Refresher) Refresh(ctx context.Context) (*OverrideFile, error) {
	out := &OverrideFile{
		GeneratedAt: time.Now().UTC(),
		Source:      "AWS Price List API (AmazonRDS)",
		Schedules:   make(map[string]map[string]Schedule),
	}

	var sp *spinner.Spinner
	if r.ShowProgress {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		sp.Color("green")
		sp.Start()
		defer sp.Stop()
	}

	for _, key := range lifecycle.Keys() {
		filter, ok := productFilters[key]
		if !ok {
			return nil, fmt.Errorf("%w: no Price List filter for %s", common.ErrInternalConsistency, key)
		}
		profile, ok := r.rules.Profile(key)
		if !ok {
			return nil, fmt.Errorf("%w: no profile for %s", common.ErrInternalConsistency, key)
		}
		if sp != nil {
			sp.Suffix = fmt.Sprintf(" Retrieving %s %s extended support pricing", filter.DatabaseEngine, filter.EngineMajorVersion)
		}

		hourly12, err := r.hourlyRates(ctx, filter, yearFilter12)
		if err != nil {
			return nil, err
		}
		hourly3 := hourly12
		if profile.HasYear3Tier() {
			hourly3, err = r.hourlyRates(ctx, filter, yearFilter3)
			if err != nil {
				return nil, err
			}
		}

		byRegion := make(map[string]Schedule, len(hourly12))
		for region, y12 := range hourly12 {
			y3, ok := hourly3[region]
			if !ok {
				common.AppLogger.Warnf("No year 3 price for %s in %s, skipping region", key, region)
				continue
			}
			byRegion[region] = FromHourly(y12, y3)
		}
		out.Schedules[key] = byRegion
	}
	return out, nil
}

// hourlyRates returns region code -> USD per vCPU-hour for one pricing year filter
func (r *Refresher) hourlyRates(ctx context.Context, filter productFilter, year string) (map[string]float64, error) {
	input := &pricing.GetProductsInput{
		ServiceCode:   aws.String("AmazonRDS"),
		FormatVersion: aws.String("aws_v1"),
		Filters: []types.Filter{
			{Type: types.FilterTypeTermMatch, Field: aws.String("databaseEngine"), Value: aws.String(filter.DatabaseEngine)},
			{Type: types.FilterTypeTermMatch, Field: aws.String("engineMajorVersion"), Value: aws.String(filter.EngineMajorVersion)},
			{Type: types.FilterTypeTermMatch, Field: aws.String("extendedSupportPricingYear"), Value: aws.String(year)},
		},
		MaxResults: aws.Int32(100),
	}

	rates := make(map[string]float64)
	paginator := pricing.NewGetProductsPaginator(r.client, input)
	for paginator.HasMorePages() {
		var page *pricing.GetProductsOutput
		err := r.limiter.Do(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("error calling AWS Pricing API for %s %s (%s): %w",
				filter.DatabaseEngine, filter.EngineMajorVersion, year, err)
		}
		for _, doc := range page.PriceList {
			region, rate, ok, err := parsePriceListItem(doc)
			if err != nil {
				return nil, err
			}
			if ok {
				rates[region] = rate
			}
		}
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("no pricing found for %s %s (%s)", filter.DatabaseEngine, filter.EngineMajorVersion, year)
	}
	return rates, nil
}

type priceListItem struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// parsePriceListItem extracts the region code and USD rate from one Price List document.
// ok is false for documents without a USD on-demand price.
func parsePriceListItem(doc string) (region string, rate float64, ok bool, err error) {
	var item priceListItem
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return "", 0, false, fmt.Errorf("failed to decode price list item: %w", err)
	}
	region = item.Product.Attributes["regionCode"]
	if region == "" {
		return "", 0, false, nil
	}
	for _, term := range item.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			usd, found := dim.PricePerUnit["USD"]
			if !found {
				continue
			}
			rate, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return "", 0, false, fmt.Errorf("invalid USD price %q for %s: %w", usd, region, err)
			}
			return region, rate, true, nil
		}
	}
	return region, 0, false, nil
}
