// Package config defines the job configuration for a review ETL run and
// loads it from a YAML/JSON file layered with environment overrides.
//
// Example (trimmed):
//
//	job: nightly-reviews
//	source:
//	  kind: s3
//	  locations: ["s3://landing/reviews/"]
//	  options: { header: true, infer_schema: true }
//	sink:
//	  kind: s3
//	destinations:
//	  cleaned: s3://processed/processed-data/
//	  analytics_root: s3://processed/analytics/
package config

import (
	"strconv"
	"strings"
	"time"

	"reviewetl/internal/output"
	"reviewetl/internal/reports"
	"reviewetl/internal/s3util"
)

// Job is the top-level configuration object.
type Job struct {
	// Job names the run in logs, metrics and the manifest.
	Job string `koanf:"job"`

	Source       Source       `koanf:"source"`
	Sink         Sink         `koanf:"sink"`
	Destinations Destinations `koanf:"destinations"`
	Runtime      Runtime      `koanf:"runtime"`
	Manifest     Manifest     `koanf:"manifest"`
	Logging      Logging      `koanf:"logging"`
	Metrics      Metrics      `koanf:"metrics"`
}

// Source describes where raw review files are read from.
type Source struct {
	// Kind selects the byte store: "file", "s3" or "http".
	Kind string `koanf:"kind"`
	// Locations are directories, prefixes, files or URLs, read recursively.
	Locations []string `koanf:"locations"`
	// LocationsFile names a text file with one location per line; its entries
	// are appended to Locations.
	LocationsFile string `koanf:"locations_file"`
	// Format is the input format; only "csv" is supported.
	Format string `koanf:"format"`
	// Options is the reader option bag: header (bool), infer_schema (bool),
	// delimiter (string), canonical_headers (bool), header_map (object).
	Options Options       `koanf:"options"`
	S3      s3util.Config `koanf:"s3"`
	HTTP    HTTPSource    `koanf:"http"`
}

// HTTPSource configures the "http" source kind.
type HTTPSource struct {
	Timeout            time.Duration     `koanf:"timeout"`
	MaxRetries         int               `koanf:"max_retries"`
	InsecureSkipVerify bool              `koanf:"insecure_skip_verify"`
	Headers            map[string]string `koanf:"headers"`
}

// Sink selects the backend every table is saved through.
type Sink struct {
	// Kind is a storage kind: file, s3, sqlite, postgres, mssql, mysql or
	// snowflake.
	Kind string `koanf:"kind"`
	// DSN is the connection string for database kinds.
	DSN string `koanf:"dsn"`
	// BatchSize bounds rows per insert batch for database kinds.
	BatchSize int           `koanf:"batch_size"`
	S3        s3util.Config `koanf:"s3"`
}

// Destinations map each output to a location understood by the sink.
// Empty report destinations default to named sub-paths of AnalyticsRoot.
type Destinations struct {
	Cleaned              string `koanf:"cleaned"`
	AnalyticsRoot        string `koanf:"analytics_root"`
	ProductRatingSummary string `koanf:"product_rating_summary"`
	DailyReviewTrends    string `koanf:"daily_review_trends"`
	TopActiveCustomers   string `koanf:"top_active_customers"`
	RatingDistribution   string `koanf:"rating_distribution"`
}

// Resolved returns where the cleaned table and each report are written.
func (d Destinations) Resolved() output.Destinations {
	overrides := make(map[string]string, len(reports.Names))
	for _, name := range reports.Names {
		overrides[name] = d.override(name)
	}
	return output.NewDestinations(d.Cleaned, d.AnalyticsRoot, overrides)
}

func (d Destinations) override(report string) string {
	switch report {
	case reports.ProductRatingSummary:
		return d.ProductRatingSummary
	case reports.DailyReviewTrends:
		return d.DailyReviewTrends
	case reports.TopActiveCustomers:
		return d.TopActiveCustomers
	case reports.RatingDistribution:
		return d.RatingDistribution
	}
	return ""
}

// Runtime tunes internal parallelism; <= 0 means GOMAXPROCS.
type Runtime struct {
	NormalizeWorkers int `koanf:"normalize_workers"`
	AggregateWorkers int `koanf:"aggregate_workers"`
}

// Manifest configures the optional run manifest. An empty Path disables it.
type Manifest struct {
	Path string `koanf:"path"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string `koanf:"backend"` // none, prometheus or datadog
	PushgatewayURL string `koanf:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr"`
}

// Defaults returns the configuration every loaded file is layered on.
func Defaults() Job {
	return Job{
		Job: "reviewetl",
		Source: Source{
			Kind:    "file",
			Format:  "csv",
			Options: Options{"header": true, "infer_schema": true},
		},
		Sink:    Sink{Kind: "file"},
		Logging: Logging{Level: "info", Format: "json"},
		Metrics: Metrics{Backend: "none"},
	}
}

// Options fetches typed values from a free-form option bag. Values may come
// from YAML (typed) or from environment variables (strings), so getters
// coerce strings where the intent is unambiguous and otherwise return def.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def. "true"/"false" strings are
// accepted.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Int returns the integer value for key or def.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for single-character settings such as a delimiter.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		if s == `\t` {
			return '\t'
		}
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the string-valued entries of an object value for key.
// Returns an empty map when the key is missing or not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if m, ok := o[key].(map[string]any); ok {
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}
