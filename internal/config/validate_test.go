package config

import (
	"errors"
	"strings"
	"testing"
)

func validJob() Job {
	j := Defaults()
	j.Source.Locations = []string{"data/reviews"}
	j.Destinations = Destinations{Cleaned: "out/cleaned", AnalyticsRoot: "out/analytics"}
	return j
}

func TestValidateJob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(j *Job)
		wantPath string
		wantSev  IssueSeverity
	}{
		{"valid", func(*Job) {}, "", ""},
		{"empty job", func(j *Job) { j.Job = " " }, "job", SeverityError},
		{"unknown source kind", func(j *Job) { j.Source.Kind = "ftp" }, "source.kind", SeverityError},
		{"no locations", func(j *Job) { j.Source.Locations = nil }, "source.locations", SeverityError},
		{"locations file suffices", func(j *Job) { j.Source.Locations = nil; j.Source.LocationsFile = "list.txt" }, "", ""},
		{"s3 location must be uri", func(j *Job) { j.Source.Kind = "s3" }, "source.locations[0]", SeverityError},
		{"http location must be url", func(j *Job) { j.Source.Kind = "http" }, "source.locations[0]", SeverityError},
		{"parquet rejected", func(j *Job) { j.Source.Format = "parquet" }, "source.format", SeverityError},
		{"long delimiter", func(j *Job) { j.Source.Options["delimiter"] = "||" }, "source.options.delimiter", SeverityError},
		{"tab delimiter", func(j *Job) { j.Source.Options["delimiter"] = `\t` }, "", ""},
		{"headers without http", func(j *Job) { j.Source.HTTP.Headers = map[string]string{"A": "b"} }, "source.http.headers", SeverityWarning},
		{"unknown sink warns", func(j *Job) { j.Sink.Kind = "clickhouse"; j.Sink.DSN = "x" }, "sink.kind", SeverityWarning},
		{"db sink needs dsn", func(j *Job) { j.Sink.Kind = "postgres" }, "sink.dsn", SeverityError},
		{"s3 sink needs s3 destinations", func(j *Job) { j.Sink.Kind = "s3" }, "destinations.cleaned", SeverityError},
		{"missing cleaned", func(j *Job) { j.Destinations.Cleaned = "" }, "destinations.cleaned", SeverityError},
		{"missing root without overrides", func(j *Job) { j.Destinations.AnalyticsRoot = "" }, "destinations.product_rating_summary", SeverityError},
		{"duplicate destination", func(j *Job) { j.Destinations.DailyReviewTrends = "out/cleaned/" }, "destinations.daily_review_trends", SeverityError},
		{"cleaned at analytics root", func(j *Job) { j.Destinations.Cleaned = "out/analytics/" }, "destinations.analytics_root (product_rating_summary)", SeverityError},
		{"cleaned at derived report path", func(j *Job) { j.Destinations.Cleaned = "file://./out/analytics/daily_review_trends" }, "destinations.analytics_root (daily_review_trends)", SeverityError},
		{"override at derived report path", func(j *Job) { j.Destinations.RatingDistribution = "out/analytics/top_active_customers" }, "destinations.rating_distribution", SeverityError},
		{"negative workers", func(j *Job) { j.Runtime.AggregateWorkers = -1 }, "runtime.aggregate_workers", SeverityError},
		{"bad log level", func(j *Job) { j.Logging.Level = "trace" }, "logging.level", SeverityError},
		{"bad log format", func(j *Job) { j.Logging.Format = "xml" }, "logging.format", SeverityError},
		{"prometheus needs url", func(j *Job) { j.Metrics.Backend = "prometheus" }, "metrics.pushgateway_url", SeverityError},
		{"datadog needs addr", func(j *Job) { j.Metrics.Backend = "datadog" }, "metrics.datadog_addr", SeverityError},
		{"unknown metrics backend", func(j *Job) { j.Metrics.Backend = "graphite" }, "metrics.backend", SeverityError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			j := validJob()
			tt.mutate(&j)
			issues := ValidateJob(j)

			if tt.wantPath == "" {
				if len(issues) != 0 {
					t.Fatalf("ValidateJob() = %v, want no issues", issues)
				}
				return
			}
			for _, iss := range issues {
				if iss.Path == tt.wantPath && iss.Severity == tt.wantSev {
					return
				}
			}
			t.Fatalf("ValidateJob() = %v, want %s issue at %s", issues, tt.wantSev, tt.wantPath)
		})
	}
}

func TestDestinationsResolved(t *testing.T) {
	t.Parallel()

	d := Destinations{
		Cleaned:            "out/cleaned",
		AnalyticsRoot:      "out/analytics/",
		RatingDistribution: "elsewhere/dist",
	}.Resolved()

	want := map[string]string{
		"product_rating_summary": "out/analytics/",
		"daily_review_trends":    "out/analytics/daily_review_trends/",
		"top_active_customers":   "out/analytics/top_active_customers/",
		"rating_distribution":    "elsewhere/dist",
	}
	if d.Cleaned != "out/cleaned" {
		t.Fatalf("cleaned = %q", d.Cleaned)
	}
	for name, w := range want {
		if got := d.Reports[name]; got != w {
			t.Errorf("%s = %q, want %q", name, got, w)
		}
	}
}

func TestValidate_WrapsErrorsOnly(t *testing.T) {
	t.Parallel()

	j := validJob()
	j.Sink.Kind = "clickhouse"
	j.Sink.DSN = "x"
	if err := Validate(j); err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}

	j.Logging.Level = "loud"
	err := Validate(j)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	var iss Issue
	if !errors.As(err, &iss) || iss.Path != "logging.level" {
		t.Fatalf("errors.As(Issue) = %+v", iss)
	}
	if strings.Contains(err.Error(), "clickhouse") {
		t.Fatalf("warning leaked into error: %v", err)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":     "x",
		"b":     true,
		"bs":    "false",
		"i":     3,
		"is":    " 7 ",
		"f":     2.9,
		"tab":   `\t`,
		"m":     map[string]any{"Review Text": "review_text", "n": 1},
		"wrong": []any{1},
	}

	if got := o.String("s", "d"); got != "x" {
		t.Errorf("String = %q", got)
	}
	if got := o.String("wrong", "d"); got != "d" {
		t.Errorf("String(wrong) = %q", got)
	}
	if !o.Bool("b", false) || o.Bool("bs", true) || !o.Bool("missing", true) {
		t.Error("Bool coercion mismatch")
	}
	if o.Int("i", 0) != 3 || o.Int("is", 0) != 7 || o.Int("f", 0) != 2 || o.Int("wrong", 5) != 5 {
		t.Error("Int coercion mismatch")
	}
	if o.Rune("tab", ',') != '\t' || o.Rune("s", ',') != 'x' || o.Rune("missing", ',') != ',' {
		t.Error("Rune mismatch")
	}
	if m := o.StringMap("m"); len(m) != 1 || m["Review Text"] != "review_text" {
		t.Errorf("StringMap = %v", m)
	}
}
