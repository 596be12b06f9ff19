package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"reviewetl/internal/reports"
	"reviewetl/internal/s3util"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "sink.dsn",
// "source.locations[1]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var (
	sourceKinds = map[string]bool{"file": true, "s3": true, "http": true}
	sinkKinds   = map[string]bool{
		"file": true, "s3": true, "sqlite": true, "postgres": true,
		"mssql": true, "mysql": true, "snowflake": true,
	}
	logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// ValidateJob performs static checks over j. It does not mutate j or touch
// the network; it only reports what is certainly wrong (errors) or likely
// wrong (warnings).
func ValidateJob(j Job) []Issue {
	var issues []Issue
	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, errIssue("job", "job must not be empty; it labels logs, metrics and the manifest"))
	}
	issues = append(issues, validateSource(j.Source)...)
	issues = append(issues, validateSink(j.Sink, j.Destinations)...)
	issues = append(issues, validateDestinations(j.Destinations)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateLogging(j.Logging)...)
	issues = append(issues, validateMetrics(j.Metrics)...)
	return issues
}

// Validate returns nil when j has no error-severity issues, otherwise an
// error wrapping ErrInvalidConfig and every error issue.
func Validate(j Job) error {
	var errs []error
	for _, iss := range ValidateJob(j) {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func errIssue(path, msg string) Issue  { return Issue{Severity: SeverityError, Path: path, Message: msg} }
func warnIssue(path, msg string) Issue { return Issue{Severity: SeverityWarning, Path: path, Message: msg} }

func validateSource(s Source) []Issue {
	var issues []Issue

	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	switch {
	case kind == "":
		issues = append(issues, errIssue("source.kind", "source.kind must not be empty"))
	case !sourceKinds[kind]:
		issues = append(issues, errIssue("source.kind", fmt.Sprintf("unknown source kind %q (want file, s3 or http)", s.Kind)))
	}

	if len(s.Locations) == 0 && strings.TrimSpace(s.LocationsFile) == "" {
		issues = append(issues, errIssue("source.locations", "at least one location or a locations_file is required"))
	}
	for i, loc := range s.Locations {
		path := fmt.Sprintf("source.locations[%d]", i)
		switch {
		case strings.TrimSpace(loc) == "":
			issues = append(issues, errIssue(path, "location must not be empty"))
		case kind == "s3":
			if _, _, err := s3util.ParseURI(loc); err != nil {
				issues = append(issues, errIssue(path, err.Error()))
			}
		case kind == "http":
			if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
				issues = append(issues, errIssue(path, "http source locations must be http(s) URLs"))
			}
		}
	}

	if f := strings.ToLower(s.Format); f != "" && f != "csv" {
		issues = append(issues, errIssue("source.format", fmt.Sprintf("unsupported format %q; only csv is supported", s.Format)))
	}
	if d := s.Options.String("delimiter", ","); d != `\t` && utf8.RuneCountInString(d) != 1 {
		issues = append(issues, errIssue("source.options.delimiter", "delimiter must be a single character"))
	}
	if s.HTTP.MaxRetries < 0 {
		issues = append(issues, errIssue("source.http.max_retries", "max_retries must be >= 0"))
	}
	if kind != "http" && len(s.HTTP.Headers) > 0 {
		issues = append(issues, warnIssue("source.http.headers", "headers are ignored unless source.kind is http"))
	}
	return issues
}

func validateSink(s Sink, d Destinations) []Issue {
	var issues []Issue

	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	switch {
	case kind == "":
		return append(issues, errIssue("sink.kind", "sink.kind must not be empty"))
	case !sinkKinds[kind]:
		issues = append(issues, warnIssue("sink.kind", fmt.Sprintf("unknown sink kind %q; ensure a matching backend is registered", s.Kind)))
	}

	switch kind {
	case "file":
	case "s3":
		for _, p := range d.paths() {
			if p.v == "" {
				continue
			}
			if _, _, err := s3util.ParseURI(p.v); err != nil {
				issues = append(issues, errIssue(p.path, "s3 sink destinations must be s3:// URIs"))
			}
		}
	default:
		if strings.TrimSpace(s.DSN) == "" {
			issues = append(issues, errIssue("sink.dsn", fmt.Sprintf("%s sink requires a dsn", kind)))
		}
	}
	if s.BatchSize < 0 {
		issues = append(issues, errIssue("sink.batch_size", "batch_size must be >= 0"))
	}
	return issues
}

type destPath struct{ path, v string }

// paths returns every destination with its config path, in file order.
func (d Destinations) paths() []destPath {
	return []destPath{
		{"destinations.cleaned", d.Cleaned},
		{"destinations.analytics_root", d.AnalyticsRoot},
		{"destinations.product_rating_summary", d.ProductRatingSummary},
		{"destinations.daily_review_trends", d.DailyReviewTrends},
		{"destinations.top_active_customers", d.TopActiveCustomers},
		{"destinations.rating_distribution", d.RatingDistribution},
	}
}

func validateDestinations(d Destinations) []Issue {
	var issues []Issue
	if strings.TrimSpace(d.Cleaned) == "" {
		issues = append(issues, errIssue("destinations.cleaned", "cleaned destination must not be empty"))
	}
	if strings.TrimSpace(d.AnalyticsRoot) == "" {
		for _, p := range d.paths()[2:] {
			if strings.TrimSpace(p.v) == "" {
				issues = append(issues, errIssue(p.path, "required when destinations.analytics_root is empty"))
			}
		}
	}

	// Compare where each table actually lands: report paths derived from
	// analytics_root included. A later save at the same place replaces the
	// earlier artifact.
	resolved := d.Resolved()
	targets := []destPath{{"destinations.cleaned", resolved.Cleaned}}
	for _, name := range reports.Names {
		src := "destinations.analytics_root (" + name + ")"
		if d.override(name) != "" {
			src = "destinations." + name
		}
		targets = append(targets, destPath{src, resolved.Reports[name]})
	}

	seen := map[string]string{}
	for _, p := range targets {
		if strings.TrimSpace(p.v) == "" {
			continue
		}
		key := sameDestinationKey(p.v)
		if other, dup := seen[key]; dup {
			issues = append(issues, errIssue(p.path, fmt.Sprintf("same destination as %s; one save would replace the other", other)))
			continue
		}
		seen[key] = p.path
	}
	return issues
}

// sameDestinationKey folds spellings of one location together: a file://
// scheme, trailing slashes and, for local paths, "." and ".." segments.
func sameDestinationKey(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "file://")
	if !strings.Contains(v, "://") {
		v = filepath.Clean(v)
	}
	return strings.TrimRight(v, "/")
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.NormalizeWorkers < 0 {
		issues = append(issues, errIssue("runtime.normalize_workers", "must be >= 0 (0 means GOMAXPROCS)"))
	}
	if r.AggregateWorkers < 0 {
		issues = append(issues, errIssue("runtime.aggregate_workers", "must be >= 0 (0 means GOMAXPROCS)"))
	}
	return issues
}

func validateLogging(l Logging) []Issue {
	var issues []Issue
	if l.Level != "" && !logLevels[strings.ToLower(l.Level)] {
		issues = append(issues, errIssue("logging.level", fmt.Sprintf("unknown level %q", l.Level)))
	}
	if f := strings.ToLower(l.Format); f != "" && f != "json" && f != "console" {
		issues = append(issues, errIssue("logging.format", "format must be json or console"))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, errIssue("metrics.pushgateway_url", "required for the prometheus backend"))
		}
	case "datadog", "dd":
		if m.DatadogAddr == "" {
			issues = append(issues, errIssue("metrics.datadog_addr", "required for the datadog backend"))
		}
	default:
		issues = append(issues, errIssue("metrics.backend", fmt.Sprintf("unknown metrics backend %q", m.Backend)))
	}
	return issues
}
