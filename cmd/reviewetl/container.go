package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"reviewetl/internal/config"
	"reviewetl/internal/datasource"
	"reviewetl/internal/datasource/file"
	"reviewetl/internal/datasource/httpds"
	dss3 "reviewetl/internal/datasource/s3"
	"reviewetl/internal/metrics"
	"reviewetl/internal/metrics/datadog"
	"reviewetl/internal/metrics/prompush"
	"reviewetl/internal/output"
	"reviewetl/internal/s3util"
	"reviewetl/internal/storage"
)

// newS3Client is a test hook.
var newS3Client = func(ctx context.Context, cfg s3util.Config) (dss3.API, error) {
	return s3util.NewClient(ctx, cfg)
}

// buildSource returns the loader for the configured store together with the
// full location list (inline locations first, then locations_file entries).
func buildSource(ctx context.Context, s config.Source, logger *zap.Logger) (datasource.Source, []string, error) {
	locations := append([]string(nil), s.Locations...)
	if s.LocationsFile != "" {
		more, err := file.ReadLocations(s.LocationsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("locations_file: %w", err)
		}
		locations = append(locations, more...)
	}

	var store datasource.Store
	switch strings.ToLower(s.Kind) {
	case "file", "":
		store = file.NewStore()
	case "s3":
		api, err := newS3Client(ctx, s.S3)
		if err != nil {
			return nil, nil, err
		}
		store = dss3.NewStore(api)
	case "http":
		headers := http.Header{}
		for k, v := range s.HTTP.Headers {
			headers.Set(k, v)
		}
		client := httpds.NewClient(httpds.Config{
			Timeout:            s.HTTP.Timeout,
			MaxRetries:         s.HTTP.MaxRetries,
			InsecureSkipVerify: s.HTTP.InsecureSkipVerify,
		})
		store = httpds.NewStore(client, headers)
	default:
		return nil, nil, fmt.Errorf("unsupported source.kind=%q", s.Kind)
	}
	return datasource.NewLoader(store, logger), locations, nil
}

func loadOptions(s config.Source) datasource.LoadOptions {
	return datasource.LoadOptions{
		Format:           s.Format,
		HeaderPresent:    s.Options.Bool("header", true),
		InferTypes:       s.Options.Bool("infer_schema", true),
		Comma:            s.Options.Rune("delimiter", ','),
		CanonicalHeaders: s.Options.Bool("canonical_headers", false),
		HeaderMap:        s.Options.StringMap("header_map"),
		TrimSpace:        s.Options.Bool("trim_space", false),
	}
}

func newWriter(sink storage.Sink, d config.Destinations, logger *zap.Logger) *output.Writer {
	return output.NewWriter(sink, d.Resolved(), logger)
}

// newMetricsBackend returns nil, nil when metrics are disabled.
func newMetricsBackend(job string, m config.Metrics) (metrics.Backend, error) {
	switch strings.ToLower(m.Backend) {
	case "", "none":
		return nil, nil
	case "prometheus", "prom", "pushgateway":
		return prompush.NewBackend(job, m.PushgatewayURL)
	case "datadog", "dd":
		return datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			GlobalTags: []string{"job:" + job},
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
}
