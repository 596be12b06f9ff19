package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix starts every environment override. A double underscore descends
// one level: REVIEWETL_SINK__DSN sets sink.dsn.
const EnvPrefix = "REVIEWETL_"

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: %s: %v", ErrLoadConfig, f, err)
		}
	}
	return nil
}

// Load builds a Job by layering, from low to high precedence:
//  1. Defaults()
//  2. the YAML or JSON file at path, when path is not empty
//  3. REVIEWETL_* environment variables
//
// The result is not validated; see ValidateJob.
func Load(path string) (*Job, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLoadConfig, err)
	}
	return &cfg, nil
}

// listKeys are decoded from comma separated environment values.
var listKeys = map[string]bool{
	"source.locations": true,
}

// envKey maps REVIEWETL_SOURCE__S3__PATH_STYLE to source.s3.path_style.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// envValue maps an environment variable to its key and value. Values of
// listKeys are split on commas with blank items dropped.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	items := make([]string, 0, strings.Count(value, ",")+1)
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			items = append(items, v)
		}
	}
	return key, items
}
