package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sahilm/fuzzy"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/studiowebux/ballast/internal/filter"
	"github.com/studiowebux/ballast/internal/types"
)

// Config is the parsed endpoint file
type Config struct {
	Endpoints []types.Endpoint `json:"endpoints" yaml:"endpoints" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates an endpoint file. The format follows the extension:
// .yaml/.yml are YAML, anything else is JSON (comments and trailing commas allowed).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no endpoint file found at %s", types.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", types.ErrConfiguration, path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var cfg *Config
	if ext == ".yaml" || ext == ".yml" {
		cfg, err = parseYAML(data)
	} else {
		cfg, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", types.ErrConfiguration, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Dynamic values must look exactly like decoded JSON response bodies
	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]
		var err error
		if ep.Body, err = normalize(ep.Body); err != nil {
			return nil, fmt.Errorf("endpoint %q body: %w", ep.Name, err)
		}
		if ep.ExpectedBody, err = normalize(ep.ExpectedBody); err != nil {
			return nil, fmt.Errorf("endpoint %q expected_body: %w", ep.Name, err)
		}
	}
	return &cfg, nil
}

// normalize round-trips a value through encoding/json
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks struct constraints, name uniqueness and body queries
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return fmt.Errorf("%w: %s", types.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", types.ErrConfiguration, err)
	}

	seen := make(map[string]bool, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if seen[ep.Name] {
			return fmt.Errorf("%w: duplicate endpoint name %q", types.ErrConfiguration, ep.Name)
		}
		seen[ep.Name] = true

		if ep.BodyQuery != "" {
			if err := filter.Compile(ep.BodyQuery); err != nil {
				return fmt.Errorf("%w: endpoint %q has invalid body_query: %v", types.ErrConfiguration, ep.Name, err)
			}
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
	}
}

// Names returns endpoint names in configuration order
func (c *Config) Names() []string {
	names := make([]string, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		names[i] = ep.Name
	}
	return names
}

// Find returns the endpoint with the given name
func (c *Config) Find(name string) (*types.Endpoint, error) {
	for i := range c.Endpoints {
		if c.Endpoints[i].Name == name {
			return &c.Endpoints[i], nil
		}
	}
	return nil, &types.EndpointNotFoundError{Name: name, Suggestion: suggest(name, c.Names())}
}

// suggest picks the closest configured name, if any looks related
func suggest(name string, names []string) string {
	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return matches[0].Str
	}
	// The missing name may be longer than the configured one (e.g. "users-v2" vs "users")
	best, bestScore := "", 0
	for _, candidate := range names {
		if matches := fuzzy.Find(candidate, []string{name}); len(matches) > 0 && (best == "" || matches[0].Score > bestScore) {
			best, bestScore = candidate, matches[0].Score
		}
	}
	return best
}
