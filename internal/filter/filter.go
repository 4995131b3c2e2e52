package filter

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Project applies a JMESPath expression to a decoded response body.
// An empty expression returns the body unchanged.
func Project(body any, expression string) (any, error) {
	if expression == "" {
		return body, nil
	}

	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	result, err := jp.Search(body)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}

	return normalize(result)
}

// Compile checks that an expression is valid JMESPath syntax
func Compile(expression string) error {
	if _, err := jmespath.Compile(expression); err != nil {
		return fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}
	return nil
}

// normalize maps search results back onto the encoding/json value space so
// they compare structurally with decoded configuration values
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, float64, string:
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return out, nil
}
