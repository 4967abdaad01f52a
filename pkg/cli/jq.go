package cli

import (
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter runs the jq expression expr over v and returns every value it
// emits. v is first converted to its JSON form so field names follow the
// json tags of the result types.
func Filter(v any, expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	input, err := toGeneric(v)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				return out, nil
			}
			return nil, fmt.Errorf("jq %q: %w", expr, err)
		}
		out = append(out, v)
	}
}
