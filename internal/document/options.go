package document

import (
	"errors"
	"strings"
)

// ErrRandomConflict reports an option configured with both a random
// range and a random value list.
var ErrRandomConflict = errors.New("randomRange and randomValues are mutually exclusive")

// ValidateRandom enforces that at most one randomization source is set.
func (o *MethodOption) ValidateRandom() error {
	if len(o.RandomRange) > 0 && len(o.RandomValues) > 0 {
		return ErrRandomConflict
	}
	return nil
}

// NormalizeOptionValue coerces a configured value into the domain its
// schema declares. Out-of-range numbers clamp, unknown select values
// fall back to the default, and malformed colors fall back to the
// default. A nil value resolves to the schema default.
func NormalizeOptionValue(schema OptionSchema, value any) any {
	if value == nil {
		return schema.DefaultVal
	}
	switch schema.Type {
	case "number":
		n, ok := asFloat(value)
		if !ok {
			return schema.DefaultVal
		}
		if schema.Min != nil && n < *schema.Min {
			n = *schema.Min
		}
		if schema.Max != nil && n > *schema.Max {
			n = *schema.Max
		}
		return n
	case "select":
		for _, v := range schema.Values {
			if v == value {
				return value
			}
		}
		return schema.DefaultVal
	case "color":
		s, ok := value.(string)
		if !ok {
			return schema.DefaultVal
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if !hexColorRe.MatchString(s) {
			return schema.DefaultVal
		}
		return s
	case "boolean":
		if b, ok := value.(bool); ok {
			return b
		}
		return schema.DefaultVal
	}
	return value
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

// NormalizeMethodConfig clamps every configured option of a method
// against its definition and drops conflicting randomization config.
func NormalizeMethodConfig(cfg *MethodConfig, def MethodDef) {
	schemas := map[string]OptionSchema{}
	for _, s := range def.Options {
		schemas[s.Name] = s
	}
	for i := range cfg.Options {
		opt := &cfg.Options[i]
		schema, ok := schemas[opt.Name]
		if !ok {
			continue
		}
		opt.Value = NormalizeOptionValue(schema, opt.Value)
		if opt.DefaultVal == nil {
			opt.DefaultVal = schema.DefaultVal
		}
		if opt.ValidateRandom() != nil {
			// Range wins; a stale value list is dropped.
			opt.RandomValues = nil
		}
	}
}
