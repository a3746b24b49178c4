package registry

import (
	"encoding/json"
	"fmt"

	"github.com/webstash/webstash/internal/domain"
)

// bind coerces a caller-supplied value to a placeholder's declared type.
// Wrong shapes are rejected: a scalar bound to a set placeholder is an
// error, not an empty filter.
func bind(param string, t ParamType, raw any) (any, error) {
	switch t {
	case TString:
		s, ok := raw.(string)
		if !ok {
			return nil, typeErr(param, "string", raw)
		}
		return s, nil

	case TInt:
		return bindInt(param, raw)

	case TBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, typeErr(param, "bool", raw)
		}
		return b, nil

	case TStringSlice:
		switch v := raw.(type) {
		case []string:
			out := make([]any, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, nil
		case []any:
			out := make([]any, len(v))
			for i, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, typeErr(param, "string array", raw)
				}
				out[i] = s
			}
			return out, nil
		default:
			return nil, typeErr(param, "string array", raw)
		}

	case TIntSlice:
		switch v := raw.(type) {
		case []int64:
			out := make([]any, len(v))
			for i, n := range v {
				out[i] = n
			}
			return out, nil
		case []int:
			out := make([]any, len(v))
			for i, n := range v {
				out[i] = int64(n)
			}
			return out, nil
		case []any:
			out := make([]any, len(v))
			for i, e := range v {
				n, err := bindInt(param, e)
				if err != nil {
					return nil, typeErr(param, "int array", raw)
				}
				out[i] = n
			}
			return out, nil
		default:
			return nil, typeErr(param, "int array", raw)
		}

	case TAny:
		return raw, nil

	default:
		return nil, &domain.ValidationError{Param: param, Reason: "unknown parameter type"}
	}
}

// bindInt accepts the integer shapes a JSON round-trip can produce.
func bindInt(param string, raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		n := int64(v)
		if float64(n) != v {
			return 0, typeErr(param, "integer", raw)
		}
		return n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, typeErr(param, "integer", raw)
		}
		return n, nil
	default:
		return 0, typeErr(param, "integer", raw)
	}
}

func typeErr(param, want string, got any) error {
	return &domain.ValidationError{
		Param:  param,
		Reason: fmt.Sprintf("expected %s, got %T", want, got),
	}
}
