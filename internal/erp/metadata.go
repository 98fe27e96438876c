package erp

import (
	"fmt"
	"strconv"
)

func fmtAny(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Stash copies every entry of native whose key is not listed in normalized
// into a new Metadata. Adapters use it after mapping the normalized fields.
func Stash(native map[string]any, normalized ...string) Metadata {
	skip := make(map[string]struct{}, len(normalized))
	for _, k := range normalized {
		skip[k] = struct{}{}
	}

	md := make(Metadata)
	for k, v := range native {
		if _, ok := skip[k]; ok {
			continue
		}
		md[k] = v
	}
	return md
}
