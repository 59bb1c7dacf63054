package kgbuilder

import "github.com/aqua777/graphrag-core/schema"

// toCounts converts a graphstore vertex property back into a schema.Counts,
// tolerating both the in-process representation (schema.Counts /
// map[string]int, as MemoryGraphStore stores it untouched) and the
// JSON-roundtripped representation a serializing backend would hand back
// (map[string]interface{} with float64 values).
func toCounts(v interface{}) schema.Counts {
	switch c := v.(type) {
	case schema.Counts:
		return c.Clone()
	case map[string]int:
		out := make(schema.Counts, len(c))
		for k, n := range c {
			out[k] = n
		}
		return out
	case map[string]interface{}:
		out := make(schema.Counts, len(c))
		for k, n := range c {
			switch num := n.(type) {
			case int:
				out[k] = num
			case float64:
				out[k] = int(num)
			}
		}
		return out
	default:
		return schema.Counts{}
	}
}

func countsProperty(c schema.Counts) map[string]int {
	return map[string]int(c)
}
