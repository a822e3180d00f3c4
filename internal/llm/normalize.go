package llm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// itemsPayload pulls the entry list out of a schema-valid envelope.
func itemsPayload(doc any) ([]any, bool) {
	switch t := doc.(type) {
	case []any:
		return t, true
	case map[string]any:
		items, ok := t["items"].([]any)
		return items, ok
	default:
		return nil, false
	}
}

// NormalizeItems converts raw reply entries into line items.
// Non-object entries are skipped; uncoercible numeric fields are dropped and reported
// as "index.field(reason)".
func NormalizeItems(entries []any) ([]entity.LineItem, []string) {
	items := make([]entity.LineItem, 0, len(entries))
	dropped := make([]string, 0)

	for i, raw := range entries {
		m, ok := raw.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("%d(not_object)", i))
			continue
		}

		item := entity.LineItem{
			Supplier:    textOr(m["supplier"], entity.UnknownSupplier),
			Description: textOr(m["description"], entity.UnknownItem),
		}

		fields := []struct {
			key string
			dst **float64
		}{
			{"amount_usd", &item.AmountUSD},
			{"qty_kg", &item.QtyKg},
			{"weight_tons", &item.WeightTons},
			{"distance_km", &item.DistanceKm},
		}
		for _, f := range fields {
			v, present := m[f.key]
			if !present || v == nil {
				continue
			}
			num, ok := toFloat(v)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("%d.%s(type)", i, f.key))
				continue
			}
			if num == nil {
				continue
			}
			*f.dst = num
		}

		item.Category = textOr(m["category"], "")
		items = append(items, item)
	}
	return items, dropped
}

// textOr renders a scalar as trimmed text, using def for missing, false-y or blank values.
func textOr(v any, def string) string {
	var s string
	switch t := v.(type) {
	case nil:
		return def
	case string:
		s = t
	case bool:
		if !t {
			return def
		}
		s = strconv.FormatBool(t)
	case float64:
		if t == 0 {
			return def
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// toFloat coerces a number or numeric string. A blank string yields (nil, true): absent, not invalid.
func toFloat(v any) (*float64, bool) {
	switch t := v.(type) {
	case float64:
		return entity.Float(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, true
		}
		s = strings.NewReplacer(",", "", "$", "").Replace(s)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return entity.Float(f), true
	default:
		return nil, false
	}
}
