package frame

import (
	"fmt"
	"maps"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/spf13/cast"

	"github.com/redframe/redpanda/query"
)

// ReadOptions configures ReadSQL.
type ReadOptions struct {
	// Columns restricts a loaded frame to these columns, in this order.
	// ReadSQL itself ignores it; callers project after loading.
	Columns []string

	// Params are bound to the named parameters of the statement.
	Params query.Params

	// IndexCol names the column used as the row index.
	IndexCol string

	// CoerceFloat loads DECIMAL and NUMERIC columns as float64 rather
	// than as exact strings.
	CoerceFloat bool

	// ParseDates lists columns converted to timestamps while loading.
	ParseDates []string

	// Extra holds options without a field of their own. They are kept as
	// schema metadata of the loaded frame.
	Extra map[string]any
}

// Merge returns o with every option set in override replacing its own.
// Extra is merged key by key, also preferring override.
func (o ReadOptions) Merge(override ReadOptions) ReadOptions {
	merged := o

	if override.Columns != nil {
		merged.Columns = override.Columns
	}
	if override.Params != nil {
		merged.Params = override.Params
	}
	if override.IndexCol != "" {
		merged.IndexCol = override.IndexCol
	}
	if override.CoerceFloat {
		merged.CoerceFloat = true
	}
	if override.ParseDates != nil {
		merged.ParseDates = override.ParseDates
	}
	if len(override.Extra) > 0 {
		extra := maps.Clone(o.Extra)
		if extra == nil {
			extra = make(map[string]any, len(override.Extra))
		}
		maps.Copy(extra, override.Extra)
		merged.Extra = extra
	}

	return merged
}

// Clone returns a deep copy of the slices and maps held by o.
func (o ReadOptions) Clone() ReadOptions {
	o.Columns = slices.Clone(o.Columns)
	o.Params = maps.Clone(o.Params)
	o.ParseDates = slices.Clone(o.ParseDates)
	o.Extra = maps.Clone(o.Extra)
	return o
}

func (o ReadOptions) metadata() *arrow.Metadata {
	if len(o.Extra) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(o.Extra))
	values := make([]string, len(keys))
	for i, key := range keys {
		str, err := cast.ToStringE(o.Extra[key])
		if err != nil {
			str = fmt.Sprint(o.Extra[key])
		}
		values[i] = str
	}

	md := arrow.NewMetadata(keys, values)
	return &md
}
