package debugs

import (
	"fmt"
	"reflect"
	"time"

	"github.com/reusee/starlarkutil"
	"github.com/reusee/trials/signals"
	"go.starlark.net/starlark"
)

// toStarlarkValue converts results and snapshots for inspection.
// Structs become dicts of their exported fields, durations are seconds.
func toStarlarkValue(v any) starlark.Value {
	switch v := v.(type) {
	case nil:
		return starlark.None
	case starlark.Value:
		return v
	case signals.Value:
		return toStarlarkValue(v.Any())
	case time.Duration:
		return starlark.Float(v.Seconds())
	case time.Time:
		return starlark.String(v.Format(time.RFC3339Nano))
	case error:
		return starlark.String(v.Error())
	case []byte:
		return starlark.Bytes(v)
	}

	value := reflect.ValueOf(v)
	switch value.Kind() {
	case reflect.Bool:
		return starlark.Bool(value.Bool())
	case reflect.String:
		return starlark.String(value.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return starlark.MakeInt64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return starlark.MakeUint64(value.Uint())
	case reflect.Float32, reflect.Float64:
		return starlark.Float(value.Float())

	case reflect.Slice, reflect.Array:
		elems := make([]starlark.Value, value.Len())
		for i := range elems {
			elems[i] = toStarlarkValue(value.Index(i).Interface())
		}
		return starlark.NewList(elems)

	case reflect.Map:
		d := starlark.NewDict(value.Len())
		iter := value.MapRange()
		for iter.Next() {
			_ = d.SetKey(
				toStarlarkValue(iter.Key().Interface()),
				toStarlarkValue(iter.Value().Interface()),
			)
		}
		return d

	case reflect.Struct:
		d := starlark.NewDict(value.NumField())
		for _, field := range reflect.VisibleFields(value.Type()) {
			if !field.IsExported() || field.Anonymous {
				continue
			}
			// promoted through a nil embedded pointer
			fieldValue, err := value.FieldByIndexErr(field.Index)
			if err != nil {
				continue
			}
			_ = d.SetKey(
				starlark.String(field.Name),
				toStarlarkValue(fieldValue.Interface()),
			)
		}
		return d

	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return starlark.None
		}
		return toStarlarkValue(value.Elem().Interface())

	case reflect.Func:
		return starlarkutil.MakeFunc("", v)
	}

	panic(fmt.Errorf("unsupported type for starlark: %T", v))
}
