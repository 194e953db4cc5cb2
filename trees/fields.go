package trees

import (
	"fmt"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

// fields is the body of a constructor, as decoded from yaml, json or cue.
type fields map[string]any

func (b *Builder) asFields(body any) (fields, error) {
	switch body := body.(type) {
	case nil:
		return fields{}, nil
	case map[string]any:
		return fields(body), nil
	case map[any]any:
		ret := make(fields, len(body))
		for k, v := range body {
			ret[fmt.Sprint(k)] = v
		}
		return ret, nil
	}
	return nil, actions.Definitionf("expecting fields, got %T", body)
}

func (f fields) check(allowed ...string) error {
	for _, key := range slices.Sorted(maps.Keys(f)) {
		if !slices.Contains(allowed, key) {
			return actions.Definitionf("unknown field %q", key)
		}
	}
	return nil
}

func (f fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f fields) string(key string) (string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", actions.Definitionf("field %q: expecting string, got %T", key, v)
	}
	return s, nil
}

func (f fields) strings(key string) ([]string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, actions.Definitionf("field %q: expecting list, got %T", key, v)
	}
	ret := make([]string, 0, len(list))
	for _, e := range list {
		ret = append(ret, fmt.Sprint(e))
	}
	return ret, nil
}

func (f fields) bool(key string, def bool) (bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, actions.Definitionf("field %q: expecting bool, got %T", key, v)
	}
	return b, nil
}

func (f fields) float(key string, def float64) (float64, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return def, nil
	}
	n, ok := toFloat(v)
	if !ok {
		return 0, actions.Definitionf("field %q: expecting number, got %T", key, v)
	}
	return n, nil
}

func (f fields) int(key string, def int) (int, error) {
	n, err := f.float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, actions.Definitionf("field %q: expecting integer, got %v", key, n)
	}
	return int(n), nil
}

func (f fields) duration(key string) (time.Duration, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, actions.Definitionf("missing field %q", key)
	}
	return parseDuration(v)
}

func (f fields) durations(key string) ([]time.Duration, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, actions.Definitionf("missing field %q", key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, actions.Definitionf("field %q: expecting list, got %T", key, v)
	}
	ret := make([]time.Duration, 0, len(list))
	for _, e := range list {
		d, err := parseDuration(e)
		if err != nil {
			return nil, err
		}
		ret = append(ret, d)
	}
	return ret, nil
}

// parseDuration takes seconds as a number or a Go duration string.
func parseDuration(v any) (time.Duration, error) {
	var d time.Duration
	if s, ok := v.(string); ok {
		var err error
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, actions.Definitionf("bad duration %q", s)
		}
	} else {
		n, ok := toFloat(v)
		if !ok {
			return 0, actions.Definitionf("expecting duration, got %T", v)
		}
		d = time.Duration(math.Round(n * float64(time.Second)))
	}
	if d < 0 {
		return 0, actions.Definitionf("negative duration %v", d)
	}
	return d, nil
}

func (f fields) values(key string) (map[string]signals.Value, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, actions.Definitionf("field %q: expecting mapping, got %T", key, v)
	}
	ret := make(map[string]signals.Value, len(m))
	for name, x := range m {
		value, err := signals.FromAny(x)
		if err != nil {
			return nil, actions.Definitionf("field %q: %v", key, err)
		}
		ret[name] = value
	}
	return ret, nil
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func (b *Builder) signal(v any) (signals.ID, error) {
	if v == nil {
		return signals.None, nil
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.ParseUint(s, 10, 16); err == nil {
			return signals.ID(n), nil
		}
		id, ok := b.options.Signals[s]
		if !ok {
			return 0, actions.Definitionf("unresolved signal name %q", s)
		}
		return id, nil
	}
	n, ok := toFloat(v)
	if !ok || n < 0 || n > math.MaxUint16 || n != math.Trunc(n) {
		return 0, actions.Definitionf("bad signal reference %v", v)
	}
	return signals.ID(n), nil
}

func (b *Builder) signalField(f fields, key string) (signals.ID, error) {
	id, err := b.signal(f[key])
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return id, nil
}

func (b *Builder) signalList(f fields, key string) ([]signals.ID, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		// a single reference
		id, err := b.signal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return []signals.ID{id}, nil
	}
	ret := make([]signals.ID, 0, len(list))
	for _, e := range list {
		id, err := b.signal(e)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		ret = append(ret, id)
	}
	return ret, nil
}

var varNamePattern = regexp.MustCompile(`^[A-Za-z]\w*$`)

// signalMap decodes {signal: var name}.
func (b *Builder) signalMap(f fields, key string) (map[signals.ID]string, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, err := b.asFields(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	ret := make(map[signals.ID]string, len(m))
	for ref, name := range m {
		id, err := b.signal(ref)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		s, ok := name.(string)
		if !ok || !varNamePattern.MatchString(s) {
			return nil, actions.Definitionf("field %q: bad variable name %v", key, name)
		}
		ret[id] = s
	}
	return ret, nil
}

func substitute(text string, params map[string]any) string {
	for k, v := range params {
		text = strings.ReplaceAll(text, "${"+k+"}", fmt.Sprint(v))
	}
	return text
}
