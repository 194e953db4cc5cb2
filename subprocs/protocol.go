package subprocs

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/reusee/trials/signals"
)

// EncodeRequest renders vars as "with N", one "name type value" line per var, then "go".
func EncodeRequest(vars map[string]signals.Value) ([]byte, error) {
	var b strings.Builder
	if len(vars) > 0 {
		fmt.Fprintf(&b, "with %d\n", len(vars))
		for _, name := range slices.Sorted(maps.Keys(vars)) {
			line, err := encodeValue(vars[name])
			if err != nil {
				return nil, fmt.Errorf("var %s: %w", name, err)
			}
			b.WriteString(name)
			b.WriteByte(' ')
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	b.WriteString("go\n")
	return []byte(b.String()), nil
}

func encodeValue(v signals.Value) (string, error) {
	switch v.Kind() {
	case signals.KindNull:
		return "nil", nil
	case signals.KindBool:
		if b, _ := v.AsBool(); b {
			return "true", nil
		}
		return "false", nil
	case signals.KindInt:
		i, _ := v.AsInt()
		return "i64 " + strconv.FormatInt(i, 10), nil
	case signals.KindFloat:
		f, _ := v.AsFloat()
		return "f64 " + strconv.FormatFloat(f, 'g', -1, 64), nil
	case signals.KindText:
		s, _ := v.AsText()
		return "str " + strings.ReplaceAll(s, "\n", `\n`), nil
	}
	return "", fmt.Errorf("unsupported kind %v", v.Kind())
}

var ErrEnd = errors.New("end of responses")

// ParseResponse decodes one response line. "end" yields ErrEnd and "err" yields a ResponseError.
func ParseResponse(line string) (signals.Value, error) {
	line = strings.TrimRight(line, "\r\n")
	typ, value, _ := strings.Cut(line, " ")
	switch typ {
	case "nil":
		return signals.Null(), nil
	case "true":
		return signals.Bool(true), nil
	case "false":
		return signals.Bool(false), nil
	case "i64":
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return signals.Value{}, fmt.Errorf("bad integer response %q", value)
		}
		return signals.Int(i), nil
	case "f64":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return signals.Value{}, fmt.Errorf("bad float response %q", value)
		}
		return signals.Float(f), nil
	case "str":
		return signals.Text(strings.ReplaceAll(value, `\n`, "\n")), nil
	case "err":
		return signals.Value{}, &ResponseError{
			Message: strings.ReplaceAll(value, `\n`, "\n"),
		}
	case "end":
		return signals.Value{}, ErrEnd
	}
	return signals.Value{}, fmt.Errorf("malformed response %q", line)
}

// ResponseError is an error reported by the child itself.
type ResponseError struct {
	Message string
}

func (r *ResponseError) Error() string {
	return "process: " + r.Message
}
