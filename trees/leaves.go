package trees

import (
	"path/filepath"
	"slices"

	"github.com/reusee/trials/actions"
	"github.com/reusee/trials/signals"
)

const defaultClicks = 3

func (b *Builder) leaf(name string, body any) (actions.Config, error) {
	switch name {

	case "instruction":
		if text, ok := body.(string); ok {
			return actions.Instruction{Text: text}, nil
		}
		f, err := b.asFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("text", "src", "header", "params", "in_mapping", "persistent"); err != nil {
			return nil, err
		}
		var config actions.Instruction
		if config.Text, err = b.textOrSrc(f, "text", "src"); err != nil {
			return nil, err
		}
		params, err := b.asFields(f["params"])
		if err != nil {
			return nil, err
		}
		config.Text = substitute(config.Text, params)
		if config.Header, err = f.string("header"); err != nil {
			return nil, err
		}
		if config.In, err = b.signalMap(f, "in_mapping"); err != nil {
			return nil, err
		}
		if config.Persistent, err = f.bool("persistent", false); err != nil {
			return nil, err
		}
		return config, nil

	case "fixation":
		if body != nil {
			return nil, actions.Definitionf("fixation takes no fields")
		}
		return actions.Fixation{}, nil

	case "image":
		f, err := b.srcFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("src", "width", "height"); err != nil {
			return nil, err
		}
		var config actions.Image
		if config.Src, err = b.requiredPath(f, "src"); err != nil {
			return nil, err
		}
		if config.Width, err = f.float("width", 0); err != nil {
			return nil, err
		}
		if config.Height, err = f.float("height", 0); err != nil {
			return nil, err
		}
		return config, nil

	case "audio", "video":
		f, err := b.srcFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("src", "volume", "in_volume", "looping", "trigger", "out_error"); err != nil {
			return nil, err
		}
		var media actions.Media
		if media.Src, err = b.requiredPath(f, "src"); err != nil {
			return nil, err
		}
		if media.Volume, err = f.float("volume", 1); err != nil {
			return nil, err
		}
		if media.Volume < 0 {
			return nil, actions.Definitionf("negative volume %v", media.Volume)
		}
		if media.InVolume, err = b.signalField(f, "in_volume"); err != nil {
			return nil, err
		}
		if media.Looping, err = f.bool("looping", false); err != nil {
			return nil, err
		}
		if media.Trigger, err = f.bool("trigger", false); err != nil {
			return nil, err
		}
		if media.OutError, err = b.signalField(f, "out_error"); err != nil {
			return nil, err
		}
		if name == "video" {
			return actions.Video{Media: media}, nil
		}
		return actions.Audio{Media: media}, nil

	case "counter":
		n := defaultClicks
		if body != nil {
			v := body
			if f, ok := body.(map[string]any); ok {
				if err := fields(f).check("count"); err != nil {
					return nil, err
				}
				v = f["count"]
			}
			x, ok := toFloat(v)
			if !ok || x < 1 || x != float64(int(x)) {
				return nil, actions.Definitionf("bad count %v", v)
			}
			n = int(x)
		}
		return actions.Counter{Count: n}, nil

	case "key_logger":
		f, err := b.asFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("group", "out_key"); err != nil {
			return nil, err
		}
		config := actions.KeyLogger{Group: "keypress"}
		if group, err := f.string("group"); err != nil {
			return nil, err
		} else if group != "" {
			config.Group = group
		}
		if config.Out, err = b.signalField(f, "out_key"); err != nil {
			return nil, err
		}
		return config, nil

	case "reaction":
		return b.reaction(body)

	case "function":
		return b.function(body)

	case "process":
		return b.process(body)

	case "clock":
		f, err := b.asFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("step", "out_tic"); err != nil {
			return nil, err
		}
		var config actions.Clock
		if config.Step, err = f.duration("step"); err != nil {
			return nil, err
		}
		if config.Step < actions.MinClockStep {
			return nil, actions.Definitionf("clock step %v is shorter than %v", config.Step, actions.MinClockStep)
		}
		if config.Out, err = b.signalField(f, "out_tic"); err != nil {
			return nil, err
		}
		if config.Out == signals.None {
			return nil, actions.Definitionf("clock needs out_tic")
		}
		return config, nil

	case "timer", "event":
		var label string
		if s, ok := body.(string); ok {
			label = s
		} else {
			f, err := b.asFields(body)
			if err != nil {
				return nil, err
			}
			if err := f.check("name"); err != nil {
				return nil, err
			}
			if label, err = f.string("name"); err != nil {
				return nil, err
			}
		}
		if name == "timer" {
			return actions.Timer{Name: label}, nil
		}
		return actions.Event{Name: label}, nil

	case "logger":
		f, err := b.asFields(body)
		if err != nil {
			return nil, err
		}
		if err := f.check("group", "in_mapping"); err != nil {
			return nil, err
		}
		var config actions.Logger
		if config.Group, err = f.string("group"); err != nil {
			return nil, err
		}
		if config.Group == "" {
			return nil, actions.Definitionf("logger needs group")
		}
		if config.In, err = b.signalMap(f, "in_mapping"); err != nil {
			return nil, err
		}
		if len(config.In) == 0 {
			return nil, actions.Definitionf("logger needs in_mapping")
		}
		return config, nil

	}
	return nil, actions.Definitionf("unknown action %q", name)
}

func (b *Builder) srcFields(body any) (fields, error) {
	if src, ok := body.(string); ok {
		return fields{"src": src}, nil
	}
	return b.asFields(body)
}

func (b *Builder) requiredPath(f fields, key string) (string, error) {
	s, err := f.string(key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", actions.Definitionf("missing field %q", key)
	}
	return b.resolve(s), nil
}

func (b *Builder) resolve(path string) string {
	if filepath.IsAbs(path) || b.options.Dir == "" {
		return path
	}
	return filepath.Join(b.options.Dir, path)
}

// textOrSrc takes inline text, or the content of a file.
func (b *Builder) textOrSrc(f fields, textKey, srcKey string) (string, error) {
	text, err := f.string(textKey)
	if err != nil {
		return "", err
	}
	src, err := f.string(srcKey)
	if err != nil {
		return "", err
	}
	if text != "" && src != "" {
		return "", actions.Definitionf("%s and %s are exclusive", textKey, srcKey)
	}
	if src == "" {
		return text, nil
	}
	content, err := b.options.ReadFile(b.resolve(src))
	if err != nil {
		return "", actions.Resourcef("read %s: %v", src, err)
	}
	return string(content), nil
}

// bindings validates the shared input fields of function and process.
func (b *Builder) bindings(f fields) (vars map[string]signals.Value, in map[signals.ID]string, update []signals.ID, out, outError signals.ID, err error) {
	if vars, err = f.values("vars"); err != nil {
		return
	}
	for name := range vars {
		if !varNamePattern.MatchString(name) {
			err = actions.Definitionf("bad variable name %q", name)
			return
		}
	}
	if in, err = b.signalMap(f, "in_mapping"); err != nil {
		return
	}
	for _, name := range in {
		if name == "self" {
			err = actions.Definitionf("variable self is reserved")
			return
		}
	}
	if update, err = b.signalList(f, "in_update"); err != nil {
		return
	}
	update = slices.DeleteFunc(update, func(id signals.ID) bool {
		return id == signals.None
	})
	for _, id := range update {
		if _, ok := in[id]; ok {
			err = actions.Definitionf("in_update %d overlaps in_mapping", id)
			return
		}
	}
	if out, err = b.signalField(f, "out_result"); err != nil {
		return
	}
	if out != signals.None {
		if _, ok := in[out]; ok || slices.Contains(update, out) {
			err = actions.Definitionf("out_result %d is also an input", out)
			return
		}
	}
	if outError, err = b.signalField(f, "out_error"); err != nil {
		return
	}
	return
}

func (b *Builder) function(body any) (actions.Config, error) {
	if expr, ok := body.(string); ok {
		body = map[string]any{"expr": expr}
	}
	f, err := b.asFields(body)
	if err != nil {
		return nil, err
	}
	if err := f.check(
		"name", "expr", "src", "init_expr", "init_src", "vars", "interpreter",
		"on_start", "on_change", "once", "persistent",
		"in_mapping", "in_update", "out_result", "out_error",
	); err != nil {
		return nil, err
	}
	var config actions.Function
	if config.Name, err = f.string("name"); err != nil {
		return nil, err
	}
	if config.Expr, err = f.string("expr"); err != nil {
		return nil, err
	}
	if f.has("src") {
		if config.Program, err = b.textOrSrc(f, "", "src"); err != nil {
			return nil, err
		}
	}
	if (config.Expr == "") == (config.Program == "") {
		return nil, actions.Definitionf("function needs exactly one of expr and src")
	}
	if config.InitExpr, err = f.string("init_expr"); err != nil {
		return nil, err
	}
	if f.has("init_src") {
		if config.InitProgram, err = b.textOrSrc(f, "", "init_src"); err != nil {
			return nil, err
		}
	}
	if config.InitExpr != "" && config.InitProgram != "" {
		return nil, actions.Definitionf("init_expr and init_src are exclusive")
	}
	if config.Interpreter, err = f.string("interpreter"); err != nil {
		return nil, err
	}
	if config.OnStart, err = f.bool("on_start", true); err != nil {
		return nil, err
	}
	if config.OnChange, err = f.bool("on_change", true); err != nil {
		return nil, err
	}
	if config.Once, err = f.bool("once", false); err != nil {
		return nil, err
	}
	persistent, err := f.bool("persistent", false)
	if err != nil {
		return nil, err
	}
	if persistent && config.Once {
		return nil, actions.Definitionf("once and persistent are exclusive")
	}
	if config.Vars, config.In, config.Update, config.Out, config.OutError, err = b.bindings(f); err != nil {
		return nil, err
	}
	return config, nil
}

func (b *Builder) process(body any) (actions.Config, error) {
	f, err := b.srcFields(body)
	if err != nil {
		return nil, err
	}
	if err := f.check(
		"name", "src", "args", "passive", "response_type", "vars",
		"on_start", "on_change", "once", "blocking", "drop_early",
		"in_mapping", "in_update", "out_result", "out_error",
	); err != nil {
		return nil, err
	}
	var config actions.Process
	if config.Name, err = f.string("name"); err != nil {
		return nil, err
	}
	if config.Src, err = f.string("src"); err != nil {
		return nil, err
	}
	if config.Src == "" {
		return nil, actions.Definitionf("missing field %q", "src")
	}
	if config.Args, err = f.strings("args"); err != nil {
		return nil, err
	}
	if config.Passive, err = f.bool("passive", false); err != nil {
		return nil, err
	}
	responseType, err := f.string("response_type")
	if err != nil {
		return nil, err
	}
	if responseType != "" {
		var ok bool
		if config.Response, ok = actions.ParseResponseType(responseType); !ok {
			return nil, actions.Definitionf("bad response_type %q", responseType)
		}
	}
	if config.OnStart, err = f.bool("on_start", true); err != nil {
		return nil, err
	}
	if config.OnChange, err = f.bool("on_change", true); err != nil {
		return nil, err
	}
	if config.Once, err = f.bool("once", false); err != nil {
		return nil, err
	}
	if config.Blocking, err = f.bool("blocking", true); err != nil {
		return nil, err
	}
	if config.DropEarly, err = f.bool("drop_early", false); err != nil {
		return nil, err
	}
	if config.DropEarly && config.Response == actions.ResponseRawAll {
		return nil, actions.Definitionf("drop_early does not apply to raw_all responses")
	}
	if config.Vars, config.In, config.Update, config.Out, config.OutError, err = b.bindings(f); err != nil {
		return nil, err
	}
	return config, nil
}

func (b *Builder) reaction(body any) (actions.Config, error) {
	f, err := b.asFields(body)
	if err != nil {
		return nil, err
	}
	if err := f.check("times", "group", "keys", "tol",
		"out_rt", "out_accuracy", "out_mean_rt", "out_recall"); err != nil {
		return nil, err
	}
	config := actions.Reaction{
		Group:     "reaction",
		Tolerance: actions.DefaultTolerance,
	}
	if group, err := f.string("group"); err != nil {
		return nil, err
	} else if group != "" {
		config.Group = group
	}
	if config.Times, err = f.durations("times"); err != nil {
		return nil, err
	}
	if len(config.Times) == 0 {
		return nil, actions.Definitionf("reaction needs times")
	}
	slices.Sort(config.Times)
	if config.Keys, err = f.strings("keys"); err != nil {
		return nil, err
	}
	if f.has("tol") {
		if config.Tolerance, err = f.duration("tol"); err != nil {
			return nil, err
		}
	}
	if config.OutRT, err = b.signalField(f, "out_rt"); err != nil {
		return nil, err
	}
	if config.OutAccuracy, err = b.signalField(f, "out_accuracy"); err != nil {
		return nil, err
	}
	if config.OutMeanRT, err = b.signalField(f, "out_mean_rt"); err != nil {
		return nil, err
	}
	if config.OutRecall, err = b.signalField(f, "out_recall"); err != nil {
		return nil, err
	}
	return config, nil
}
