package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkjson"
	"go.starlark.net/starlarkstruct"
)

func init() {
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowLambda = true
	resolve.AllowNestedDef = true
}

// scriptError is the Go port's remapped error taxonomy for a failed
// evaluation: the original's CPython exception class, detail message
// and source line, assembled the same way regardless of which branch
// produced it.
type scriptError struct {
	class string
	line  int
	detail string
}

func (e *scriptError) Error() string {
	return fmt.Sprintf("Error in script: %s(line %d) %s", e.class, e.line, e.detail)
}

var importRe = regexp.MustCompile(`(?m)^\s*import\s+\S+`)

func urlencodeFn(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s starlark.String
	if err := starlark.UnpackArgs("urlencode", args, kwargs, "s", &s); err != nil {
		return nil, err
	}
	return starlark.String(url.QueryEscape(string(s))), nil
}

func utilsModule() *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "utils",
		Members: starlark.StringDict{
			"j2s":       starlarkjson.Module.Members["encode"],
			"s2j":       starlarkjson.Module.Members["decode"],
			"urlencode": starlark.NewBuiltin("urlencode", urlencodeFn),
		},
	}
}

func predeclared() starlark.StringDict {
	return starlark.StringDict{
		"utils": utilsModule(),
	}
}

// wrapCode turns a raw (marker-stripped) code fragment into a Starlark
// source file that defines resolver_func and calls it, binding its
// return value to _result. Mirrors the original's function-wrapping
// trick, minus the exception-as-return-channel hack Starlark doesn't
// need: a function call IS an expression with a value here.
func wrapCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.Contains(trimmed, "return") && !strings.Contains(code, "\n") {
		trimmed = "return " + trimmed
	}
	indented := "    " + strings.ReplaceAll(trimmed, "\n", "\n    ")
	return "def resolver_func():\n" + indented + "\n_result = resolver_func()\n"
}

// execute runs code under a wall-clock timeout and returns its result
// value, the wrapped source (for diagnostics), and a classified error
// if evaluation failed.
func execute(code string, timeout time.Duration) (any, string, *scriptError) {
	if loc := importRe.FindStringIndex(code); loc != nil {
		line := strings.Count(code[:loc[0]], "\n") + 1
		return nil, "", &scriptError{class: "ImportError", line: line, detail: "__import__ not found"}
	}

	wrapped := wrapCode(code)

	thread := &starlark.Thread{Name: "resolver"}
	if timeout > 0 {
		timer := time.AfterFunc(timeout, func() { thread.Cancel("TIMEOUT") })
		defer timer.Stop()
	}

	globals, err := starlark.ExecFile(thread, "<resolver>", wrapped, predeclared())
	if err != nil {
		return nil, wrapped, classifyError(err)
	}

	result, ok := globals["_result"]
	if !ok {
		return nil, wrapped, &scriptError{class: "Exception", line: 0, detail: "script produced no result"}
	}
	goVal, convErr := starlarkToGo(result)
	if convErr != nil {
		return nil, wrapped, &scriptError{class: "Exception", line: 0, detail: convErr.Error()}
	}
	return goVal, wrapped, nil
}

var (
	positionRe = regexp.MustCompile(`:(\d+):\d+:\s*(.*)$`)
	undefinedRe = regexp.MustCompile(`undefined: (\w+)`)
)

// classifyError maps a Starlark compile/resolve/runtime error onto the
// spec's error vocabulary (ImportError/NameError/SyntaxError/generic).
func classifyError(err error) *scriptError {
	msg := err.Error()
	if strings.Contains(msg, "TIMEOUT") || strings.Contains(msg, "cancelled") {
		return &scriptError{class: "Exception", line: 0, detail: "TIMEOUT"}
	}

	firstLine := strings.SplitN(msg, "\n", 2)[0]
	line := 0
	detail := firstLine
	if m := positionRe.FindStringSubmatch(firstLine); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil {
			line = n
		}
		detail = m[2]
	}

	if m := undefinedRe.FindStringSubmatch(detail); m != nil {
		return &scriptError{class: "NameError", line: line, detail: fmt.Sprintf("name '%s' is not defined", m[1])}
	}

	return &scriptError{class: "SyntaxError", line: line, detail: detail}
}

func starlarkToGo(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(x), nil
	case starlark.Int:
		if i, ok := x.Int64(); ok {
			return i, nil
		}
		return x.String(), nil
	case starlark.Float:
		return float64(x), nil
	case starlark.String:
		return string(x), nil
	case starlark.Tuple:
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			ev, err := starlarkToGo(x[i])
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *starlark.List:
		out := make([]any, x.Len())
		for i := 0; i < x.Len(); i++ {
			ev, err := starlarkToGo(x.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *starlark.Dict:
		out := map[string]any{}
		for _, item := range x.Items() {
			k, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys returned by a resolver script must be strings, got %s", item[0].Type())
			}
			v, err := starlarkToGo(item[1])
			if err != nil {
				return nil, err
			}
			out[string(k)] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s returned by resolver script", v.Type())
	}
}
