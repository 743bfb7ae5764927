package retain

import (
	"fmt"
	"regexp"
	"strconv"
)

// LastName is the fixed base name of the "last" checkpoint file.
const LastName = "last"

// tokenRe matches {key} placeholders in a filename template.
var tokenRe = regexp.MustCompile(`\{([^{}]+)\}`)

// FormatName renders a filename template by substituting {key} tokens
// with values. Missing keys render as 0, matching the convention of
// naming checkpoints before their metrics are known.
//
//	FormatName("epoch={epoch}-step={step}", map[string]any{"epoch": 1, "step": 2})
//	// "epoch=1-step=2"
func FormatName(template string, values map[string]any) string {
	return tokenRe.ReplaceAllStringFunc(template, func(tok string) string {
		key := tok[1 : len(tok)-1]
		v, ok := values[key]
		if !ok {
			return "0"
		}
		return formatValue(v)
	})
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// versioned returns name with a -vN disambiguation suffix for n >= 1,
// and the unsuffixed name for n == 0.
func versioned(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s-v%d", name, n)
}
