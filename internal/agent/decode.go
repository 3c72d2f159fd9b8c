package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PlannedStep is one entry of a model-produced plan, before it becomes a
// store.Step.
type PlannedStep struct {
	Action string         `json:"action"`
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args"`
}

// ParseError is a structured decode failure carrying the raw model output.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse plan: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	fencedBlockRe   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// decodeSteps turns raw model output into a step list. Model formatting is
// non-deterministic, so strategies are layered: direct parse, fenced code
// block, outermost bracket slice, then heuristic repair. First one that
// yields a valid non-empty plan wins.
func decodeSteps(raw string) ([]PlannedStep, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("empty response")}
	}

	candidates := []string{trimmed}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}

	if sliced := bracketSlice(trimmed); sliced != "" {
		candidates = append(candidates, sliced)
	}

	for _, c := range candidates {
		if steps, err := parseSteps(c); err == nil {
			return steps, nil
		}
		if steps, err := parseSteps(repairJSON(c)); err == nil {
			return steps, nil
		}
	}

	return nil, &ParseError{Raw: raw, Err: fmt.Errorf("no parse strategy succeeded")}
}

// parseSteps tries a strict decode of either a bare array or an object
// wrapping one under "steps".
func parseSteps(s string) ([]PlannedStep, error) {
	var steps []PlannedStep
	if err := json.Unmarshal([]byte(s), &steps); err != nil {
		var wrapper struct {
			Steps []PlannedStep `json:"steps"`
		}
		if err2 := json.Unmarshal([]byte(s), &wrapper); err2 != nil || wrapper.Steps == nil {
			return nil, err
		}
		steps = wrapper.Steps
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan has no steps")
	}
	for i, st := range steps {
		if strings.TrimSpace(st.Action) == "" {
			return nil, fmt.Errorf("step %d has no action", i+1)
		}
	}
	return steps, nil
}

// bracketSlice cuts from the first '[' to the matching last ']' in free text.
func bracketSlice(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// repairJSON applies cheap fixes for the model quirks seen in practice:
// prose around the array, trailing commas, single-quoted strings, and
// unquoted keys.
func repairJSON(s string) string {
	if sliced := bracketSlice(s); sliced != "" {
		s = sliced
	}
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = normalizeQuotes(s)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	return s
}

// normalizeQuotes converts single-quoted JSON strings to double-quoted ones,
// leaving apostrophes inside double-quoted strings alone. Double quotes
// inside a single-quoted string are escaped so the conversion stays valid.
func normalizeQuotes(s string) string {
	var out strings.Builder
	inDouble := false
	inSingle := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && (inDouble || inSingle):
			out.WriteByte(c)
			i++
			out.WriteByte(s[i])
		case c == '"' && inSingle:
			out.WriteString(`\"`)
		case c == '"':
			inDouble = !inDouble
			out.WriteByte(c)
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			out.WriteByte('"')
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}
