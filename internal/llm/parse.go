package llm

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"codenerd/internal/model"
)

// fencedBlock matches fenced code blocks in the dialects models commonly
// emit for tool calls: ```json, ```tool_call, ```tool_code, or a bare
// ``` fence.
var fencedBlock = regexp.MustCompile("(?s)```(?:json|tool_call|tool_code)?\\s*\\n(.*?)```")

// functionCallForm matches a text function-call form: name(k=v, k2="v2").
var functionCallForm = regexp.MustCompile(`(?m)^([a-zA-Z_][a-zA-Z0-9_]*)\(([^()]*)\)\s*$`)

// ParseToolCalls extracts tool calls from a chat-completion response,
// trying each dialect in the order spec.md §4.6 requires: (a) the
// native tool_calls field, (b) fenced code blocks, (c) a function-call
// text form, (d) free-form JSON objects found anywhere in the content.
// The first dialect that yields at least one call wins; dialects are
// not mixed within one response.
func ParseToolCalls(content string, native []WireToolCall) []model.ToolCall {
	if calls := fromNative(native); len(calls) > 0 {
		return calls
	}
	if calls := fromFencedBlocks(content); len(calls) > 0 {
		return calls
	}
	if calls := fromFunctionCallForm(content); len(calls) > 0 {
		return calls
	}
	return fromFreeFormJSON(content)
}

func fromNative(native []WireToolCall) []model.ToolCall {
	calls := make([]model.ToolCall, 0, len(native))
	for _, w := range native {
		args := map[string]any{}
		_ = json.Unmarshal([]byte(w.Function.Arguments), &args)
		id := w.ID
		if id == "" {
			id = uuid.NewString()
		}
		calls = append(calls, model.ToolCall{CallID: id, Name: w.Function.Name, Arguments: args})
	}
	return calls
}

func fromFencedBlocks(content string) []model.ToolCall {
	var calls []model.ToolCall
	for _, m := range fencedBlock.FindAllStringSubmatch(content, -1) {
		if call, ok := decodeToolCallJSON(m[1]); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func fromFunctionCallForm(content string) []model.ToolCall {
	var calls []model.ToolCall
	for _, m := range functionCallForm.FindAllStringSubmatch(content, -1) {
		name, argStr := m[1], m[2]
		calls = append(calls, model.ToolCall{
			CallID:    uuid.NewString(),
			Name:      name,
			Arguments: parseKeyValueArgs(argStr),
		})
	}
	return calls
}

func fromFreeFormJSON(content string) []model.ToolCall {
	var calls []model.ToolCall
	for _, candidate := range extractJSONObjects(content) {
		if call, ok := decodeToolCallJSON(candidate); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// decodeToolCallJSON accepts either {"name":..,"arguments":{...}} or
// {"tool":..,"args":{...}} shaped objects, the two free-form variants
// seen across model vendors in the pack.
func decodeToolCallJSON(raw string) (model.ToolCall, bool) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return model.ToolCall{}, false
	}

	name, _ := generic["name"].(string)
	if name == "" {
		name, _ = generic["tool"].(string)
	}

	var args map[string]any
	if a, ok := generic["arguments"].(map[string]any); ok {
		args = a
	} else if a, ok := generic["args"].(map[string]any); ok {
		args = a
	} else if asStr, ok := generic["arguments"].(string); ok {
		args = map[string]any{}
		_ = json.Unmarshal([]byte(asStr), &args)
	}
	if args == nil {
		args = map[string]any{}
	}
	if name == "" && len(args) == 0 {
		// Not tool-call-shaped JSON at all (e.g. unrelated data object).
		return model.ToolCall{}, false
	}
	return model.ToolCall{CallID: uuid.NewString(), Name: name, Arguments: args}, true
}

// extractJSONObjects finds every brace-balanced {...} substring in s,
// the same bracket-depth-counting approach used to pull JSON out of
// markdown-wrapped model output.
func extractJSONObjects(s string) []string {
	var out []string
	depth := 0
	start := -1
	for i, r := range s {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// parseKeyValueArgs splits a "k=v, k2=\"v2\", k3=3" argument string into
// a map, coercing unquoted numeric/boolean values.
func parseKeyValueArgs(s string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(s) == "" {
		return args
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		val = strings.Trim(val, `"'`)
		args[key] = coerceScalar(val)
	}
	return args
}

func coerceScalar(val string) any {
	if val == "true" {
		return true
	}
	if val == "false" {
		return false
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}
