package client

import (
	"bytes"
	"encoding/json"
)

// Normalize unwraps the upstream success envelope.
//
// A JSON object with a "data" member and either a truthy "success" member
// or "status": "success" yields the raw "data" value. Anything else,
// including non-objects and invalid JSON, is returned unchanged. An empty
// body yields nil.
func Normalize(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		return body
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return body
	}

	data, ok := obj["data"]
	if !ok {
		return body
	}
	if truthy(obj["success"]) || isSuccessStatus(obj["status"]) {
		return data
	}
	return body
}

// truthy applies JSON truthiness: absent, false, null, 0 and "" are falsy.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

func isSuccessStatus(raw json.RawMessage) bool {
	var s string
	return len(raw) > 0 && json.Unmarshal(raw, &s) == nil && s == "success"
}
