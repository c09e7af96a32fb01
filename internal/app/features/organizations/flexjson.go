// internal/app/features/organizations/flexjson.go
package organizations

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexBool decodes a JSON boolean, or a string such as "true", "false",
// "on", "off", "1", "0", "yes" and "no". Any other value is an error.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return b.set(n.String())
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("is_public must be a boolean")
	}
	return b.set(s)
}

func (b *flexBool) set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		*b = true
	case "false", "off", "0", "no", "":
		*b = false
	default:
		return fmt.Errorf("is_public must be a boolean, got %q", s)
	}
	return nil
}

// programList decodes a JSON array whose elements are integers or numeric
// strings. A bare scalar is read as a one-element list and null as empty.
type programList []int64

func (p *programList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = programList{}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		raw = []json.RawMessage{data}
	}

	out := make(programList, 0, len(raw))
	for _, el := range raw {
		id, err := parseProgramID(el)
		if err != nil {
			return err
		}
		out = append(out, id)
	}
	*p = out
	return nil
}

func parseProgramID(el json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(el, &s); err != nil {
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(el))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return 0, fmt.Errorf("allowed_programs must contain numbers, got %s", el)
		}
		s = n.String()
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("allowed_programs must contain whole numbers, got %q", s)
	}
	return id, nil
}
