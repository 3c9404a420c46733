package networkctl

import (
	"encoding/json"
	"strings"

	"arhat.dev/linkhook/pkg/constant"
)

// Detail is the ordered multi-valued key/value output of `networkctl status`
type Detail struct {
	keys   []string
	values map[string][]string
}

func NewDetail() *Detail {
	return &Detail{
		values: make(map[string][]string),
	}
}

func (d *Detail) Add(key, value string) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.values[key] = append(d.values[key], value)
}

// appendLast joins value to the last value of key with a single space
func (d *Detail) appendLast(key, value string) {
	v := d.values[key]
	if len(v) == 0 {
		d.Add(key, value)
		return
	}

	v[len(v)-1] += " " + value
}

// Get returns all values of key in the order they were seen
func (d *Detail) Get(key string) []string {
	if d == nil {
		return nil
	}

	return d.values[key]
}

// First returns the first value of key or an empty string
func (d *Detail) First(key string) string {
	v := d.Get(key)
	if len(v) == 0 {
		return ""
	}

	return v[0]
}

// Value joins all values of key with a single space
func (d *Detail) Value(key string) string {
	return strings.Join(d.Get(key), " ")
}

// Keys in first-seen order
func (d *Detail) Keys() []string {
	if d == nil {
		return nil
	}

	return append([]string(nil), d.keys...)
}

func (d *Detail) Len() int {
	if d == nil {
		return 0
	}

	return len(d.keys)
}

func (d *Detail) MarshalJSON() ([]byte, error) {
	m := make(map[string][]string, d.Len())
	for _, k := range d.Keys() {
		m[k] = d.values[k]
	}

	return json.Marshal(m)
}

// ParseDetail parses `Key: Value` lines, indented lines without a key
// continue the previous value, except for keys listing one item per line
// (see constant.DetailListKeys) where they are additional values
func ParseDetail(data []byte) *Detail {
	var (
		d        = NewDetail()
		lastKey  string
		valueCol int
	)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "●") {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " \t"))

		idx := strings.Index(line, ": ")
		if idx == -1 && strings.HasSuffix(line, ":") {
			idx = len(line) - 1
		}

		if idx > 0 && strings.TrimSpace(line[:idx]) != "" && (valueCol == 0 || indent < valueCol) {
			lastKey = strings.TrimSpace(line[:idx])
			valueCol = idx + 2

			if value := strings.TrimSpace(line[idx+1:]); value != "" {
				d.Add(lastKey, value)
			}

			continue
		}

		if lastKey == "" || indent < valueCol-1 {
			// not a continuation of anything we know
			continue
		}

		if _, isList := constant.DetailListKeys[lastKey]; isList {
			d.Add(lastKey, trimmed)
		} else {
			d.appendLast(lastKey, trimmed)
		}
	}

	return d
}

// Unquote drops the backslash in front of escaped characters
func Unquote(s string) string {
	var (
		b       strings.Builder
		escaped bool
	)

	b.Grow(len(s))
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}

		escaped = false
		b.WriteRune(r)
	}

	return b.String()
}
