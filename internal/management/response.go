package management

import (
	"bytes"
	"encoding/json"
)

// Kind is the shape of a normalized management API response.
type Kind int

const (
	KindEmpty Kind = iota
	KindObject
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "empty"
	}
}

// Response is the union of the three response shapes the management API
// produces. List endpoints either return a bare array or, with
// include_totals, an object wrapping the array with paging fields; both
// become KindList.
type Response struct {
	Kind Kind
	// Items holds list elements for KindList.
	Items []json.RawMessage
	// Total is set when the upstream reported a total count.
	Total *int
	// Raw is the body exactly as received.
	Raw []byte
}

// Text returns the body for display. Payloads are passed through unchanged.
func (r *Response) Text() string {
	if r == nil || r.Kind == KindEmpty {
		return `{"success":true}`
	}
	return string(r.Raw)
}

var pagingFields = map[string]bool{
	"start": true, "limit": true, "length": true, "total": true, "next": true,
}

// Normalize classifies a response body.
func Normalize(body []byte) *Response {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Response{Kind: KindEmpty, Raw: body}
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return &Response{Kind: KindList, Items: items, Raw: body}
		}
	case '{':
		if resp, ok := normalizePage(trimmed); ok {
			resp.Raw = body
			return resp
		}
	}

	return &Response{Kind: KindObject, Raw: body}
}

// normalizePage recognizes {"<collection>": [...], "start": 0, "limit": 50, "total": 2}.
func normalizePage(body []byte) (*Response, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, false
	}

	var (
		items     []json.RawMessage
		arrayKeys int
		hasPaging bool
	)
	for key, value := range fields {
		if pagingFields[key] {
			hasPaging = true
			continue
		}
		v := bytes.TrimSpace(value)
		if len(v) > 0 && v[0] == '[' {
			arrayKeys++
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, false
			}
		}
	}
	if !hasPaging || arrayKeys != 1 {
		return nil, false
	}

	resp := &Response{Kind: KindList, Items: items}
	if raw, ok := fields["total"]; ok {
		var total int
		if err := json.Unmarshal(raw, &total); err == nil {
			resp.Total = &total
		}
	}
	return resp, true
}
