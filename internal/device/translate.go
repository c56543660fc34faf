package device

import (
	"context"
	"net/http"
	"strings"
)

// verb is what a generic proxy request wants done to a resource
type verb int

const (
	verbGet verb = iota
	verbAdd
	verbSet
	verbRemove
	verbCommand
)

// translated is a generic proxy request mapped onto the Client operation set
type translated struct {
	verb verb
	path string
	id   string
	body Record
}

// pseudoVerbs maps the legacy path suffixes onto proxy verbs
var pseudoVerbs = map[string]verb{
	"print":  verbGet,
	"add":    verbAdd,
	"set":    verbSet,
	"remove": verbRemove,
}

// translate maps a legacy-style path plus HTTP verb onto a concrete device
// call. A trailing pseudo-verb segment (print/add/set/remove) wins over the
// HTTP method; set and remove require an identifier in the body and fail
// before any device traffic when it is missing.
func translate(method, path string, body Record) (*translated, error) {
	path = "/" + strings.Trim(path, "/")

	t := &translated{path: path, body: body}

	last := path[strings.LastIndex(path, "/")+1:]
	if v, ok := pseudoVerbs[last]; ok {
		t.verb = v
		t.path = strings.TrimSuffix(path, "/"+last)
	} else {
		switch method {
		case http.MethodGet:
			t.verb = verbGet
		case http.MethodPost:
			t.verb = verbCommand
		case http.MethodPut, http.MethodPatch:
			t.verb = verbSet
		case http.MethodDelete:
			t.verb = verbRemove
		default:
			return nil, &TranslationError{Reason: "unsupported method " + method}
		}
	}

	if t.verb == verbSet || t.verb == verbRemove {
		t.id = takeID(t.body)
		if t.id == "" {
			return nil, &TranslationError{Reason: "set/remove requires an .id in the request body"}
		}
	}
	if t.path == "" || t.path == "/" {
		return nil, &TranslationError{Reason: "empty device path"}
	}

	return t, nil
}

// Proxy translates and executes a generic request against a device.
// Single-record verbs return a Record, list verbs a []Record.
func Proxy(ctx context.Context, c Client, method, path string, query map[string]string, body Record) (any, error) {
	t, err := translate(method, path, body)
	if err != nil {
		return nil, err
	}

	switch t.verb {
	case verbGet:
		return c.Get(ctx, t.path, query)
	case verbAdd:
		return c.Add(ctx, t.path, t.body)
	case verbSet:
		return c.Set(ctx, t.path, t.id, t.body)
	case verbRemove:
		return nil, c.Remove(ctx, t.path, t.id)
	default:
		return c.Command(ctx, t.path, t.body)
	}
}

// takeID removes and returns the identifier from a proxy body, checking the
// native field first so it never leaks into the forwarded params
func takeID(body Record) string {
	if body == nil {
		return ""
	}
	for _, key := range []string{nativeID, "id"} {
		if v, ok := body[key]; ok {
			delete(body, nativeID)
			delete(body, "id")
			if s, ok := v.(string); ok {
				return s
			}
			return ""
		}
	}
	return ""
}
