package device

import (
	"strings"
)

// nativeID is the identifier field both protocols use for resources
const nativeID = ".id"

// NormalizeREST mirrors the native ".id" field into "id" on every object in
// a decoded REST payload. The original field is kept; downstream code must
// not rely on it being absent.
func NormalizeREST(v any) any {
	switch t := v.(type) {
	case []any:
		for i := range t {
			t[i] = NormalizeREST(t[i])
		}
		return t
	case map[string]any:
		if id, ok := t[nativeID]; ok {
			t["id"] = id
		}
		return t
	default:
		return v
	}
}

// NormalizeLegacy converts one legacy-protocol sentence into a Record:
// native underscore-separated keys are rewritten to the REST hyphen
// convention, and the native identifier is mirrored into "id".
func NormalizeLegacy(attrs map[string]string) Record {
	r := make(Record, len(attrs)+1)
	for k, v := range attrs {
		r[legacyKey(k)] = v
	}
	if id, ok := r[nativeID]; ok {
		r["id"] = id
	}
	return r
}

// legacyKey rewrites a legacy attribute name to the REST convention. The
// leading-dot system fields (".id", ".nextid") pass through untouched.
func legacyKey(k string) string {
	if strings.HasPrefix(k, ".") {
		return k
	}
	return strings.ReplaceAll(k, "_", "-")
}
