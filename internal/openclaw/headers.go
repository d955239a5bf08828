package openclaw

import (
	"net/http"
	"net/textproto"
)

// combineHeaders merges header maps from lowest to highest precedence.
// Names are compared case-insensitively and empty values remove the header.
func combineHeaders(layers ...map[string]string) http.Header {
	merged := make(http.Header)
	for _, layer := range layers {
		for k, v := range layer {
			key := textproto.CanonicalMIMEHeaderKey(k)
			if v == "" {
				merged.Del(key)
				continue
			}
			merged.Set(key, v)
		}
	}
	return merged
}

// flattenHeaders keeps the first value of each response header
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
