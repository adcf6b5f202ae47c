package resolver

import (
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"
)

// Kind is the category an item falls into before it is resolved.
type Kind int

const (
	// KindUnknown is an item the default resolver cannot open.
	KindUnknown Kind = iota
	// KindURL is an absolute http or https location.
	KindURL
	// KindPath is any other textual item, treated as a filesystem path.
	KindPath
	// KindStream is an item that already is a byte stream.
	KindStream
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindPath:
		return "path"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Source is a classified item.
type Source struct {
	Kind Kind
	// Item is the value as submitted.
	Item any
	// URL is set for KindURL.
	URL *url.URL
	// Path is set for KindPath.
	Path string
	// Reader is set for KindStream.
	Reader io.Reader
}

// Classify decides how item will be resolved. Textual items are tried as
// URLs first and fall back to paths; readers are passed through.
func Classify(item any) Source {
	src := Source{Item: item}
	if isNil(item) {
		src.Kind = KindUnknown
		return src
	}

	text, ok := textOf(item)
	if ok {
		if u, isURL := parseURL(text); isURL {
			src.Kind = KindURL
			src.URL = u
			return src
		}
		src.Kind = KindPath
		src.Path = text
		return src
	}

	if r, ok := item.(io.Reader); ok {
		src.Kind = KindStream
		src.Reader = r
		return src
	}

	src.Kind = KindUnknown
	return src
}

// isNil reports nil and typed-nil values. Calling String or Read on a nil
// pointer usually panics.
func isNil(item any) bool {
	if item == nil {
		return true
	}
	v := reflect.ValueOf(item)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

// textOf extracts the text of a textual item. A value that is both a reader
// and a fmt.Stringer, such as *bytes.Buffer, is a stream and not text.
func textOf(item any) (string, bool) {
	switch v := item.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case *url.URL:
		return v.String(), true
	case io.Reader:
		return "", false
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

func parseURL(text string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(text))
	if err != nil {
		return nil, false
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}
