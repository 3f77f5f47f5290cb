package parse

import "strings"

// DefaultOriginHost is the host root-relative image references are resolved against
const DefaultOriginHost = "en.wikipedia.org"

// Resolve turns an image reference from article markup into an absolute URL:
//
//	//host/path  -> https://host/path
//	/path        -> https://<originHost>/path
//	anything else is returned unchanged
//
// No escaping or query handling is performed.
func Resolve(reference, originHost string) string {
	switch {
	case strings.HasPrefix(reference, "//"):
		return "https:" + reference
	case strings.HasPrefix(reference, "/"):
		return "https://" + originHost + reference
	default:
		return reference
	}
}

// ResolveDefault resolves against DefaultOriginHost
func ResolveDefault(reference string) string {
	return Resolve(reference, DefaultOriginHost)
}
