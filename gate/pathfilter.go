package gate

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// segmentMarkerRe recognizes the {N} leading-segment-count marker that may
// prefix a path filter pattern or a redirect template.
var segmentMarkerRe = regexp.MustCompile(`^\{(-?\d*)\}`)

type wildcard int

const (
	wildcardNone wildcard = iota
	wildcardLeading
	wildcardTrailing
	wildcardCombined
)

// Match returns the first rule in rules whose pattern matches requestPath,
// or a synthetic "{default}" rule carrying protectedByDefault when none do.
// Only the pathname component of requestPath participates; query string and
// fragment are discarded. The returned rule is a copy, so callers may
// mutate it freely.
func Match(rules []PathFilterRule, protectedByDefault bool, requestPath string) PathFilterRule {
	path := pathnameOf(requestPath)

	for _, rule := range rules {
		pattern := strings.TrimSuffix(rule.URL, "/")
		candidate := path

		// A {N} marker strips the first N segments from the path under
		// comparison before the pattern is applied as a literal.
		if m := segmentMarkerRe.FindStringSubmatch(pattern); m != nil {
			n, err := parseSegmentCount(m[1])
			if err != nil {
				// A malformed marker never matches anything; it is caught
				// as a configuration bug when the template is resolved.
				continue
			}
			pattern = pattern[len(m[0]):]
			candidate = dropSegments(candidate, n)
		}

		pattern, wc := classifyWildcard(pattern)
		if matchPattern(candidate, pattern, wc) {
			return rule
		}
	}

	return PathFilterRule{URL: "{default}", Protected: protectedByDefault}
}

// Resolve rewrites fullURL's path according to filterTemplate, preserving
// the query string. A {N} marker on the template keeps the first N path
// segments of the original URL and appends the stripped template; when N
// exceeds the available segments all of them are kept. Without a marker the
// template becomes the entire path. A negative segment count is a
// configuration bug and yields ErrInvalidFilter.
func Resolve(fullURL string, filterTemplate string) (string, error) {
	u, err := url.Parse(fullURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", fullURL, err)
	}

	if m := segmentMarkerRe.FindStringSubmatch(filterTemplate); m != nil {
		n, err := parseSegmentCount(m[1])
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidFilter, filterTemplate)
		}
		template := filterTemplate[len(m[0]):]

		segments := splitSegments(u.Path)
		if n > len(segments) {
			n = len(segments)
		}
		kept := segments[:n]
		if len(kept) == 0 {
			u.Path = forceLeadingSlash(template)
		} else {
			u.Path = "/" + strings.Join(kept, "/") + template
		}
		return u.String(), nil
	}

	u.Path = forceLeadingSlash(filterTemplate)
	return u.String(), nil
}

func parseSegmentCount(digits string) (int, error) {
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative segment count %d", n)
	}
	return n, nil
}

// pathnameOf extracts the path component of a request URL, dropping any
// query string or fragment.
func pathnameOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Path
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// splitSegments returns the /-delimited segments of path after the leading
// slash. "/a/b" yields ["a" "b"]; "/" and "" yield nil.
func splitSegments(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// dropSegments removes the first n segments of path. Dropping more segments
// than exist leaves the root path.
func dropSegments(path string, n int) string {
	segments := splitSegments(path)
	if n > len(segments) {
		n = len(segments)
	}
	return "/" + strings.Join(segments[n:], "/")
}

func classifyWildcard(pattern string) (string, wildcard) {
	wc := wildcardNone
	if strings.HasPrefix(pattern, "*") {
		wc = wildcardLeading
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "*") {
		if wc == wildcardLeading {
			wc = wildcardCombined
		} else {
			wc = wildcardTrailing
		}
		pattern = pattern[:len(pattern)-1]
	}
	return pattern, wc
}

func matchPattern(path, pattern string, wc wildcard) bool {
	switch wc {
	case wildcardLeading:
		return strings.HasSuffix(path, pattern)
	case wildcardTrailing:
		return strings.HasPrefix(path, pattern)
	case wildcardCombined:
		return strings.Contains(path, pattern)
	default:
		return path == pattern
	}
}

func forceLeadingSlash(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}
