package archive

import (
	"bytes"
	"regexp"
)

// framePrefix matches "window.YTD.<dotted-name>.part<N> = ", tolerating
// arbitrary horizontal whitespace and either line-ending convention around
// the assignment. The prefix is treated as shard framing, not content: the
// teacher's parsers (pkg/dataimport/x, pkg/dataprocessing/x) strip this
// same literal prefix with strings.TrimPrefix; this generalizes that to
// the variable part names and whitespace the spec requires.
var framePrefix = regexp.MustCompile(`(?s)^\s*window\.YTD\.[A-Za-z0-9_]+\.part\d+\s*=\s*`)

// stripBOM removes a leading UTF-8 byte-order mark, if present.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}

// frameJSON isolates the JSON byte range of a shard by stripping its
// "window.YTD...part<N> = " assignment prefix and any trailing semicolon.
// It returns an error wrapping KindUnknownFormat if the prefix is absent.
func frameJSON(path string, content []byte) ([]byte, error) {
	content = stripBOM(content)

	loc := framePrefix.FindIndex(content)
	if loc == nil {
		return nil, unknownFormat(path)
	}

	body := bytes.TrimSpace(content[loc[1]:])
	body = bytes.TrimSuffix(body, []byte(";"))
	body = bytes.TrimSpace(body)
	return body, nil
}
