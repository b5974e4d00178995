package core

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// parseDataURI splits an inline "data:<mimetype>;base64,<data>" payload into
// its MIME type and decoded bytes.
func parseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: missing payload")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("unsupported data URI encoding: %q", meta)
	}
	if mimeType == "" {
		return "", nil, fmt.Errorf("malformed data URI: missing MIME type")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}
