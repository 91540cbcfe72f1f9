package core

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit is how much of the decoded payload is inspected.
// mimetype itself never reads past 3072 bytes.
const sniffLimit = 4096

// DetectMimeType returns the content type of the data carried by a data URI,
// based on its bytes rather than the declared media type. The declared type
// is returned when the data cannot be decoded.
func DetectMimeType(dataURI string) string {
	header, data, ok := strings.Cut(strings.TrimPrefix(dataURI, "data:"), ",")
	if !ok {
		return "application/octet-stream"
	}
	declared, isBase64 := strings.CutSuffix(header, ";base64")
	if declared == "" {
		declared = "text/plain"
	}

	var raw []byte
	if isBase64 {
		prefix := data[:min(len(data), sniffLimit)]
		prefix = prefix[:len(prefix)-len(prefix)%4]
		b, err := base64.StdEncoding.DecodeString(prefix)
		if err != nil {
			return declared
		}
		raw = b
	} else {
		s, err := url.PathUnescape(data[:min(len(data), sniffLimit)])
		if err != nil {
			return declared
		}
		raw = []byte(s)
	}
	return mimetype.Detect(raw).String()
}
