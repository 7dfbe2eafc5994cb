package service

import (
	"encoding/base64"
	"strings"
)

// decodeFrame accepts plain base64 (standard or URL alphabet, padded or not)
// and data URLs of the form data:<mime>;base64,<payload>.
func decodeFrame(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var mime string
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				mime = meta[:semi]
			} else {
				mime = meta
			}
			s = s[idx+1:]
		}
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var firstErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, mime, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, "", firstErr
}

// frameFilename names an archived webcam capture after its MIME type
func frameFilename(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return "webcam.jpg"
	case "image/webp":
		return "webcam.webp"
	case "image/gif":
		return "webcam.gif"
	case "image/bmp":
		return "webcam.bmp"
	default:
		return "webcam.png"
	}
}
