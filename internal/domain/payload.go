package domain

import (
	"encoding/base64"
	"fmt"
	"regexp"

	apperrors "github.com/mxansari007/pearlbloom-admin/pkg/errors"
)

var dataURIPattern = regexp.MustCompile(`^data:(.+);base64,(.*)$`)

// DecodePayload turns the base64 field of an UploadRequest into bytes.
//
// A data URI is reduced to the segment after the comma; its declared mime
// type is discarded. Decoding is lenient: characters outside the standard and
// URL-safe alphabets are skipped, decoding stops at the first '=', missing
// padding is tolerated and a dangling 6-bit tail is dropped. The size ceiling
// is applied to the decoded length.
func DecodePayload(raw string) ([]byte, error) {
	if m := dataURIPattern.FindStringSubmatch(raw); m != nil {
		raw = m[2]
	}

	data, err := decodeLenient(raw)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("decode base64: %w", err))
	}

	if len(data) > MaxUploadBytes {
		return nil, apperrors.ResourceExhausted(MsgFileTooLarge)
	}
	return data, nil
}

func decodeLenient(s string) ([]byte, error) {
	clean := make([]byte, 0, len(s))
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '=':
			break scan
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			clean = append(clean, c)
		case c == '-':
			clean = append(clean, '+')
		case c == '_':
			clean = append(clean, '/')
		}
	}

	// A single leftover character carries fewer than 8 bits.
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}

	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
	n, err := base64.RawStdEncoding.Decode(out, clean)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
