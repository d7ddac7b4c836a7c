// Copyright 2024 NodeFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package buffer

import (
	"encoding/base64"
	"fmt"
	"strings"

	hex "github.com/tmthrgd/go-hex"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding selects how strings are converted to and from bytes.
// The numeric values are part of the wire contract with host bindings.
type Encoding int

const (
	Ascii Encoding = iota
	Utf8
	Utf16le
	Ucs2
	Base64
	Base64Url
	Latin1
	Binary
	Hex
)

var encodingNames = [...]string{
	Ascii:     "ascii",
	Utf8:      "utf8",
	Utf16le:   "utf16le",
	Ucs2:      "ucs2",
	Base64:    "base64",
	Base64Url: "base64url",
	Latin1:    "latin1",
	Binary:    "binary",
	Hex:       "hex",
}

func (e Encoding) String() string {
	if e < 0 || int(e) >= len(encodingNames) {
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
	return encodingNames[e]
}

// Valid reports whether e is one of the known encodings.
func (e Encoding) Valid() bool {
	return e >= Ascii && e <= Hex
}

// ParseEncoding accepts the names Node.js accepts, case-insensitively.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "ascii":
		return Ascii, nil
	case "utf8", "utf-8", "":
		return Utf8, nil
	case "utf16le", "utf-16le":
		return Utf16le, nil
	case "ucs2", "ucs-2":
		return Ucs2, nil
	case "base64":
		return Base64, nil
	case "base64url":
		return Base64Url, nil
	case "latin1":
		return Latin1, nil
	case "binary":
		return Binary, nil
	case "hex":
		return Hex, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Encode converts s into bytes using enc.
func Encode(s string, enc Encoding) ([]byte, error) {
	switch enc {
	case Utf8:
		return []byte(s), nil
	case Ascii, Latin1, Binary:
		return latin1Bytes(s), nil
	case Utf16le, Ucs2:
		out, err := utf16le.NewEncoder().String(s)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	case Base64:
		return decodeBase64(s, base64.StdEncoding, base64.RawStdEncoding)
	case Base64Url:
		return decodeBase64(s, base64.URLEncoding, base64.RawURLEncoding)
	case Hex:
		out, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, int(enc))
}

// Decode converts b into a string using enc.
func Decode(b []byte, enc Encoding) (string, error) {
	switch enc {
	case Utf8:
		return string(b), nil
	case Ascii:
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			sb.WriteByte(c & 0x7f)
		}
		return sb.String(), nil
	case Latin1, Binary:
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			sb.WriteRune(charmap.ISO8859_1.DecodeByte(c))
		}
		return sb.String(), nil
	case Utf16le, Ucs2:
		// a trailing odd byte cannot form a code unit
		if len(b)%2 == 1 {
			b = b[:len(b)-1]
		}
		out, err := utf16le.NewDecoder().Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	case Base64:
		return base64.StdEncoding.EncodeToString(b), nil
	case Base64Url:
		return base64.RawURLEncoding.EncodeToString(b), nil
	case Hex:
		return hex.EncodeToString(b), nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownEncoding, int(enc))
}

// latin1Bytes keeps the low byte of every rune. Runes above 0xFF lose
// their high bits, matching Node.js for latin1, binary and ascii.
func latin1Bytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if c, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			out = append(out, c)
			continue
		}
		out = append(out, byte(r))
	}
	return out
}

func decodeBase64(s string, padded, raw *base64.Encoding) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, s)
	enc := raw
	if strings.HasSuffix(s, "=") {
		enc = padded
	}
	out, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return out, nil
}
