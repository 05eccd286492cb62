package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ImageRefKind tells which shape an ImageRef holds
type ImageRefKind int

const (
	ImageRefNone ImageRefKind = iota
	ImageRefSingle
	ImageRefMultiple
)

// ImageRef is the image reference of a catalog entry: none, a single URL, or
// an ordered list of URLs whose first element is the primary image.
// Only EncodeImageRef and DecodeImageRef look at the stored text form.
type ImageRef struct {
	kind ImageRefKind
	urls []string
}

// NoImage returns an empty reference
func NoImage() ImageRef {
	return ImageRef{}
}

// SingleImage returns a reference to one URL
func SingleImage(url string) ImageRef {
	if url == "" {
		return ImageRef{}
	}
	return ImageRef{kind: ImageRefSingle, urls: []string{url}}
}

// MultipleImages returns a reference to an ordered URL list.
// An empty list yields NoImage.
func MultipleImages(urls []string) ImageRef {
	if len(urls) == 0 {
		return ImageRef{}
	}
	cp := make([]string, len(urls))
	copy(cp, urls)
	return ImageRef{kind: ImageRefMultiple, urls: cp}
}

// ImageRefFromURLs picks the shape for freshly uploaded images:
// one URL is stored bare, several as a list.
func ImageRefFromURLs(urls []string) ImageRef {
	switch len(urls) {
	case 0:
		return NoImage()
	case 1:
		return SingleImage(urls[0])
	default:
		return MultipleImages(urls)
	}
}

// Kind returns the shape of the reference
func (r ImageRef) Kind() ImageRefKind {
	return r.kind
}

// IsEmpty reports whether there is no image
func (r ImageRef) IsEmpty() bool {
	return r.kind == ImageRefNone
}

// URLs returns a copy of all image URLs in order
func (r ImageRef) URLs() []string {
	cp := make([]string, len(r.urls))
	copy(cp, r.urls)
	return cp
}

// Primary returns the thumbnail / primary image URL, or "" when empty
func (r ImageRef) Primary() string {
	if len(r.urls) == 0 {
		return ""
	}
	return r.urls[0]
}

// EncodeImageRef renders the stored text form:
// "" for none, the bare URL for single, a JSON array for multiple.
func EncodeImageRef(r ImageRef) string {
	switch r.kind {
	case ImageRefSingle:
		return r.urls[0]
	case ImageRefMultiple:
		// Stored arrays keep '&', '<' and '>' unescaped
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(r.urls); err != nil {
			panic(err)
		}
		return strings.TrimSuffix(buf.String(), "\n")
	default:
		return ""
	}
}

// DecodeImageRef parses the stored text form. A value starting with '[' is
// read as a JSON array of URLs; if that fails the whole text is taken as a
// single literal URL.
func DecodeImageRef(s string) ImageRef {
	if s == "" {
		return NoImage()
	}
	if !strings.HasPrefix(s, "[") {
		return SingleImage(s)
	}
	var urls []string
	if err := json.Unmarshal([]byte(s), &urls); err != nil {
		return SingleImage(s)
	}
	return MultipleImages(urls)
}

// Scan implements sql.Scanner
func (r *ImageRef) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = NoImage()
	case string:
		*r = DecodeImageRef(v)
	case []byte:
		*r = DecodeImageRef(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ImageRef", src)
	}
	return nil
}

// Value implements driver.Valuer. Empty references are stored as NULL.
func (r ImageRef) Value() (driver.Value, error) {
	if r.IsEmpty() {
		return nil, nil
	}
	return EncodeImageRef(r), nil
}

// MarshalJSON exposes the reference as an array of URLs
func (r ImageRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.URLs())
}

// UnmarshalJSON accepts an array of URLs or a single URL string
func (r *ImageRef) UnmarshalJSON(data []byte) error {
	var urls []string
	if err := json.Unmarshal(data, &urls); err == nil {
		*r = ImageRefFromURLs(urls)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("invalid image reference: %w", err)
	}
	*r = SingleImage(single)
	return nil
}
