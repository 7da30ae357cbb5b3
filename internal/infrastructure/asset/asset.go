// Package asset fetches the binary assets embedded in receipts (the company
// logo) and memoizes them as base64 data URIs.
package asset

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder for DecodeConfig
	_ "image/png"  // register decoder for DecodeConfig
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Supported MIME types. The layout engine can place nothing else.
const (
	MIMETypePNG  = "image/png"
	MIMETypeJPEG = "image/jpeg"
)

var (
	// ErrUnsupportedType is returned for assets that are not PNG or JPEG.
	ErrUnsupportedType = errors.New("unsupported asset type")
	// ErrMalformedDataURI is returned when a cached encoding cannot be parsed.
	ErrMalformedDataURI = errors.New("malformed data uri")
)

// EncodedAsset is an asset in its embeddable form.
type EncodedAsset struct {
	SourceID string
	MIMEType string
	DataURI  string
}

// Encode sniffs raw and returns it as a data URI. The image header must
// decode; a truncated or mislabelled file is rejected here rather than
// failing the renderer later.
func Encode(sourceID string, raw []byte) (EncodedAsset, error) {
	if len(raw) == 0 {
		return EncodedAsset{}, fmt.Errorf("asset %s is empty", sourceID)
	}

	mime := mimetype.Detect(raw)
	var mimeType string
	switch {
	case mime.Is(MIMETypePNG):
		mimeType = MIMETypePNG
	case mime.Is(MIMETypeJPEG):
		mimeType = MIMETypeJPEG
	default:
		return EncodedAsset{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, sourceID, mime.String())
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(raw)); err != nil {
		return EncodedAsset{}, fmt.Errorf("asset %s is not a valid image: %w", sourceID, err)
	}

	return EncodedAsset{
		SourceID: sourceID,
		MIMEType: mimeType,
		DataURI:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// Decode parses a data URI previously produced by Encode.
func Decode(sourceID, dataURI string) (EncodedAsset, error) {
	rest, ok := strings.CutPrefix(dataURI, "data:")
	if !ok {
		return EncodedAsset{}, ErrMalformedDataURI
	}
	mimeType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || payload == "" {
		return EncodedAsset{}, ErrMalformedDataURI
	}
	if mimeType != MIMETypePNG && mimeType != MIMETypeJPEG {
		return EncodedAsset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	return EncodedAsset{SourceID: sourceID, MIMEType: mimeType, DataURI: dataURI}, nil
}

// Bytes returns the decoded image bytes.
func (a EncodedAsset) Bytes() ([]byte, error) {
	_, payload, ok := strings.Cut(a.DataURI, ";base64,")
	if !ok {
		return nil, ErrMalformedDataURI
	}
	return base64.StdEncoding.DecodeString(payload)
}

// ImageType returns the image type name understood by fpdf.
func (a EncodedAsset) ImageType() string {
	if a.MIMEType == MIMETypeJPEG {
		return "JPG"
	}
	return "PNG"
}
