package asset

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.Set(x, x, color.RGBA{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncode(t *testing.T) {
	raw := testPNG(t)

	t.Run("png", func(t *testing.T) {
		a, err := Encode("logo", raw)
		require.NoError(t, err)
		assert.Equal(t, MIMETypePNG, a.MIMEType)
		assert.Equal(t, "PNG", a.ImageType())
		assert.Contains(t, a.DataURI, "data:image/png;base64,")

		decoded, err := a.Bytes()
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := Encode("logo", []byte("<html>not found</html>"))
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("truncated png", func(t *testing.T) {
		_, err := Encode("logo", raw[:12])
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Encode("logo", nil)
		assert.Error(t, err)
	})
}

func TestDecode(t *testing.T) {
	a, err := Encode("logo", testPNG(t))
	require.NoError(t, err)

	back, err := Decode("logo", a.DataURI)
	require.NoError(t, err)
	assert.Equal(t, a, back)

	_, err = Decode("logo", "not-a-data-uri")
	assert.ErrorIs(t, err, ErrMalformedDataURI)

	_, err = Decode("logo", "data:text/plain;base64,aGk=")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestBundledLogo(t *testing.T) {
	raw, err := BundledFetcher{}.Fetch(context.Background(), DefaultLogoSource)
	require.NoError(t, err)

	a, err := Encode(DefaultLogoSource, raw)
	require.NoError(t, err)
	assert.Equal(t, MIMETypePNG, a.MIMEType)

	_, err = BundledFetcher{}.Fetch(context.Background(), "bundled:missing.png")
	assert.Error(t, err)
}
