package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"offramp-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodePNG 產生一張小尺寸測試圖
func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessBytesReturnsJPEGDataURI(t *testing.T) {
	svc := NewService(1 << 20)

	dataURI, err := svc.ProcessBytes(encodePNG(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURI, "data:image/jpeg;base64,"))
}

func TestProcessBytesRejectsEmptyInput(t *testing.T) {
	svc := NewService(1 << 20)

	_, err := svc.ProcessBytes(nil)
	assert.Error(t, err)
}

func TestProcessBytesRejectsOversizedImage(t *testing.T) {
	svc := NewService(8)

	_, err := svc.ProcessBytes(encodePNG(t))
	assert.Equal(t, common.ErrInvalidImageSize, err)
}

func TestProcessBytesRejectsNonImageBytes(t *testing.T) {
	svc := NewService(1 << 20)

	_, err := svc.ProcessBytes([]byte("not an image"))
	assert.Error(t, err)
}

func TestValidateBytesAcceptsPNG(t *testing.T) {
	svc := NewService(1 << 20)

	assert.NoError(t, svc.ValidateBytes(encodePNG(t)))
}
