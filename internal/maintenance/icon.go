package maintenance

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyIcon = errors.New("empty icon")

	icoMagic = []byte{0, 0, 1, 0}
	pngMagic = []byte("\x89PNG\r\n\x1a\n")
)

// NormalizeIcon decodes a png, jpeg, gif, webp or bmp image and re-encodes
// it as PNG. ICO containers are accepted when they embed a PNG frame.
func NormalizeIcon(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmptyIcon
	}

	img, _, err := image.Decode(bytes.NewReader(icoFrame(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode icon: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyIcon
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// icoFrame returns the largest PNG frame of an ICO file, or data unchanged
// when it is not an ICO or carries no PNG frame.
func icoFrame(data []byte) []byte {
	if len(data) < 6 || !bytes.Equal(data[:4], icoMagic) {
		return data
	}

	count := int(binary.LittleEndian.Uint16(data[4:6]))
	var best []byte
	for i := range count {
		entry := 6 + i*16
		if entry+16 > len(data) {
			break
		}
		size := int(binary.LittleEndian.Uint32(data[entry+8 : entry+12]))
		offset := int(binary.LittleEndian.Uint32(data[entry+12 : entry+16]))
		if size <= 0 || offset < 0 || offset+size > len(data) {
			continue
		}
		frame := data[offset : offset+size]
		if bytes.HasPrefix(frame, pngMagic) && len(frame) > len(best) {
			best = frame
		}
	}
	if best == nil {
		return data
	}
	return best
}
