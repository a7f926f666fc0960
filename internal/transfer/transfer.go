// Package transfer holds what the import/export codecs share.
package transfer

import (
	"errors"
	"fmt"
	"io"
)

// ErrFileTooLarge is returned when an import payload exceeds its size cap.
var ErrFileTooLarge = errors.New("file too large")

// ReadLimited reads r fully, failing with ErrFileTooLarge once more than
// limit bytes are available. Nothing beyond limit+1 bytes is buffered.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}
