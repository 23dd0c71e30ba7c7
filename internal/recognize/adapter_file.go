package recognize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileAdapter is the single-shot file-upload entry point. It performs exactly one
// round trip per Submit and shares the Outcome contract with the live session, so
// callers handle all entry points uniformly.
type FileAdapter struct {
	client *Client
}

func NewFileAdapter(client *Client) *FileAdapter {
	return &FileAdapter{client: client}
}

// Submit uploads the image at path. The returned error covers local I/O only;
// everything past the file read is expressed through the Outcome.
func (a *FileAdapter) Submit(ctx context.Context, path string) (Outcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	return a.client.DetectFile(ctx, filepath.Base(path), f), nil
}
