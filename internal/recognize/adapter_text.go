package recognize

import (
	"context"
	"fmt"
	"strings"
)

// TextAdapter is the single-shot manual entry point: the code payload is typed or
// pasted instead of captured. Same Outcome contract as the live session.
type TextAdapter struct {
	client *Client
}

func NewTextAdapter(client *Client) *TextAdapter {
	return &TextAdapter{client: client}
}

func (a *TextAdapter) Submit(ctx context.Context, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{}, fmt.Errorf("empty code payload")
	}
	return a.client.DetectText(ctx, text), nil
}
