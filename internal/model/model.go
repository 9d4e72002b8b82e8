package model

import (
	"context"
	"errors"
)

var ErrEmptyResponse = errors.New("model returned no text")

// Client sends one prompt with one staged image to a hosted multimodal model
// and returns the reply text. Implementations make a single attempt.
type Client interface {
	Analyze(ctx context.Context, prompt, imagePath string) (string, error)
}
