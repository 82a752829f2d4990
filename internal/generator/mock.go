package generator

import (
	"context"
	"fmt"
	"strings"
)

// Mock provides deterministic local replies when no model is configured.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (g *Mock) Generate(ctx context.Context, req Request) (Completion, error) {
	select {
	case <-ctx.Done():
		return Completion{}, classify(ProviderMock, ctx.Err())
	default:
	}
	return Completion{Text: buildMockReply(req), Provider: ProviderMock}, nil
}

func buildMockReply(req Request) string {
	base := strings.TrimSpace(req.LastUserText())
	if base == "" {
		return "Tu sam, pitaj slobodno!"
	}
	return fmt.Sprintf("Super pitanje! Pitaš: %s", base)
}
