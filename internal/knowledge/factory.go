package knowledge

import (
	"context"
	"strings"
)

// NewSource loads from postgres when a database URL is configured, otherwise from the file.
func NewSource(ctx context.Context, path, databaseURL string) (*Base, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return LoadPostgres(ctx, databaseURL)
	}
	return LoadFile(path)
}
