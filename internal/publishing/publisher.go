// Package publishing defines the port for exporting published content to an
// external document workspace.
package publishing

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when an export is requested but no publisher
// is configured.
var ErrNotConfigured = errors.New("publishing is not configured")

// Page is the document handed to a publisher.
type Page struct {
	Title string
	// Markdown is the published version's content.
	Markdown string
}

// Publisher exports a page and returns the identifier of the created
// external page.
type Publisher interface {
	Publish(ctx context.Context, page Page) (string, error)
}

// Disabled is a Publisher that always fails with ErrNotConfigured.
type Disabled struct{}

// Publish implements Publisher.
func (Disabled) Publish(context.Context, Page) (string, error) {
	return "", ErrNotConfigured
}
