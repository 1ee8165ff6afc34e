// Package services contains the server-side business logic: credential
// management and token issuance (UserService), the three authentication
// trust domains (AuthService), the password-reset flow and image uploads.
package services

import (
	"context"
	"io"
)

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (string, error)
}

// Notifier delivers the out-of-band password-reset link.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}
