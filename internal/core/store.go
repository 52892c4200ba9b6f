package core

import "context"

// TokenStore is a shared, out-of-process home for installation tokens.
// It lets several processes of the same app reuse one installation token
// instead of each exchanging its own.
type TokenStore interface {
	// Load returns the stored token for the installation.
	// found is false if there is no (unexpired) token stored.
	Load(ctx context.Context, installationID int64) (token AuthToken, found bool, err error)

	// Save stores the token until it is about to expire.
	Save(ctx context.Context, installationID int64, token AuthToken) error
}
