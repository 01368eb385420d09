// Package firebase initializes the Firebase Admin SDK shared by the
// Firestore summary store and the ID token verifier.
package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Config selects the Firebase project and service account.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// NewApp builds a Firebase app. Without a credentials file, application default credentials are used.
func NewApp(ctx context.Context, cfg Config) (*fb.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var appCfg *fb.Config
	if cfg.ProjectID != "" {
		appCfg = &fb.Config{ProjectID: cfg.ProjectID}
	}
	app, err := fb.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}
