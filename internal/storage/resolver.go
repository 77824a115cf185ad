// Package storage turns asset references into URLs a media handle can load.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Resolver maps an asset to a fetchable URL.
type Resolver interface {
	URL(ctx context.Context, assetID, objectKey string) (string, error)
}

// LocalResolver serves assets from the editor's own HTTP server.
type LocalResolver struct {
	BaseURL string
	Token   string
}

func NewLocalResolver(baseURL, token string) *LocalResolver {
	return &LocalResolver{BaseURL: strings.TrimSuffix(baseURL, "/"), Token: token}
}

func (r *LocalResolver) URL(_ context.Context, assetID, _ string) (string, error) {
	if assetID == "" {
		return "", fmt.Errorf("empty asset id")
	}
	u := fmt.Sprintf("%s/assets/%s/media", r.BaseURL, url.PathEscape(assetID))
	if r.Token != "" {
		u += "?token=" + url.QueryEscape(r.Token)
	}
	return u, nil
}
