package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agentmesh/meshchat/pkg/chat"
)

// Artifacts returns the gateway-backed artifact store.
func (c *Client) Artifacts() *Artifacts {
	return &Artifacts{client: c}
}

// Artifacts stores session files on the gateway.
type Artifacts struct {
	client *Client
}

var _ chat.ArtifactStore = (*Artifacts)(nil)

func (a *Artifacts) url(sessionID string, segments ...string) string {
	return a.client.endpoint(RouteSessions, append([]string{sessionID, "artifacts"}, segments...)...)
}

func (a *Artifacts) List(ctx context.Context, sessionID string) ([]chat.ArtifactInfo, error) {
	var list []chat.ArtifactInfo
	err := a.client.doRequest(ctx, http.MethodGet, a.url(sessionID), nil, &list)
	return list, err
}

func (a *Artifacts) Versions(ctx context.Context, sessionID, filename string) ([]int, error) {
	var versions []int
	if err := a.client.doRequest(ctx, http.MethodGet, a.url(sessionID, filename, "versions"), nil, &versions); err != nil {
		return nil, notFound(err)
	}
	return versions, nil
}

func (a *Artifacts) Fetch(ctx context.Context, sessionID, filename string, version int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url(sessionID, filename, "versions", strconv.Itoa(version)), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	data, err := a.client.do(a.client.httpClient, req)
	if err != nil {
		return nil, notFound(err)
	}
	return data, nil
}

func (a *Artifacts) Upload(ctx context.Context, sessionID, filename, mimeType string, content []byte) (chat.ArtifactInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url(sessionID, filename), bytes.NewReader(content))
	if err != nil {
		return chat.ArtifactInfo{}, fmt.Errorf("creating request: %w", err)
	}
	if mimeType == "" {
		mimeType = chat.DetectMimeType(filename)
	}
	req.Header.Set("Content-Type", mimeType)

	data, err := a.client.do(a.client.httpClient, req)
	if err != nil {
		return chat.ArtifactInfo{}, err
	}
	var info chat.ArtifactInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return chat.ArtifactInfo{}, fmt.Errorf("unmarshaling response: %w", err)
	}
	return info, nil
}

func (a *Artifacts) Delete(ctx context.Context, sessionID, filename string) error {
	return notFound(a.client.doRequest(ctx, http.MethodDelete, a.url(sessionID, filename), nil, nil))
}

func (a *Artifacts) BatchDelete(ctx context.Context, sessionID string, filenames []string) ([]string, error) {
	var resp BatchDeleteResponse
	if err := a.client.doRequest(ctx, http.MethodPost, a.url(sessionID, batchDeleteSegment), BatchDeleteRequest{Filenames: filenames}, &resp); err != nil {
		return nil, err
	}

	var errs []error
	for _, name := range filenames {
		if msg, ok := resp.Errors[name]; ok {
			errs = append(errs, fmt.Errorf("%s: %s", name, msg))
		}
	}
	return resp.Deleted, errors.Join(errs...)
}

func notFound(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", chat.ErrArtifactNotFound, err)
	}
	return err
}
