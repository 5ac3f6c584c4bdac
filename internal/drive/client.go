package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	internalhttp "github.com/promoforge/driveguard/internal/http"
	"github.com/promoforge/driveguard/internal/logger"
	"github.com/promoforge/driveguard/internal/tokenguard"
)

// Client is a client for the storage provider's file API. Every call asks
// the token guard for a valid bearer token first; the guard refreshes
// behind the scenes when the cached one is about to expire.
type Client struct {
	httpClient     internalhttp.HTTPClient
	guard          *tokenguard.Guardian
	endpoint       string
	uploadEndpoint string
}

// NewClient creates a new storage API client backed by the given guard.
func NewClient(guard *tokenguard.Guardian) *Client {
	return &Client{
		httpClient:     internalhttp.NewHTTPClient(),
		guard:          guard,
		endpoint:       DefaultEndpoint,
		uploadEndpoint: DefaultUploadEndpoint,
	}
}

// WithEndpoints overrides the API endpoints. Used by tests.
func (c *Client) WithEndpoints(endpoint, uploadEndpoint string) *Client {
	c.endpoint = endpoint
	c.uploadEndpoint = uploadEndpoint
	return c
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func (c *Client) WithHTTPClient(client internalhttp.HTTPClient) *Client {
	c.httpClient = client
	return c
}

// About fetches the connected account and its quota. Also serves as the
// startup authentication check.
func (c *Client) About(ctx context.Context) (*About, error) {
	respBody, err := c.do(ctx, http.MethodGet, c.endpoint+"/about?fields=user,storageQuota", "", nil)
	if err != nil {
		return nil, err
	}

	var about About
	if err := json.Unmarshal(respBody, &about); err != nil {
		return nil, fmt.Errorf("could not unmarshal about response: %w", err)
	}
	return &about, nil
}

// UploadAsset uploads a campaign asset via a multipart upload and returns
// the stored file. The content is buffered so the request can be retried
// once after a mid-flight token rejection.
func (c *Client) UploadAsset(ctx context.Context, name, mimeType string, content io.Reader, parents ...string) (*File, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("could not read asset content: %w", err)
	}

	meta := fileMetadata{Name: name, MimeType: mimeType, Parents: parents}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("could not marshal file metadata: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, fmt.Errorf("could not create metadata part: %w", err)
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, fmt.Errorf("could not write metadata part: %w", err)
	}

	mediaHeader := textproto.MIMEHeader{}
	if mimeType != "" {
		mediaHeader.Set("Content-Type", mimeType)
	}
	mediaPart, err := mw.CreatePart(mediaHeader)
	if err != nil {
		return nil, fmt.Errorf("could not create media part: %w", err)
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, fmt.Errorf("could not write media part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize multipart body: %w", err)
	}

	contentType := "multipart/related; boundary=" + mw.Boundary()
	respBody, err := c.do(ctx, http.MethodPost, c.uploadEndpoint+"/files?uploadType=multipart&fields=id,name,mimeType,size,parents", contentType, body.Bytes())
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, fmt.Errorf("could not unmarshal upload response: %w", err)
	}

	logger.Get().Info().Str("file_id", file.ID).Str("name", file.Name).Msg("Uploaded asset")
	return &file, nil
}

// ListAssets lists files, optionally scoped to a parent folder.
func (c *Client) ListAssets(ctx context.Context, folderID string) (*FileList, error) {
	query := url.Values{}
	query.Set("fields", "files(id,name,mimeType,size,parents),nextPageToken")
	if folderID != "" {
		query.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	}

	respBody, err := c.do(ctx, http.MethodGet, c.endpoint+"/files?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}

	var list FileList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("could not unmarshal file list: %w", err)
	}
	return &list, nil
}

// do performs an authorized request. A 401 means the token was revoked
// between the guard's expiry check and the upstream call, so it forces one
// refresh and retries once before giving up.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) ([]byte, error) {
	token, err := c.guard.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get access token: %w", err)
	}

	resp, err := c.send(ctx, method, rawURL, contentType, body, token)
	if err != nil {
		return nil, fmt.Errorf("request execution error: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		logger.Get().Warn().Str("url", rawURL).Msg("Upstream rejected access token; forcing refresh")
		token, err = c.guard.Refresh(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}

		resp, err = c.send(ctx, method, rawURL, contentType, body, token)
		if err != nil {
			return nil, fmt.Errorf("request execution error after refresh: %w", err)
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("storage API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (c *Client) send(ctx context.Context, method, rawURL, contentType string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}
