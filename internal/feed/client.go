// Package feed implements the client for the remote content queue: list the
// pending items, fetch one item's download locations, and acknowledge-delete
// a consumed item. The protocol is four POST operations returning JSON with
// an explicit errorOccurred flag.
package feed

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redmaple/streamsync/internal/apperr"
)

// Queue is the remote queue contract consumed by the import coordinator.
type Queue interface {
	// List returns up to maxResults pending items starting at offset, plus
	// the total number of items waiting in the remote queue.
	List(ctx context.Context, maxResults, offset int) ([]QueueItemRef, int, error)
	// Fetch returns the download locations for one item.
	Fetch(ctx context.Context, uid string) (*FetchedDocument, error)
	// Delete acknowledges an item, removing it from the remote queue.
	// Deleting an already-deleted uid is not an error.
	Delete(ctx context.Context, uid string) error
}

// Client talks to the remote feed service over HTTP+JSON.
type Client struct {
	baseURL string
	creds   CredentialFunc
	httpc   *http.Client
}

var _ Queue = (*Client)(nil)

// NewClient creates a feed client. creds is called before every request so
// credential changes apply to the next call. insecureSkipVerify disables TLS
// verification and exists only as a compatibility opt-out for legacy endpoints
// with broken certificates; leave it false.
func NewClient(baseURL string, creds CredentialFunc, timeout time.Duration, insecureSkipVerify bool) *Client {
	transport := http.DefaultTransport
	if insecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- explicit config opt-out
		transport = t
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// List implements Queue.
func (c *Client) List(ctx context.Context, maxResults, offset int) ([]QueueItemRef, int, error) {
	cr := c.creds()
	req := listRequest{
		Username:            cr.Username,
		Password:            cr.Password,
		FeedDefinitionID:    cr.FeedID,
		MaxResultsRequested: maxResults,
		Offset:              offset,
	}
	var resp listResponse
	if err := c.post(ctx, "ListContent", req, &resp); err != nil {
		return nil, 0, err
	}
	if resp.ErrorOccurred {
		return nil, 0, fmt.Errorf("feed: ListContent: %s: %w", resp.ErrorDescription, apperr.ErrRemote)
	}
	return resp.Items, resp.TotalInQueue, nil
}

// Fetch implements Queue.
func (c *Client) Fetch(ctx context.Context, uid string) (*FetchedDocument, error) {
	cr := c.creds()
	req := articleRequest{
		Username:         cr.Username,
		Password:         cr.Password,
		FeedDefinitionID: cr.FeedID,
		UID:              uid,
	}
	var resp articleResponse
	if err := c.post(ctx, "GetArticle", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrorOccurred {
		return nil, fmt.Errorf("feed: GetArticle %s: %s: %w", uid, resp.ErrorDescription, apperr.ErrRemote)
	}
	if resp.DocumentURL == "" {
		return nil, fmt.Errorf("feed: GetArticle %s: empty document URL: %w", uid, apperr.ErrProtocol)
	}
	return &FetchedDocument{
		UID:         uid,
		DocumentURL: resp.DocumentURL,
		Assets:      resp.AssetURLs,
	}, nil
}

// Delete implements Queue.
func (c *Client) Delete(ctx context.Context, uid string) error {
	cr := c.creds()
	req := deleteRequest{
		Username:         cr.Username,
		Password:         cr.Password,
		FeedDefinitionID: cr.FeedID,
		UID:              uid,
	}
	var resp deleteResponse
	if err := c.post(ctx, "DeleteFromQueue", req, &resp); err != nil {
		// An item another consumer already removed is a success for us.
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if resp.ErrorOccurred {
		return fmt.Errorf("feed: DeleteFromQueue %s: %s: %w", uid, resp.ErrorDescription, apperr.ErrRemote)
	}
	return nil
}

// post sends one JSON request and decodes the JSON response into out, mapping
// HTTP status codes onto the error taxonomy.
func (c *Client) post(ctx context.Context, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("feed: encode %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("feed: build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("feed: %s: %v: %w", op, err, apperr.ErrTransport)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("feed: %s: status %d: %w", op, httpResp.StatusCode, apperr.ErrAuth)
	case httpResp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("feed: %s: status %d: %w", op, httpResp.StatusCode, apperr.ErrNotFound)
	case httpResp.StatusCode != http.StatusOK:
		return fmt.Errorf("feed: %s: status %d: %w", op, httpResp.StatusCode, apperr.ErrTransport)
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("feed: %s: read body: %v: %w", op, err, apperr.ErrTransport)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("feed: %s: decode response: %v: %w", op, err, apperr.ErrProtocol)
	}
	return nil
}
