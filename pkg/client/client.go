// Package client talks to a running jotter server.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/jotter/pkg/types"
)

// Client calls the notes API rooted at URL.
type Client struct {
	URL  string
	HTTP *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{URL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

// APIError is a non-2xx response. It unwraps to the types sentinel named by
// Kind, or failing that the one matching the status code.
type APIError struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if err := types.ErrorOfKind(e.Kind); err != nil {
		return err
	}
	switch e.StatusCode {
	case http.StatusBadRequest:
		return types.ErrValidation
	case http.StatusNotFound:
		return types.ErrNotFound
	}
	if e.StatusCode >= http.StatusInternalServerError {
		return types.ErrPersistence
	}
	return nil
}

// Health is the body of GET /api/health.
type Health struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Notes   int    `json:"notes"`
}

type noteRequest struct {
	ID      int64  `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

func (c *Client) ListNotes(ctx context.Context) ([]types.Note, error) {
	var notes []types.Note
	if err := c.getJSON(ctx, "/api/notes", &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) GetNote(ctx context.Context, id int64) (types.Note, error) {
	var n types.Note
	if err := c.getJSON(ctx, fmt.Sprintf("/api/notes/%d", id), &n); err != nil {
		return types.Note{}, err
	}
	return n, nil
}

// View fetches one page of the filtered note list.
func (c *Client) View(ctx context.Context, search string, page int) (types.Page, error) {
	q := url.Values{}
	if search != "" {
		q.Set("q", search)
	}
	q.Set("page", strconv.Itoa(page))

	var r types.Page
	if err := c.getJSON(ctx, "/api/notes/view?"+q.Encode(), &r); err != nil {
		return types.Page{}, err
	}
	return r, nil
}

// CreateNote stores a new note and returns its id.
func (c *Client) CreateNote(ctx context.Context, d types.Draft) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	body := noteRequest{Title: d.Title, Content: d.Content, Image: d.Image}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/notes", body, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (c *Client) UpdateNote(ctx context.Context, id int64, d types.Draft) error {
	body := noteRequest{ID: id, Title: d.Title, Content: d.Content, Image: d.Image}
	return c.sendJSON(ctx, http.MethodPost, "/api/notes", body, nil)
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	resp, err := c.invoke(ctx, http.MethodDelete, fmt.Sprintf("/api/notes/%d", id), "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = validateResponse(resp)
	return err
}

// Export copies the server's export file to w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.invoke(ctx, http.MethodGet, "/api/export", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return err
	}
	if _, err := w.Write(respBytes); err != nil {
		return fmt.Errorf("error writing export: %w", err)
	}
	return nil
}

// Import uploads a notes file. mode is "merge" (or "") or "replace".
// It returns the number of records the server imported.
func (c *Client) Import(ctx context.Context, r io.Reader, mode string) (int, error) {
	path := "/api/import"
	if mode != "" {
		path += "?mode=" + url.QueryEscape(mode)
	}
	resp, err := c.invoke(ctx, http.MethodPost, path, "application/json", r)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return 0, err
	}
	var result struct {
		Imported int `json:"imported"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return 0, fmt.Errorf("error JSON-decoding response body: %w", err)
	}
	return result.Imported, nil
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/api/health", &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

// Private functions

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.invoke(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("error JSON-decoding response body: %w", err)
	}
	return nil
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("error JSON-encoding request: %w", err)
	}
	resp, err := c.invoke(ctx, method, path, "application/json", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("error JSON-decoding response body: %w", err)
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error building API request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error invoking API: %w", err)
	}
	return resp, nil
}

func validateResponse(resp *http.Response) ([]byte, error) {
	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		if json.Unmarshal(respBytes, &body) == nil && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Kind = body.Kind
		} else {
			apiErr.Message = strings.TrimSpace(string(respBytes))
		}
		return nil, apiErr
	}

	return respBytes, nil
}
