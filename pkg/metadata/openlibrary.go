package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
)

// maxAuthorFetches caps the per-record author detail requests so a single
// anthology can't burn the whole rate budget.
const maxAuthorFetches = 3

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// OpenLibraryClient implements Lookup against the Open Library REST API.
type OpenLibraryClient struct {
	baseURL string
	client  *http.Client
}

// NewOpenLibraryClient returns a client for the service at baseURL. Per-call
// timeouts come from the caller's context; httpClient may be nil for the
// default client.
func NewOpenLibraryClient(baseURL string, httpClient *http.Client) *OpenLibraryClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenLibraryClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}
}

type editionResponse struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	PublishDate string   `json:"publish_date"`
	Publishers  []string `json:"publishers"`
	Languages   []struct {
		Key string `json:"key"`
	} `json:"languages"`
	Authors []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

type authorResponse struct {
	Name string `json:"name"`
}

type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title            string   `json:"title"`
		Subtitle         string   `json:"subtitle"`
		AuthorName       []string `json:"author_name"`
		FirstPublishYear int      `json:"first_publish_year"`
		Publisher        []string `json:"publisher"`
		Language         []string `json:"language"`
	} `json:"docs"`
}

// ByISBN fetches the edition record for a validated ISBN.
func (c *OpenLibraryClient) ByISBN(ctx context.Context, isbn string) (*Result, error) {
	var edition editionResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", url.PathEscape(isbn)), isbn, &edition); err != nil {
		return nil, err
	}

	result := &Result{
		Title:    strings.TrimSpace(edition.Title),
		Subtitle: strings.TrimSpace(edition.Subtitle),
		Year:     yearPattern.FindString(edition.PublishDate),
	}
	if len(edition.Publishers) > 0 {
		result.Publisher = strings.TrimSpace(edition.Publishers[0])
	}
	if len(edition.Languages) > 0 {
		result.Language = strings.TrimPrefix(edition.Languages[0].Key, "/languages/")
	}

	for i, author := range edition.Authors {
		if i >= maxAuthorFetches {
			break
		}
		var detail authorResponse
		if err := c.getJSON(ctx, author.Key+".json", isbn, &detail); err != nil {
			// Author detail is best-effort; the edition result stands.
			continue
		}
		if name := strings.TrimSpace(detail.Name); name != "" {
			result.Authors = append(result.Authors, name)
		}
	}

	if result.Title == "" {
		return nil, errcodes.RetrievalNotFound(isbn)
	}

	return result, nil
}

// Search resolves a free-form query against the search endpoint, taking the
// best-ranked document.
func (c *OpenLibraryClient) Search(ctx context.Context, query string) (*Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "1")

	var resp searchResponse
	if err := c.getJSON(ctx, "/search.json?"+q.Encode(), query, &resp); err != nil {
		return nil, err
	}
	if resp.NumFound == 0 || len(resp.Docs) == 0 {
		return nil, errcodes.RetrievalNotFound(query)
	}

	doc := resp.Docs[0]
	result := &Result{
		Title:    strings.TrimSpace(doc.Title),
		Subtitle: strings.TrimSpace(doc.Subtitle),
		Authors:  doc.AuthorName,
	}
	if doc.FirstPublishYear > 0 {
		result.Year = fmt.Sprintf("%d", doc.FirstPublishYear)
	}
	if len(doc.Publisher) > 0 {
		result.Publisher = strings.TrimSpace(doc.Publisher[0])
	}
	if len(doc.Language) > 0 {
		result.Language = doc.Language[0]
	}

	if result.Title == "" {
		return nil, errcodes.RetrievalNotFound(query)
	}

	return result, nil
}

// getJSON performs one GET and decodes the body. 404 maps to a not-found
// outcome; any transport failure or unexpected status maps to a transport
// error. Both are flagged for review and never retried within a pass.
func (c *OpenLibraryClient) getJSON(ctx context.Context, path, query string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errcodes.RetrievalTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errcodes.RetrievalNotFound(query)
	case resp.StatusCode != http.StatusOK:
		return errcodes.RetrievalTransport(errors.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errcodes.RetrievalTransport(err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errcodes.RetrievalTransport(err)
	}

	return nil
}
