// Package stringdb fetches protein interaction networks from the STRING
// database REST API.
package stringdb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rbseq/phbfit/internal/table"
)

// Defaults for the public STRING service.
const (
	DefaultBaseURL = "https://string-db.org"
	DefaultTaxon   = 381666 // Cupriavidus necator H16
	callerIdentity = "phbfit"
)

// ErrStatus is returned (wrapped) when STRING answers with a non-200 status.
var ErrStatus = errors.New("unexpected STRING response status")

// Interaction is one edge of a STRING network.
type Interaction struct {
	ProteinA string
	ProteinB string
	Score    float64 // combined score in [0,1]
}

// Client queries the STRING network endpoint. Requests are not retried.
type Client struct {
	baseURL       string
	requiredScore int
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a client against baseURL. An empty baseURL uses the
// public STRING service.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for diagnostics.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// SetTimeout sets the HTTP request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetRequiredScore sets the minimum combined score (0-1000) STRING should
// return. Zero leaves the server default.
func (c *Client) SetRequiredScore(score int) {
	c.requiredScore = score
}

// NetworkURL builds the request URL for the given identifiers and taxon.
func (c *Client) NetworkURL(ids []string, taxon int) string {
	q := url.Values{}
	q.Set("identifiers", strings.Join(ids, "\r"))
	q.Set("species", strconv.Itoa(taxon))
	q.Set("caller_identity", callerIdentity)
	if c.requiredScore > 0 {
		q.Set("required_score", strconv.Itoa(c.requiredScore))
	}
	return c.baseURL + "/api/tsv/network?" + q.Encode()
}

// Network fetches the interaction edges among ids for an NCBI taxon.
func (c *Client) Network(ctx context.Context, ids []string, taxon int) ([]Interaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if taxon == 0 {
		taxon = DefaultTaxon
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.NetworkURL(ids, taxon), nil)
	if err != nil {
		return nil, fmt.Errorf("build STRING request: %w", err)
	}

	c.logger.Debug("querying STRING network",
		zap.Int("identifiers", len(ids)),
		zap.Int("taxon", taxon))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("STRING request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	edges, err := ParseNetwork(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode STRING response: %w", err)
	}
	c.logger.Debug("STRING network received", zap.Int("edges", len(edges)))
	return edges, nil
}

// ParseNetwork reads a STRING network TSV body.
func ParseNetwork(r io.Reader) ([]Interaction, error) {
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return nil, nil
	}
	tr, err := table.NewReader(br)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	aIdx, err := tr.Require("preferredName_A")
	if err != nil {
		return nil, err
	}
	bIdx, err := tr.Require("preferredName_B")
	if err != nil {
		return nil, err
	}
	scoreIdx, err := tr.Require("score")
	if err != nil {
		return nil, err
	}

	var edges []Interaction
	for {
		row, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		score, err := table.ParseFloat(row.Get(scoreIdx))
		if err != nil {
			return nil, tr.Errorf("invalid score %q", row.Get(scoreIdx))
		}
		edges = append(edges, Interaction{
			ProteinA: row.Get(aIdx),
			ProteinB: row.Get(bIdx),
			Score:    score,
		})
	}
	return edges, nil
}
