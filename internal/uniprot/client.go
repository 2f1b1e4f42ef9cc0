// Package uniprot fetches protein sequences missing from the local sequence
// table from the UniProt REST service.
package uniprot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"elaspicdb/pkg/domain"
)

// DefaultBaseURL is the UniProtKB REST endpoint.
const DefaultBaseURL = "https://rest.uniprot.org/uniprotkb"

// ErrNotFound is returned when UniProt has no entry for an accession.
var ErrNotFound = errors.New("uniprot: entry not found")

// MismatchError reports a FASTA record whose accession differs from the query.
type MismatchError struct {
	Requested string
	Got       string
}

func (e MismatchError) Error() string {
	return fmt.Sprintf("uniprot: fasta accession %s does not match query %s", e.Got, e.Requested)
}

// Client retrieves FASTA entries over HTTP.
type Client struct {
	http    *http.Client
	baseURL string
	retries int
	backoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithBaseURL overrides the UniProtKB endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRetries sets how many times transient failures are retried and the
// base delay between attempts, which grows linearly.
func WithRetries(n int, backoff time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		c.backoff = backoff
	}
}

// NewClient constructs a Client with sane defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: DefaultBaseURL,
		retries: 2,
		backoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSequence downloads the FASTA entry for uniprotID and maps it to a
// UniprotSequence.
func (c *Client) FetchSequence(ctx context.Context, uniprotID string) (domain.UniprotSequence, error) {
	endpoint := fmt.Sprintf("%s/%s.fasta", c.baseURL, url.PathEscape(uniprotID))
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return domain.UniprotSequence{}, err
	}
	seq, err := ParseFASTA(strings.NewReader(string(body)))
	if err != nil {
		return domain.UniprotSequence{}, err
	}
	if seq.UniprotID != uniprotID {
		return domain.UniprotSequence{}, MismatchError{Requested: uniprotID, Got: seq.UniprotID}
	}
	return seq, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w (%s)", ErrNotFound, endpoint)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			lastErr = fmt.Errorf("uniprot: http status %d", resp.StatusCode)
			continue
		case readErr != nil:
			lastErr = readErr
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("fetch %s: %w", endpoint, lastErr)
}

// ParseFASTA reads the first record of a UniProt FASTA document. The header
// `db|accession|name description OS=... GN=... PE=n SV=n` fills the sequence
// metadata columns.
func ParseFASTA(r io.Reader) (domain.UniprotSequence, error) {
	template := linear.NewSeq("", nil, alphabet.Protein)
	reader := fasta.NewReader(r, template)
	s, err := reader.Read()
	if err == io.EOF {
		return domain.UniprotSequence{}, fmt.Errorf("uniprot: empty fasta document")
	}
	if err != nil {
		return domain.UniprotSequence{}, fmt.Errorf("uniprot: read fasta: %w", err)
	}
	lin, ok := s.(*linear.Seq)
	if !ok {
		return domain.UniprotSequence{}, fmt.Errorf("uniprot: unexpected sequence type %T", s)
	}
	parts := strings.Split(lin.Name(), "|")
	if len(parts) != 3 {
		return domain.UniprotSequence{}, fmt.Errorf("uniprot: unexpected fasta header %q", lin.Name())
	}
	letters := make([]byte, len(lin.Seq))
	for i, l := range lin.Seq {
		letters[i] = byte(l)
	}
	out := domain.UniprotSequence{
		DB:              parts[0],
		UniprotID:       parts[1],
		UniprotName:     parts[2],
		UniprotSequence: strings.ToUpper(string(letters)),
	}
	applyDescription(&out, lin.Description())
	return out, nil
}

// applyDescription splits the UniProt description into protein name and the
// OS/GN/PE/SV tags.
func applyDescription(s *domain.UniprotSequence, desc string) {
	tags := []string{" OS=", " OX=", " GN=", " PE=", " SV="}
	first := len(desc)
	for _, t := range tags {
		if i := strings.Index(desc, t); i >= 0 && i < first {
			first = i
		}
	}
	s.ProteinName = strings.TrimSpace(desc[:first])
	value := func(tag string) string {
		i := strings.Index(desc, tag)
		if i < 0 {
			return ""
		}
		rest := desc[i+len(tag):]
		end := len(rest)
		for _, t := range tags {
			if j := strings.Index(rest, t); j >= 0 && j < end {
				end = j
			}
		}
		return strings.TrimSpace(rest[:end])
	}
	s.OrganismName = value(" OS=")
	s.GeneName = value(" GN=")
	if n, err := strconv.ParseInt(value(" PE="), 10, 64); err == nil {
		s.ProteinExistence = &n
	}
	if n, err := strconv.ParseInt(value(" SV="), 10, 64); err == nil {
		s.SequenceVersion = &n
	}
}
