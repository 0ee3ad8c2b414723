package crossref

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/researchgraph/crossref/internal/cache"
	"github.com/researchgraph/crossref/internal/util"
	"github.com/researchgraph/crossref/pkg/logger"
)

// AuthorityCrossRef is the registration agency name under which CrossRef
// reports its own DOIs. Only DOIs with this authority resolve to metadata.
const AuthorityCrossRef = "CrossRef"

const (
	defaultAPIBaseURL = "http://api.crossref.org"
	defaultDOIBaseURL = "http://doi.crossref.org"

	functionWorks = "works"
	functionDOIRA = "doiRA"

	partDOI = "doi:"
	extJSON = ".json"

	// CrossRef asks clients to stay polite; this matches a sequential
	// resolver's natural request rate.
	defaultRequestRate = 5.0

	DefaultMaxAttempts  = 10
	DefaultAttemptDelay = time.Second
)

// AuthorityStore is the durable DOI-to-authority mapping checked before the
// registry is asked. Authority returns "" with nil error on a miss.
type AuthorityStore interface {
	Authority(ctx context.Context, doi string) (string, error)
	SaveAuthority(ctx context.Context, doi, authority string) error
}

// StoredAuthor is one persisted author row of a resolved work.
type StoredAuthor struct {
	FirstName string
	LastName  string
	FullName  string
	ORCID     string
}

// StoredWork is a resolved work as persisted in the relational store.
type StoredWork struct {
	ID      int64
	DOI     string
	URL     string
	Title   string
	Year    string
	Authors []StoredAuthor
}

// WorkStore persists resolved works and rebuilds them for graph requests.
// Work returns nil with nil error when the DOI has not been resolved yet.
type WorkStore interface {
	Work(ctx context.Context, doi string) (*StoredWork, error)
	SaveWork(ctx context.Context, work *StoredWork) (int64, error)
}

// Client resolves DOIs against the CrossRef registry through a
// cache-then-network strategy with bounded retry and backoff.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	apiBaseURL string
	doiBaseURL string

	cache       cache.Cache
	authorities AuthorityStore
	works       WorkStore

	maxAttempts  int
	attemptDelay time.Duration
	backoff      bool
}

// ClientParams configures a Client. Cache, Authorities and Works are optional
// collaborators; absent ones disable the corresponding tier.
type ClientParams struct {
	Cache       cache.Cache
	Authorities AuthorityStore
	Works       WorkStore

	// APIBaseURL and DOIBaseURL override the registry endpoints, mainly for
	// tests against a local server.
	APIBaseURL string
	DOIBaseURL string

	MaxAttempts    int
	AttemptDelay   time.Duration
	DisableBackoff bool
	RequestRate    float64

	HTTPClient *http.Client
}

// NewClient creates a CrossRef client.
func NewClient(params ClientParams) *Client {
	c := &Client{
		httpClient:   params.HTTPClient,
		apiBaseURL:   params.APIBaseURL,
		doiBaseURL:   params.DOIBaseURL,
		cache:        params.Cache,
		authorities:  params.Authorities,
		works:        params.Works,
		maxAttempts:  params.MaxAttempts,
		attemptDelay: params.AttemptDelay,
		backoff:      !params.DisableBackoff,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = defaultAPIBaseURL
	}
	if c.doiBaseURL == "" {
		c.doiBaseURL = defaultDOIBaseURL
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.attemptDelay <= 0 {
		c.attemptDelay = DefaultAttemptDelay
	}
	requestRate := params.RequestRate
	if requestRate <= 0 {
		requestRate = defaultRequestRate
	}
	c.limiter = rate.NewLimiter(rate.Limit(requestRate), 1)
	return c
}

// RequestWork fetches the bibliographic metadata for a DOI. It returns nil
// when the registry has no data, the response is malformed, or the work lacks
// a title.
func (c *Client) RequestWork(ctx context.Context, doi string) (*Work, error) {
	encoded := encodeWorkDOI(doi)
	workURL := c.apiBaseURL + "/" + functionWorks + "/" + urlPath(encoded)
	body, err := c.cachedGet(ctx, cache.NamespaceWorks, encoded, workURL)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, nil
	}
	work := parseWork(body)
	if work == nil || work.FirstTitle() == "" {
		return nil, nil
	}
	return work, nil
}

// RequestWorks fetches one page of the registry's work list. It is used as a
// connectivity probe.
func (c *Client) RequestWorks(ctx context.Context) (*WorkList, error) {
	body, err := c.get(ctx, c.apiBaseURL+"/"+functionWorks)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, nil
	}
	return parseWorkList(body), nil
}

// RequestAuthority resolves the registration agency for a DOI: durable store
// first, then the cached registry lookup, persisting non-empty results. A
// registry miss returns "" with nil error.
func (c *Client) RequestAuthority(ctx context.Context, doi string) (string, error) {
	if c.authorities != nil {
		authority, err := c.authorities.Authority(ctx, doi)
		if err != nil {
			return "", fmt.Errorf("reading authority for %s: %w", doi, err)
		}
		if authority != "" {
			return authority, nil
		}
	}

	encoded := url.QueryEscape(doi)
	authorityURL := c.doiBaseURL + "/" + functionDOIRA + "/" + urlPath(encoded)
	body, err := c.cachedGet(ctx, cache.NamespaceAuthority, encoded, authorityURL)
	if err != nil {
		return "", err
	}
	if body == "" {
		return "", nil
	}

	authority := parseAuthority(body)
	if authority != "" && c.authorities != nil {
		if err := c.authorities.SaveAuthority(ctx, doi, authority); err != nil {
			return "", fmt.Errorf("saving authority for %s: %w", doi, err)
		}
	}
	return authority, nil
}

// cachedGet looks a registry response up in the cache backend and falls back
// to the network, writing non-empty responses back into the cache.
func (c *Client) cachedGet(ctx context.Context, namespace, encodedDOI, requestURL string) (string, error) {
	key := namespace + "/" + encodedDOI + extJSON
	if c.cache != nil {
		data, err := c.cache.Get(ctx, key)
		if err != nil {
			return "", err
		}
		if data != nil {
			return string(data), nil
		}
	}

	body, err := c.get(ctx, requestURL)
	if err != nil || body == "" {
		return "", err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, key, []byte(body)); err != nil {
			return "", err
		}
	}
	return body, nil
}

// get performs a rate-limited GET with bounded retry. Transport failures are
// retried with backoff; a non-200 status is a permanent condition and returns
// "" immediately without retrying.
func (c *Client) get(ctx context.Context, requestURL string) (string, error) {
	logger.Debug("[CrossRef] Downloading", "url", requestURL)
	return util.RetryWithBackoff(ctx, c.maxAttempts, c.attemptDelay, c.backoff, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", nil
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	})
}

func encodeWorkDOI(doi string) string {
	return url.QueryEscape(partDOI + doi)
}

// urlPath restores path separators inside an encoded DOI for use in a request
// URL. Cache keys keep the fully encoded form so entries stay flat files.
func urlPath(encodedDOI string) string {
	return strings.ReplaceAll(encodedDOI, "%2F", "/")
}
