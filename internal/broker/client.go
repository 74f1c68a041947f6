package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// Observer receives one call per broker request, e.g. for metrics.
type Observer func(op, result string)

// Client is a ThingSpeak channel client.
type Client struct {
	baseURL    string
	channelID  string
	readKey    string
	writeKey   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	observe    Observer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout on a copy of the current client,
// leaving a client passed to WithHTTPClient untouched.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithBreaker trips the circuit after failures consecutive errors and keeps it open for openFor.
func WithBreaker(failures int, openFor time.Duration) ClientOption {
	return func(c *Client) {
		c.breaker = newBreaker(failures, openFor)
	}
}

// WithObserver installs a per-request callback.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) {
		c.observe = o
	}
}

const (
	defaultTimeout         = 10 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerOpenFor  = 30 * time.Second
	maxBodyBytes           = 4 << 20
)

// NewClient builds a client for one channel.
func NewClient(baseURL, channelID, readKey, writeKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		channelID:  strings.TrimSpace(channelID),
		readKey:    readKey,
		writeKey:   writeKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		breaker:    newBreaker(defaultBreakerFailures, defaultBreakerOpenFor),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(failures int, openFor time.Duration) *gobreaker.CircuitBreaker {
	if failures < 1 {
		failures = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "thingspeak",
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(failures)
		},
		// a rejected write still proves the broker is reachable
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected) || errors.Is(err, ErrNoData)
		},
	})
}

var _ Broker = (*Client)(nil)

// Latest returns the last entry of the channel.
func (c *Client) Latest(ctx context.Context) (Entry, error) {
	if c.channelID == "" {
		return Entry{}, ErrNotConfigured
	}
	q := url.Values{}
	c.addReadKey(q)

	var e Entry
	err := c.execute("latest", func() error {
		body, err := c.get(ctx, c.channelPath("feeds/last.json"), q)
		if err != nil {
			return err
		}
		// an empty channel answers -1
		if strings.TrimSpace(string(body)) == "-1" {
			return ErrNoData
		}
		if err := json.Unmarshal(body, &e); err != nil {
			return fmt.Errorf("%w: decode last entry: %v", ErrUnavailable, err)
		}
		return nil
	})
	return e, err
}

type feedResponse struct {
	Feeds []Entry `json:"feeds"`
}

// thingspeak expects "YYYY-MM-DD HH:NN:SS" for start/end
const feedTimeLayout = "2006-01-02 15:04:05"

// Feeds returns entries of the channel, oldest first.
func (c *Client) Feeds(ctx context.Context, fq FeedQuery) ([]Entry, error) {
	if c.channelID == "" {
		return nil, ErrNotConfigured
	}
	q := url.Values{}
	c.addReadKey(q)
	if fq.Results > 0 {
		q.Set("results", strconv.Itoa(fq.Results))
	}
	if !fq.Start.IsZero() {
		q.Set("start", fq.Start.UTC().Format(feedTimeLayout))
	}
	if !fq.End.IsZero() {
		q.Set("end", fq.End.UTC().Format(feedTimeLayout))
	}
	if !fq.Start.IsZero() || !fq.End.IsZero() {
		q.Set("timezone", "UTC")
	}

	var out feedResponse
	err := c.execute("feeds", func() error {
		body, err := c.get(ctx, c.channelPath("feeds.json"), q)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(body)) == "-1" {
			return nil
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("%w: decode feeds: %v", ErrUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out.Feeds, nil
}

// Write stores one entry with the given fields and returns its entry id.
func (c *Client) Write(ctx context.Context, u Update) (int64, error) {
	if c.writeKey == "" {
		return 0, ErrNotConfigured
	}
	if len(u) == 0 {
		return 0, errors.New("empty update")
	}
	form := url.Values{}
	form.Set("api_key", c.writeKey)
	for f, v := range u {
		form.Set(f.Key(), v)
	}

	var id int64
	err := c.execute("write", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/update", strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("build update request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		body, err := c.do(req)
		if err != nil {
			return err
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
		if perr != nil {
			return fmt.Errorf("%w: unexpected update answer %q", ErrUnavailable, string(body))
		}
		if n == 0 {
			return ErrRejected
		}
		id = n
		return nil
	})
	return id, err
}

func (c *Client) channelPath(rest string) string {
	return c.baseURL + "/channels/" + url.PathEscape(c.channelID) + "/" + rest
}

func (c *Client) addReadKey(q url.Values) {
	if c.readKey != "" {
		q.Set("api_key", c.readKey)
	}
}

// execute runs fn inside the breaker and reports the outcome.
func (c *Client) execute(op string, fn func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.observe != nil {
		c.observe(op, resultLabel(err))
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrNoData):
		return "empty"
	default:
		return "error"
	}
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return body, nil
}
