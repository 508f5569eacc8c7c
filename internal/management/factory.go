package management

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// DefaultMaxCachedClients bounds the factory's memo.
const DefaultMaxCachedClients = 256

// ErrNoCredential is returned when neither a token nor a client pair is given.
var ErrNoCredential = errors.New("no bearer token or client credentials")

// Credentials is the shape a client is built from. Either Token or the
// ClientID/ClientSecret pair must be set; Token wins when both are.
type Credentials struct {
	Domain       string
	Token        string
	ClientID     string
	ClientSecret string
	// Audience is requested in the client-credentials grant.
	Audience string
}

func (c Credentials) cacheKey() string {
	h := sha256.New()
	h.Write([]byte(c.Domain))
	h.Write([]byte{0})
	if c.Token != "" {
		h.Write([]byte("token"))
		h.Write([]byte{0})
		h.Write([]byte(c.Token))
	} else {
		h.Write([]byte("client"))
		h.Write([]byte{0})
		h.Write([]byte(c.ClientID))
		h.Write([]byte{0})
		h.Write([]byte(c.ClientSecret))
		h.Write([]byte{0})
		h.Write([]byte(c.Audience))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithBaseURL overrides how the API root is derived from the domain.
func WithBaseURL(fn func(domain string) string) FactoryOption {
	return func(f *Factory) {
		f.baseURL = fn
	}
}

// WithTokenURL overrides the token endpoint used for client credentials.
func WithTokenURL(fn func(domain string) string) FactoryOption {
	return func(f *Factory) {
		f.tokenURL = fn
	}
}

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		f.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header on every call.
func WithUserAgent(ua string) FactoryOption {
	return func(f *Factory) {
		f.userAgent = ua
	}
}

// WithMaxCachedClients bounds the memo size.
func WithMaxCachedClients(n int) FactoryOption {
	return func(f *Factory) {
		f.maxCached = n
	}
}

// WithRateLimit paces each client to perSecond calls with the given burst.
// A non-positive perSecond leaves clients unlimited.
func WithRateLimit(perSecond float64, burst int) FactoryOption {
	return func(f *Factory) {
		f.rateLimit = rate.Limit(perSecond)
		f.rateBurst = burst
	}
}

// Factory builds management clients. It holds no per-call state; building
// the same credential shape twice returns the memoized client.
type Factory struct {
	baseURL    func(domain string) string
	tokenURL   func(domain string) string
	httpClient *http.Client
	userAgent  string
	maxCached  int
	rateLimit  rate.Limit
	rateBurst  int

	mu      sync.Mutex
	clients map[string]*Client
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		baseURL: func(domain string) string {
			return "https://" + domain + "/api/v2/"
		},
		tokenURL: func(domain string) string {
			return "https://" + domain + "/oauth/token"
		},
		httpClient: http.DefaultClient,
		maxCached:  DefaultMaxCachedClients,
		clients:    make(map[string]*Client),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Client returns a client authenticated with creds.
func (f *Factory) Client(ctx context.Context, creds Credentials) (API, error) {
	if creds.Token == "" && (creds.ClientID == "" || creds.ClientSecret == "") {
		return nil, ErrNoCredential
	}

	key := creds.cacheKey()

	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[key]; ok {
		return client, nil
	}

	client, err := NewClient(f.baseURL(creds.Domain), f.authenticatedClient(ctx, creds), f.userAgent)
	if err != nil {
		return nil, err
	}
	if f.rateLimit > 0 {
		burst := f.rateBurst
		if burst <= 0 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(f.rateLimit, burst)
	}

	if len(f.clients) >= f.maxCached {
		// Memo full; start over.
		f.clients = make(map[string]*Client)
	}
	f.clients[key] = client
	return client, nil
}

// Len returns the number of memoized clients.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Factory) authenticatedClient(ctx context.Context, creds Credentials) *http.Client {
	base := f.httpClient
	if creds.Token != "" {
		return &http.Client{
			Timeout: base.Timeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token, TokenType: "Bearer"}),
				Base:   base.Transport,
			},
		}
	}

	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     f.tokenURL(creds.Domain),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if creds.Audience != "" {
		cc.EndpointParams = map[string][]string{"audience": {creds.Audience}}
	}
	// The token source outlives ctx; only its HTTP client is taken from it.
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base)
	return cc.Client(tokenCtx)
}
