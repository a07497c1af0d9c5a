package google

import (
	"context"
	"crypto/tls"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/safegate/internal/credentials"
)

// Endpoint is Google's OAuth2 endpoint. Tests swap in an httptest server.
var Endpoint = google.Endpoint

// NewOAuthConfig builds the oauth2 configuration for a client credential.
// A zero endpoint means Google's.
func NewOAuthConfig(cred credentials.Credential, endpoint oauth2.Endpoint) *oauth2.Config {
	if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
		endpoint = Endpoint
	}
	scopes := make([]string, len(DefaultOAuthScopes))
	copy(scopes, DefaultOAuthScopes)

	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURL:  cred.RedirectURI,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}

// AuthCodeOptions are the options of every authorization URL: offline access
// so Google issues a refresh token, and incremental authorization. The consent
// prompt is left to Google.
func AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
}

// http1Transport avoids HTTP/2 protocol errors seen against Google APIs.
var http1Transport = newHTTP1Transport()

func newHTTP1Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ForceAttemptHTTP2 = false
	t.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	return t
}

// WithHTTPClient returns a context whose oauth2 HTTP client is base. Exchanges,
// refreshes and API calls made with that context go through base.
func WithHTTPClient(ctx context.Context, base *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, base)
}

// HTTPClient returns a fresh authenticated client for one upstream call.
// The token is refreshed in memory by oauth2 when it has expired; the
// refreshed value is not written back anywhere.
func HTTPClient(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) *http.Client {
	if _, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); !ok {
		ctx = WithHTTPClient(ctx, &http.Client{Transport: http1Transport})
	}
	return conf.Client(ctx, token)
}
