package server

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultCallbackPath is used when the redirect URI has no path.
const DefaultCallbackPath = "/callback"

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler completes the authorization code flow for a single callback request.
type OAuthHandler struct {
	config     *oauth2.Config
	state      string
	path       string
	resultChan chan OAuthResult
	once       sync.Once

	mu          sync.Mutex
	callbackHit bool
}

// NewOAuthHandler creates a handler for config, serving the path of config.RedirectURL.
// state must be unguessable; callbacks carrying another state are rejected.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		config:     config,
		state:      state,
		path:       CallbackPath(config.RedirectURL),
		resultChan: make(chan OAuthResult, 1),
	}
}

// CallbackPath returns the path component of a redirect URI, or [DefaultCallbackPath].
func CallbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return DefaultCallbackPath
	}
	return u.Path
}

// Routes returns the callback pattern.
func (h *OAuthHandler) Routes() []string {
	return []string{http.MethodGet + " " + h.path}
}

// ServeHTTP validates the state, exchanges the code and publishes the outcome. Only the
// first callback is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != h.state {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuth)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: authorization denied: %s %s", shared.ErrAuth, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuth, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send publishes result once; later calls are ignored.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ radiosync is authorized</h1>
        <p>Return to the terminal to copy your refresh token.</p>
    </div>
</body>
</html>
`
