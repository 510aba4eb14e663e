// Package e2e provides end-to-end tests for the storefront.
// The suite runs the real application handler in an httptest.Server and points it at a fake
// REST backend, so every request crosses the backend client, the session store and the renderer.
// It uses `testify/suite` for lifecycle management (`SetupSuite`, `TearDownSuite`, `SetupTest`).
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/storefront/internal/app"
	"github.com/abgdnv/storefront/internal/backend"
	"github.com/abgdnv/storefront/internal/config"
	storefrontmw "github.com/abgdnv/storefront/internal/middleware"
	"github.com/abgdnv/storefront/internal/transport/rest"
	pkgconfig "github.com/abgdnv/storefront/pkg/config"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "STOREFRONT_SKIP_E2E_TESTS"

const shopperToken = "shopper-token"

// StorefrontE2ESuite is a test suite for end-to-end tests of the storefront.
type StorefrontE2ESuite struct {
	suite.Suite
	backend   *fakeBackend
	upstream  *httptest.Server // fake REST backend
	server    *httptest.Server // storefront under test
	verifier  *MockVerifier
	publisher *recordingPublisher
	cancel    context.CancelFunc
	logger    *slog.Logger
}

// testConfig creates a configuration for the storefront pointed at the fake backend.
func testConfig(backendURL string) *config.Config {
	var cfg config.Config

	cfg.Backend.URL = backendURL
	cfg.Backend.Timeout = 5 * time.Second
	cfg.Backend.CircuitBreaker = pkgconfig.CircuitBreakerConfig{
		ConsecutiveFailures: 100,
		ErrorRatePercent:    100,
		OpenTimeout:         time.Second,
		HalfOpenRequests:    1,
	}
	cfg.Session = pkgconfig.SessionConfig{Size: 100, TTL: time.Hour, CookieName: "sf_session"}
	cfg.Render.Wait = 5 * time.Second

	return &cfg
}

// SetupSuite starts the fake backend and the storefront application.
func (s *StorefrontE2ESuite) SetupSuite() {
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.backend = newFakeBackend()
	s.upstream = httptest.NewServer(s.backend.routes())

	cfg := testConfig(s.upstream.URL)
	client := backend.NewClient(cfg.Backend, s.logger)
	checks := []rest.HealthCheck{{Name: "backend", Check: client.Check}}

	s.verifier = new(MockVerifier)
	shopper, err := jwt.NewBuilder().Subject("shopper-1").Build()
	require.NoError(s.T(), err)
	s.verifier.On("Verify", mock.Anything, shopperToken).Return(shopper, nil)
	s.publisher = &recordingPublisher{}

	var base context.Context
	base, s.cancel = context.WithCancel(context.Background())
	deps, err := app.SetupDependencies(base, cfg, client, s.publisher, s.verifier, checks, nil, s.logger)
	require.NoError(s.T(), err, "Failed to setup application for E2E")

	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.logger.Info("E2E test server started", "url", s.server.URL)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *StorefrontE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.upstream != nil {
		s.upstream.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// SetupTest restores the fake backend's catalog and empties every cart.
func (s *StorefrontE2ESuite) SetupTest() {
	s.backend.reset()
	s.publisher.reset()
}

func TestStorefrontE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(StorefrontE2ESuite))
}

func (s *StorefrontE2ESuite) TestHomePageForGuest() {
	c := s.newClient(false)

	resp, body := s.get(c, "/")

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, `data-component="banners" data-render-mode="populated"`)
	s.Contains(body, "Festive nail art")
	s.Contains(body, `data-component="products" data-render-mode="populated"`)
	s.Contains(body, "Cuticle oil")
	s.Contains(body, `<span class="selling-price">₹149</span>`)
	s.Contains(body, `<s class="original-price">₹199</s>`)
	s.Contains(body, `data-component="reels" data-render-mode="empty"`)
	s.Zero(s.backend.cartRequests(), "guests never reach the cart endpoint")
}

func (s *StorefrontE2ESuite) TestBackendFailureDegradesSections() {
	s.backend.setFailing("products", true)
	c := s.newClient(false)

	resp, body := s.get(c, "/products")

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, `data-component="products" data-render-mode="empty"`)

	s.backend.setFailing("products", false)
	resp = s.post(c, "/refresh/products", url.Values{"back": {"/products"}})
	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/products", resp.Header.Get("Location"))

	_, body = s.get(c, "/products")
	s.Contains(body, `data-component="products" data-render-mode="populated"`)
}

func (s *StorefrontE2ESuite) TestGuestCannotUseCart() {
	c := s.newClient(false)

	resp := s.post(c, "/cart/add/p1", nil)

	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("Sign in to use your cart.", noticeOf(s.T(), resp))
	_, body := s.get(c, "/cart")
	s.Contains(body, "Sign in to see your cart.")
	s.Zero(s.backend.cartRequests())
}

func (s *StorefrontE2ESuite) TestCartAndCheckout() {
	c := s.newClient(true)

	_, body := s.get(c, "/cart")
	s.Contains(body, "Your cart is empty.")

	resp := s.post(c, "/cart/add/p1", nil)
	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Empty(noticeOf(s.T(), resp))

	_, body = s.get(c, "/cart")
	s.Contains(body, `data-line-id="line-p1"`)
	s.Contains(body, `<span class="quantity">1</span>`)

	resp = s.post(c, "/cart/line-p1/decrement", nil)
	s.Equal("Quantity cannot go below 1. Use Remove to delete the item.", noticeOf(s.T(), resp))
	s.Equal(1, s.backend.quantity("shopper-1", "line-p1"))

	resp = s.post(c, "/cart/line-p1/increment", nil)
	s.Empty(noticeOf(s.T(), resp))
	s.Equal(2, s.backend.quantity("shopper-1", "line-p1"))

	_, body = s.get(c, "/cart")
	s.Contains(body, `<span class="quantity">2</span>`)
	s.Contains(body, "Subtotal <strong>₹298</strong>")

	resp = s.post(c, "/checkout", nil)
	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("/checkout", resp.Header.Get("Location"))
	s.Equal([]string{messaging.CheckoutRequestedSubject}, s.publisher.subjects())

	_, body = s.get(c, "/checkout")
	s.Contains(body, `data-state="submitting"`)

	resp = s.post(c, "/checkout/confirm", nil)
	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal("Thank you! Your order has been placed.", noticeOf(s.T(), resp))

	// the access token cookie is gone, so the shopper is a guest again
	_, body = s.get(c, "/cart")
	s.Contains(body, "Sign in to see your cart.")
}

func (s *StorefrontE2ESuite) TestCartBackendRejection() {
	c := s.newClient(true)
	s.get(c, "/cart")

	resp := s.post(c, "/cart/add/sold-out", nil)

	s.Equal("Out of stock", noticeOf(s.T(), resp))
}

func (s *StorefrontE2ESuite) TestContactForm() {
	c := s.newClient(false)

	resp := s.post(c, "/contact", url.Values{"name": {""}, "email": {"asha@example.com"}, "message": {"Do you ship to Pune?"}})
	s.Equal(http.StatusUnprocessableEntity, resp.StatusCode)
	s.Empty(s.publisher.subjects())

	resp = s.post(c, "/contact", url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "message": {"Do you ship to Pune?"}})
	s.Equal(http.StatusSeeOther, resp.StatusCode)
	s.Equal([]string{messaging.ContactSubmittedSubject}, s.publisher.subjects())
}

func (s *StorefrontE2ESuite) TestProbes() {
	c := s.newClient(false)

	resp, _ := s.get(c, "/livez")
	s.Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.get(c, "/readyz")
	s.Equal(http.StatusOK, resp.StatusCode)

	s.backend.setFailing("healthz", true)
	resp, body := s.get(c, "/readyz")
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	s.Contains(body, "backend")
}

// --------------------------------------------------------------------------
// ---------------------- Helper methods for E2E tests ----------------------
// --------------------------------------------------------------------------

// newClient returns a client with its own cookie jar, so every test has its own session.
// Redirects are not followed so tests can inspect them.
func (s *StorefrontE2ESuite) newClient(signedIn bool) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(s.T(), err)
	if signedIn {
		u, err := url.Parse(s.server.URL)
		require.NoError(s.T(), err)
		jar.SetCookies(u, []*http.Cookie{{Name: storefrontmw.AccessTokenCookie, Value: shopperToken, Path: "/"}})
	}
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *StorefrontE2ESuite) get(c *http.Client, path string) (*http.Response, string) {
	resp, err := c.Get(s.server.URL + path)
	require.NoError(s.T(), err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp, string(body)
}

func (s *StorefrontE2ESuite) post(c *http.Client, path string, form url.Values) *http.Response {
	resp, err := c.PostForm(s.server.URL+path, form)
	require.NoError(s.T(), err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

func noticeOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	u, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return u.Query().Get("notice")
}

// MockVerifier is a mock implementation of the auth.Verifier interface for testing purposes.
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, tokenString string) (jwt.Token, error) {
	args := m.Called(ctx, tokenString)

	var token jwt.Token
	if args.Get(0) != nil {
		token = args.Get(0).(jwt.Token)
	}
	return token, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Subject())
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fakeLine struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
}

// fakeBackend serves the REST backend's envelope format from memory.
type fakeBackend struct {
	mu       sync.Mutex
	lists    map[string]string
	failing  map[string]bool
	carts    map[string][]fakeLine
	cartHits int
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	b.reset()
	return b
}

func (b *fakeBackend) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists = map[string]string{
		"headlines":   `[{"id":1,"text":"Free shipping over ₹999"}]`,
		"banners":     `[{"id":"b1","heading":"Festive nail art","image":"/img/festive.jpg"}]`,
		"collections": `[{"id":"c1","title":"Care"}]`,
		"products":    `[{"id":"p1","title":"Cuticle oil","collection_id":"c1","price":"149.00","regularPrice":199,"images":["/img/oil.jpg"]}]`,
		"reels":       `[]`,
	}
	b.failing = make(map[string]bool)
	b.carts = make(map[string][]fakeLine)
	b.cartHits = 0
}

func (b *fakeBackend) setFailing(path string, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[path] = failing
}

func (b *fakeBackend) cartRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cartHits
}

func (b *fakeBackend) quantity(userID, lineID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.carts[userID] {
		if l.ID == lineID {
			return l.Quantity
		}
	}
	return 0
}

func (b *fakeBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if b.isFailing("healthz") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Route("/cart", func(r chi.Router) {
		r.Use(b.requireUser)
		r.Get("/", b.listCart)
		r.Post("/{id}", b.addLine)
		r.Patch("/{id}", b.updateLine)
		r.Delete("/{id}", b.deleteLine)
	})
	r.Get("/{resource}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "resource")
		if b.isFailing(name) {
			writeEnvelope(w, http.StatusServiceUnavailable, map[string]string{"message": "catalog unavailable"})
			return
		}
		b.mu.Lock()
		raw, ok := b.lists[name]
		b.mu.Unlock()
		if !ok {
			writeEnvelope(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]json.RawMessage{"data": json.RawMessage(raw)})
	})
	return r
}

func (b *fakeBackend) isFailing(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failing[path]
}

func (b *fakeBackend) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.cartHits++
		b.mu.Unlock()
		if r.Header.Get(web.XUserId) == "" {
			writeEnvelope(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) listCart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[r.Header.Get(web.XUserId)]
	if lines == nil {
		lines = []fakeLine{}
	}
	writeEnvelope(w, http.StatusOK, map[string]any{"data": lines})
}

func (b *fakeBackend) addLine(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if productID == "sold-out" {
		writeEnvelope(w, http.StatusConflict, map[string]string{"message": "Out of stock"})
		return
	}
	delta, ok := readDelta(w, r)
	if !ok {
		return
	}
	user := r.Header.Get(web.XUserId)

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[user]
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity += delta
			writeEnvelope(w, http.StatusOK, map[string]any{"data": lines[i]})
			return
		}
	}
	line := fakeLine{ID: "line-" + productID, ProductID: productID, Name: "Cuticle oil", Price: "149", Quantity: delta}
	b.carts[user] = append(lines, line)
	writeEnvelope(w, http.StatusCreated, map[string]any{"data": line})
}

func (b *fakeBackend) updateLine(w http.ResponseWriter, r *http.Request) {
	delta, ok := readDelta(w, r)
	if !ok {
		return
	}
	user := r.Header.Get(web.XUserId)
	lineID := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[user]
	for i := range lines {
		if lines[i].ID == lineID {
			lines[i].Quantity += delta
			writeEnvelope(w, http.StatusOK, map[string]any{"data": lines[i]})
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, map[string]string{"message": "Cart item not found"})
}

func (b *fakeBackend) deleteLine(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get(web.XUserId)
	lineID := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.carts[user]
	for i := range lines {
		if lines[i].ID == lineID {
			b.carts[user] = append(lines[:i], lines[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeEnvelope(w, http.StatusNotFound, map[string]string{"message": "Cart item not found"})
}

func readDelta(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		writeEnvelope(w, http.StatusBadRequest, map[string]string{"message": "delta is required"})
		return 0, false
	}
	return req.Delta, true
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
