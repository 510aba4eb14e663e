// Package rest provides the HTTP handlers of the storefront pages and cart actions.
package rest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abgdnv/storefront/internal/contact"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	storefrontmw "github.com/abgdnv/storefront/internal/middleware"
	"github.com/abgdnv/storefront/internal/page"
	"github.com/abgdnv/storefront/internal/resource"
	"github.com/abgdnv/storefront/internal/session"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/internal/view"
	"github.com/abgdnv/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SessionProvider hands out the session of a session id.
type SessionProvider interface {
	Get(id string) *session.Session
}

// ContactService accepts contact-page messages.
type ContactService interface {
	Submit(ctx context.Context, form contact.Form) (string, error)
}

// HealthCheck is one dependency checked by /readyz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options tunes page rendering.
type Options struct {
	// RenderWait is how long a page waits for its resources before rendering placeholders.
	RenderWait time.Duration
	// SecureCookies marks cookies the handler clears as Secure.
	SecureCookies bool
}

type Handler struct {
	sessions SessionProvider
	renderer *view.Renderer
	contact  ContactService
	checks   []HealthCheck
	opts     Options
	logger   *slog.Logger
}

func NewHandler(sessions SessionProvider, renderer *view.Renderer, contactService ContactService, checks []HealthCheck, opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		renderer: renderer,
		contact:  contactService,
		checks:   checks,
		opts:     opts,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the page and cart routes behind pageMiddleware, and the probes without it.
func (h *Handler) RegisterRoutes(r chi.Router, pageMiddleware ...func(http.Handler) http.Handler) {
	r.Get("/livez", h.Livez)
	r.Get("/readyz", h.Readyz)

	r.Group(func(r chi.Router) {
		r.Use(pageMiddleware...)

		r.Get("/", h.Home)
		r.Get("/collections", h.Collections)
		r.Get("/products", h.Products)
		r.Get("/academy", h.Academy)
		r.Get("/contact", h.ContactForm)
		r.Post("/contact", h.SubmitContact)

		r.Get("/cart", h.Cart)
		r.Post("/cart/add/{productId}", h.AddToCart)
		r.Route("/cart/{id}", func(r chi.Router) {
			r.Post("/increment", h.Increment)
			r.Post("/decrement", h.Decrement)
			r.Post("/remove", h.Remove)
		})

		r.Get("/checkout", h.Checkout)
		r.Post("/checkout", h.BeginCheckout)
		r.Post("/checkout/confirm", h.ConfirmCheckout)
		r.Post("/checkout/cancel", h.CancelCheckout)

		r.Post("/refresh/{resource}", h.Refresh)
	})
}

// Home renders the landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.HomeResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	h.render(w, r, mLogger, view.PageHome, view.NewHomePage(snap, h.chrome(r, snap, "Home")))
}

// Collections renders every collection.
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.CollectionsResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	h.render(w, r, mLogger, view.PageCollections, view.NewCollectionsPage(snap, h.chrome(r, snap, "Collections")))
}

// Products renders the product grid, optionally narrowed by ?collection=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.ProductsResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	collectionID := r.URL.Query().Get("collection")
	h.render(w, r, mLogger, view.PageProducts, view.NewProductsPage(snap, h.chrome(r, snap, "Shop"), collectionID))
}

// Academy renders the academy page. The selected tab comes from ?tab=.
func (h *Handler) Academy(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.AcademyResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	h.render(w, r, mLogger, view.PageAcademy, view.NewAcademyPage(snap, h.chrome(r, snap, "Academy"), r.URL.Query().Get("tab")))
}

// ContactForm renders an empty contact form, or the thank-you note after ?sent=1.
func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.ContactResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	sent := r.URL.Query().Get("sent") == "1"
	h.render(w, r, mLogger, view.PageContact, view.NewContactPage(h.chrome(r, snap, "Contact"), contact.Form{}, nil, sent))
}

// SubmitContact validates and sends a contact message.
// Invalid forms are rendered again with the entered values and field errors.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := r.ParseForm(); err != nil {
		mLogger.WarnContext(r.Context(), "Error parsing contact form", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid form")
		return
	}
	form := contact.Form{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Phone:   r.PostForm.Get("phone"),
		Message: r.PostForm.Get("message"),
	}

	_, err := h.contact.Submit(r.Context(), form)
	if err == nil {
		web.SeeOther(w, r, "/contact?sent=1", "")
		return
	}

	sess := h.session(r)
	snap := sess.Store.Snapshot()
	var vErr *contact.ValidationError
	if errors.As(err, &vErr) {
		mLogger.InfoContext(r.Context(), "Contact form has validation errors", "fields", vErr.Fields)
		h.renderStatus(w, r, mLogger, http.StatusUnprocessableEntity, view.PageContact, view.NewContactPage(h.chrome(r, snap, "Contact"), form, vErr.Fields, false))
		return
	}
	mLogger.ErrorContext(r.Context(), "Error sending contact message", "error", err)
	chrome := h.chrome(r, snap, "Contact")
	chrome.Notice = "We could not send your message right now. Please try again."
	h.renderStatus(w, r, mLogger, http.StatusServiceUnavailable, view.PageContact, view.NewContactPage(chrome, form, nil, false))
}

// Cart renders the shopper's cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.CartResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	state := sess.Cart.State()
	h.render(w, r, mLogger, view.PageCart, view.NewCartPage(snap, h.chrome(r, snap, "Cart"), state))
}

// AddToCart adds one unit of {productId}.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	productID := chi.URLParam(r, "productId")

	mLogger.DebugContext(r.Context(), "Received request to add product to cart", "product_id", productID)
	err := sess.Cart.Add(r.Context(), productID)
	h.cartRedirect(w, r, mLogger, err)
}

// Increment raises the quantity of line {id} by one.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, 1)
}

// Decrement lowers the quantity of line {id} by one. A line at quantity 1 is left as is.
func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.changeQuantity(w, r, -1)
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request, delta int) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	lineID := chi.URLParam(r, "id")

	mLogger.DebugContext(r.Context(), "Received request to change cart quantity", "line_id", lineID, "delta", delta)
	err := sess.Cart.ChangeQuantity(r.Context(), lineID, delta)
	h.cartRedirect(w, r, mLogger, err)
}

// Remove deletes line {id}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	lineID := chi.URLParam(r, "id")

	mLogger.DebugContext(r.Context(), "Received request to remove cart line", "line_id", lineID)
	err := sess.Cart.RemoveLine(r.Context(), lineID)
	h.cartRedirect(w, r, mLogger, err)
}

// Checkout renders the checkout being submitted.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, h.opts.RenderWait, view.CartResources...)
	defer ctrl.Unmount()

	snap := ctrl.Snapshot()
	h.render(w, r, mLogger, view.PageCheckout,
		view.NewCheckoutPage(snap, h.chrome(r, snap, "Checkout"), sess.Cart.State(), sess.Cart.CheckoutID()))
}

// BeginCheckout submits the cart to the payment collaborator.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)

	checkoutID, err := sess.Cart.BeginCheckout(r.Context())
	if err != nil {
		h.cartRedirect(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Checkout started", "checkout_id", checkoutID)
	web.SeeOther(w, r, "/checkout", "")
}

// ConfirmCheckout completes the checkout and signs the shopper out.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)

	if err := sess.Cart.ConfirmCheckout(r.Context()); err != nil {
		h.cartRedirect(w, r, mLogger, err)
		return
	}
	storefrontmw.ClearIdentity(w, h.opts.SecureCookies)
	web.SeeOther(w, r, "/", "Thank you! Your order has been placed.")
}

// CancelCheckout returns to the cart, which is unchanged.
func (h *Handler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	sess := h.session(r)

	err := sess.Cart.CancelCheckout(r.Context())
	h.cartRedirect(w, r, mLogger, err)
}

// Refresh refetches {resource} and returns to the page named by the back form value.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name, err := resource.Parse(chi.URLParam(r, "resource"))
	if err != nil {
		mLogger.WarnContext(r.Context(), "Refresh of unknown resource", "error", err)
		web.RespondError(w, mLogger, http.StatusNotFound, err.Error())
		return
	}
	sess := h.session(r)
	ctrl := page.Mount(r.Context(), sess.Store, 0, name)
	ctrl.Refresh(r.Context(), h.opts.RenderWait, name)
	ctrl.Unmount()

	web.SeeOther(w, r, backPath(r.FormValue("back")), "")
}

// Livez reports that the process is up.
func (h *Handler) Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Readyz probes every dependency concurrently and reports 503 if any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	results := make([]error, len(h.checks))
	g, gCtx := errgroup.WithContext(r.Context())
	for i, c := range h.checks {
		g.Go(func() error {
			results[i] = c.Check(gCtx)
			return nil
		})
	}
	_ = g.Wait()

	failed := make(map[string]string)
	for i, c := range h.checks {
		if results[i] != nil {
			failed[c.Name] = results[i].Error()
		}
	}
	if len(failed) > 0 {
		mLogger.WarnContext(r.Context(), "Readiness check failed", "checks", failed)
		web.RespondJSON(w, mLogger, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the request's session with the current identity applied.
// Identification waits for the cart at most RenderWait.
func (h *Handler) session(r *http.Request) *session.Session {
	id, ok := web.GetSessionID(r.Context())
	if !ok {
		id = uuid.NewString()
	}
	sess := h.sessions.Get(id)

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RenderWait)
	defer cancel()
	sess.Cart.Identify(ctx, web.CurrentUser(r.Context()))
	return sess
}

func (h *Handler) chrome(r *http.Request, snap store.Snapshot, title string) view.Chrome {
	return view.NewChrome(snap, title, r.URL.Path, r.URL.Query().Get("notice"))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, data any) {
	h.renderStatus(w, r, logger, http.StatusOK, name, data)
}

func (h *Handler) renderStatus(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Error rendering page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// cartRedirect answers a cart action with 303 to /cart. Rejections travel as a notice.
func (h *Handler) cartRedirect(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if err != nil {
		logger.InfoContext(r.Context(), "Cart action rejected", "path", r.URL.Path, "error", err)
	}
	web.SeeOther(w, r, "/cart", notice(err))
}

// notice maps a cart or checkout error onto the message shown to the shopper.
func notice(err error) string {
	var reqErr *storeerrors.RequestError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, storeerrors.ErrQuantityBelowMinimum):
		return "Quantity cannot go below 1. Use Remove to delete the item."
	case errors.Is(err, storeerrors.ErrCartLineBusy):
		return "That item is still being updated."
	case errors.Is(err, storeerrors.ErrCartLineNotFound):
		return "That item is no longer in your cart."
	case errors.Is(err, storeerrors.ErrNotIdentified):
		return "Sign in to use your cart."
	case errors.Is(err, storeerrors.ErrCheckoutInProgress):
		return "Your order is being submitted. Cancel the checkout to change your cart."
	case errors.Is(err, storeerrors.ErrCartEmpty):
		return "Your cart is empty."
	case errors.Is(err, storeerrors.ErrNotSubmitting):
		return "There is no checkout in progress."
	case errors.As(err, &reqErr):
		return reqErr.Message
	default:
		return "Something went wrong. Please try again."
	}
}

// backPath only allows local absolute paths.
func backPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
