package view

import (
	"bytes"
	"errors"
	"testing"

	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/contact"
	"github.com/abgdnv/storefront/internal/resource"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, page string, data any) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, page, data))
	return buf.String()
}

func TestRenderer_HomeRenderModes(t *testing.T) {
	snap := store.Snapshot{
		Banners:     resource.State[catalog.Banner]{Status: resource.Loading},
		Collections: resource.State[catalog.Collection]{Status: resource.Loaded, Items: []catalog.Collection{}},
		Products: resource.State[catalog.Product]{Status: resource.Loaded, Items: []catalog.Product{
			{ID: "1", Name: "A", SellingPrice: 100, OriginalPrice: 150},
		}},
		Reels: resource.State[catalog.Reel]{Status: resource.Failed, Err: errors.New("boom")},
	}

	html := render(t, PageHome, NewHomePage(snap, NewChrome(snap, "Home", "/", "")))

	assert.Contains(t, html, `data-component="banners" data-render-mode="loading"`)
	assert.Contains(t, html, `data-component="collections" data-render-mode="empty"`)
	assert.Contains(t, html, `data-component="products" data-render-mode="populated"`)
	assert.Contains(t, html, `data-component="reels" data-render-mode="empty"`)
	assert.Contains(t, html, "No collections yet.")
	assert.Contains(t, html, `<span class="selling-price">₹100</span>`)
	assert.Contains(t, html, `<s class="original-price">₹150</s>`)
	assert.Equal(t, 1, bytes.Count([]byte(html), []byte(`class="skeleton skeleton-banner"`)))
}

func TestRenderer_Headlines(t *testing.T) {
	testCases := []struct {
		name     string
		state    resource.State[catalog.Headline]
		wantMode string
		want     string
	}{
		{
			name:     "loaded without items shows the empty message",
			state:    resource.State[catalog.Headline]{Status: resource.Loaded, Items: []catalog.Headline{}},
			wantMode: "empty",
			want:     `<p class="empty-state">No announcements right now.</p>`,
		},
		{
			name:     "loaded with items",
			state:    resource.State[catalog.Headline]{Status: resource.Loaded, Items: []catalog.Headline{{ID: "1", Text: "Free shipping"}}},
			wantMode: "populated",
			want:     "<span>Free shipping</span>",
		},
		{
			name:     "loading shows a skeleton",
			state:    resource.State[catalog.Headline]{Status: resource.Loading},
			wantMode: "loading",
			want:     `class="skeleton skeleton-line"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := store.Snapshot{Headlines: tc.state}

			html := render(t, PageCollections, NewCollectionsPage(snap, NewChrome(snap, "Collections", "/collections", "")))

			assert.Contains(t, html, `data-component="headlines" data-render-mode="`+tc.wantMode+`"`)
			assert.Contains(t, html, tc.want)
		})
	}
}

func TestRenderer_ProductPlaceholdersMatchLayout(t *testing.T) {
	snap := store.Snapshot{Products: resource.State[catalog.Product]{Status: resource.Loading}}

	html := render(t, PageProducts, NewProductsPage(snap, NewChrome(snap, "Shop", "/products", ""), ""))

	assert.Equal(t, ProductPlaceholders, bytes.Count([]byte(html), []byte(`class="skeleton skeleton-card"`)))
	assert.NotContains(t, html, "product-cell")
}

func TestRenderer_ProductsFilteredByCollection(t *testing.T) {
	snap := store.Snapshot{
		Collections: resource.State[catalog.Collection]{Status: resource.Loaded, Items: []catalog.Collection{{ID: "c1", Name: "Gel Polish"}}},
		Products: resource.State[catalog.Product]{Status: resource.Loaded, Items: []catalog.Product{
			{ID: "1", Name: "In", CollectionID: "c1", SellingPrice: 10},
			{ID: "2", Name: "Out", CollectionID: "c2", SellingPrice: 10},
		}},
	}

	html := render(t, PageProducts, NewProductsPage(snap, NewChrome(snap, "Shop", "/products", ""), "c1"))

	assert.Contains(t, html, "<h1>Gel Polish</h1>")
	assert.Contains(t, html, `data-id="1"`)
	assert.NotContains(t, html, `data-id="2"`)
}

func TestRenderer_Cart(t *testing.T) {
	snap := store.Snapshot{
		UserID: "u1",
		CartItems: resource.State[catalog.CartLine]{Status: resource.Loaded, Items: []catalog.CartLine{
			{ID: "l1", Name: "Gel", UnitPrice: 100, Quantity: 1},
			{ID: "l2", Name: "Kit", UnitPrice: 50, Quantity: 3},
		}},
	}

	html := render(t, PageCart, NewCartPage(snap, NewChrome(snap, "Cart", "/cart", "Quantity cannot go below 1."), cart.Populated))

	assert.Contains(t, html, `data-component="cart" data-render-mode="populated"`)
	assert.Contains(t, html, "Subtotal <strong>₹250</strong>")
	assert.Contains(t, html, `action="/cart/l2/decrement"`)
	assert.Contains(t, html, `action="/checkout"`)
	assert.Contains(t, html, "Quantity cannot go below 1.")
	assert.Contains(t, html, `<span class="badge">4</span>`)
}

func TestRenderer_GuestCart(t *testing.T) {
	snap := store.Snapshot{}

	html := render(t, PageCart, NewCartPage(snap, NewChrome(snap, "Cart", "/cart", ""), cart.Guest))

	assert.Contains(t, html, "Sign in to see your cart.")
	assert.NotContains(t, html, `action="/checkout"`)
}

func TestRenderer_Checkout(t *testing.T) {
	snap := store.Snapshot{
		UserID:    "u1",
		CartItems: resource.State[catalog.CartLine]{Status: resource.Loaded, Items: []catalog.CartLine{{ID: "l1", Name: "Gel", UnitPrice: 100, Quantity: 2}}},
	}

	html := render(t, PageCheckout, NewCheckoutPage(snap, NewChrome(snap, "Checkout", "/checkout", ""), cart.Submitting, "0123456789abcdef"))

	assert.Contains(t, html, `data-state="submitting"`)
	assert.Contains(t, html, "<code>01234567</code>")
	assert.Contains(t, html, `action="/checkout/confirm"`)
	assert.Contains(t, html, "Total <strong>₹200</strong>")
}

func TestRenderer_AcademyTabs(t *testing.T) {
	snap := store.Snapshot{}

	html := render(t, PageAcademy, NewAcademyPage(snap, NewChrome(snap, "Academy", "/academy", ""), "art"))

	assert.Contains(t, html, `data-tab="art"`)
	assert.Contains(t, html, `data-component="reels" data-render-mode="empty"`)

	page := NewAcademyPage(snap, Chrome{}, "unknown")
	assert.Equal(t, "basics", page.Selected.Key)
}

func TestRenderer_ContactErrors(t *testing.T) {
	snap := store.Snapshot{}
	form := contact.Form{Name: "Asha", Email: "nope"}

	html := render(t, PageContact, NewContactPage(NewChrome(snap, "Contact", "/contact", ""), form, map[string]string{"email": "Enter a valid email address."}, false))

	assert.Contains(t, html, `value="Asha"`)
	assert.Contains(t, html, `value="nope"`)
	assert.Contains(t, html, `data-field="email"`)
	assert.Contains(t, html, "Enter a valid email address.")
}

func TestRenderer_ContactSent(t *testing.T) {
	snap := store.Snapshot{}

	html := render(t, PageContact, NewContactPage(NewChrome(snap, "Contact", "/contact", ""), contact.Form{}, nil, true))

	assert.Contains(t, html, "Thanks!")
	assert.NotContains(t, html, "contact-form")
}

func TestRenderer_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	assert.Error(t, r.Render(&bytes.Buffer{}, "missing", nil))
}
