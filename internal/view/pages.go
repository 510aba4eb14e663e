package view

import (
	"github.com/abgdnv/storefront/internal/cart"
	"github.com/abgdnv/storefront/internal/catalog"
	"github.com/abgdnv/storefront/internal/contact"
	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/abgdnv/storefront/internal/resource"
	"github.com/abgdnv/storefront/internal/store"
)

// Chrome is what every page shows around its content.
type Chrome struct {
	Title     string
	Path      string
	SignedIn  bool
	CartCount int
	Notice    string
	Headlines Section[HeadlineItem]
}

func NewChrome(snap store.Snapshot, title, path, notice string) Chrome {
	count := 0
	for _, l := range snap.CartItems.Items {
		count += l.Quantity
	}
	return Chrome{
		Title:     title,
		Path:      path,
		SignedIn:  snap.UserID != "",
		CartCount: count,
		Notice:    notice,
		Headlines: BuildSection(snap.Headlines, HeadlinePlaceholders, "No announcements right now.", NewHeadlineItem),
	}
}

type HomePage struct {
	Chrome
	Banners     Section[BannerSlide]
	Collections Section[CollectionCell]
	Products    Section[ProductCell]
	Reels       Section[ReelCell]
}

// HomeResources are the resources the home page mounts.
var HomeResources = []resource.Name{resource.Headlines, resource.Banners, resource.Collections, resource.Products, resource.Reels}

func NewHomePage(snap store.Snapshot, chrome Chrome) HomePage {
	return HomePage{
		Chrome:      chrome,
		Banners:     BuildSection(snap.Banners, BannerPlaceholders, "No offers right now. Check back soon.", NewBannerSlide),
		Collections: BuildSection(snap.Collections, CollectionPlaceholders, "No collections yet.", NewCollectionCell),
		Products:    BuildSection(snap.Products, ProductPlaceholders, "No products yet.", NewProductCell),
		Reels:       BuildSection(snap.Reels, ReelPlaceholders, "No reels yet.", NewReelCell),
	}
}

type CollectionsPage struct {
	Chrome
	Collections Section[CollectionCell]
}

var CollectionsResources = []resource.Name{resource.Headlines, resource.Collections}

func NewCollectionsPage(snap store.Snapshot, chrome Chrome) CollectionsPage {
	return CollectionsPage{
		Chrome:      chrome,
		Collections: BuildSection(snap.Collections, CollectionPlaceholders, "No collections yet.", NewCollectionCell),
	}
}

type ProductsPage struct {
	Chrome
	Heading  string
	Products Section[ProductCell]
}

var ProductsResources = []resource.Name{resource.Headlines, resource.Collections, resource.Products}

// NewProductsPage lists every product, or only those of collectionID when it is set.
func NewProductsPage(snap store.Snapshot, chrome Chrome, collectionID string) ProductsPage {
	page := ProductsPage{Chrome: chrome, Heading: "All products"}
	products := snap.Products
	if collectionID != "" {
		for _, c := range snap.Collections.Items {
			if c.ID.String() == collectionID {
				page.Heading = c.Name
				break
			}
		}
		products = filterProducts(products, catalog.ID(collectionID))
	}
	page.Products = BuildSection(products, ProductPlaceholders, "No products in this collection yet.", NewProductCell)
	return page
}

func filterProducts(s resource.State[catalog.Product], collectionID catalog.ID) resource.State[catalog.Product] {
	items := make([]catalog.Product, 0, len(s.Items))
	for _, p := range s.Items {
		if p.CollectionID == collectionID {
			items = append(items, p)
		}
	}
	return resource.State[catalog.Product]{Items: items, Status: s.Status, Err: s.Err}
}

type CartPage struct {
	Chrome
	State       string
	Guest       bool
	Rows        Section[CartRow]
	Subtotal    string
	Error       string
	CanCheckout bool
	Submitting  bool
}

var CartResources = []resource.Name{resource.Headlines, resource.CartItems}

func NewCartPage(snap store.Snapshot, chrome Chrome, state cart.State) CartPage {
	empty := "Your cart is empty."
	if state == cart.Guest {
		empty = "Sign in to see your cart."
	}
	return CartPage{
		Chrome:      chrome,
		State:       state.String(),
		Guest:       state == cart.Guest,
		Rows:        BuildSection(snap.CartItems, CartPlaceholders, empty, NewCartRow),
		Subtotal:    FormatRupees(subtotal(snap.CartItems.Items)),
		Error:       storeerrors.Message(snap.CartItems.Err),
		CanCheckout: state == cart.Populated,
		Submitting:  state == cart.Submitting,
	}
}

type CheckoutPage struct {
	Chrome
	State      string
	Rows       []CartRow
	Subtotal   string
	CheckoutID string
	Submitting bool
}

func NewCheckoutPage(snap store.Snapshot, chrome Chrome, state cart.State, checkoutID string) CheckoutPage {
	rows := make([]CartRow, 0, len(snap.CartItems.Items))
	for _, l := range snap.CartItems.Items {
		rows = append(rows, NewCartRow(l))
	}
	return CheckoutPage{
		Chrome:     chrome,
		State:      state.String(),
		Rows:       rows,
		Subtotal:   FormatRupees(subtotal(snap.CartItems.Items)),
		CheckoutID: checkoutID,
		Submitting: state == cart.Submitting,
	}
}

func subtotal(lines []catalog.CartLine) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.LineTotal()
	}
	return total
}

type AcademyTab struct {
	Key     string
	Title   string
	Summary string
}

var academyTabs = []AcademyTab{
	{Key: "basics", Title: "Basics", Summary: "Prep, shaping and a clean polish finish."},
	{Key: "gel", Title: "Gel & Extensions", Summary: "Builder gel, tips and curing without lifting."},
	{Key: "art", Title: "Nail Art", Summary: "French tips, chrome and hand-painted designs."},
}

type AcademyPage struct {
	Chrome
	Tabs     []AcademyTab
	Selected AcademyTab
	Reels    Section[ReelCell]
}

var AcademyResources = []resource.Name{resource.Headlines, resource.Reels}

// NewAcademyPage selects the tab named by key, falling back to the first one.
func NewAcademyPage(snap store.Snapshot, chrome Chrome, key string) AcademyPage {
	selected := academyTabs[0]
	for _, t := range academyTabs {
		if t.Key == key {
			selected = t
			break
		}
	}
	return AcademyPage{
		Chrome:   chrome,
		Tabs:     academyTabs,
		Selected: selected,
		Reels:    BuildSection(snap.Reels, ReelPlaceholders, "Tutorials are coming soon.", NewReelCell),
	}
}

type ContactPage struct {
	Chrome
	Form   contact.Form
	Errors map[string]string
	Sent   bool
}

var ContactResources = []resource.Name{resource.Headlines}

func NewContactPage(chrome Chrome, form contact.Form, errs map[string]string, sent bool) ContactPage {
	return ContactPage{Chrome: chrome, Form: form, Errors: errs, Sent: sent}
}
