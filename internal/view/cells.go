package view

import (
	"math"
	"net/url"
	"strconv"

	"github.com/abgdnv/storefront/internal/catalog"
)

const defaultBannerButton = "Shop now"

// FormatRupees renders a price as ₹100, or ₹99.50 when it has a fractional part.
func FormatRupees(v float64) string {
	if v == math.Trunc(v) {
		return "₹" + strconv.FormatFloat(v, 'f', 0, 64)
	}
	return "₹" + strconv.FormatFloat(v, 'f', 2, 64)
}

type HeadlineItem struct {
	Text string
	Link string
}

func NewHeadlineItem(h catalog.Headline) HeadlineItem {
	return HeadlineItem{Text: h.Text, Link: h.Link}
}

type BannerSlide struct {
	Title      string
	Subtitle   string
	Image      string
	Link       string
	ButtonText string
}

func NewBannerSlide(b catalog.Banner) BannerSlide {
	slide := BannerSlide{
		Title:      b.Title,
		Subtitle:   b.Subtitle,
		Image:      b.Image,
		Link:       b.Link,
		ButtonText: b.ButtonText,
	}
	if slide.ButtonText == "" {
		slide.ButtonText = defaultBannerButton
	}
	if slide.Link == "" {
		slide.Link = "/products"
	}
	return slide
}

type CollectionCell struct {
	ID    string
	Name  string
	Image string
	Href  string
}

func NewCollectionCell(c catalog.Collection) CollectionCell {
	return CollectionCell{
		ID:    c.ID.String(),
		Name:  c.Name,
		Image: c.Image,
		Href:  "/products?collection=" + url.QueryEscape(c.ID.String()),
	}
}

// ProductCell is a product card. OriginalPrice is empty unless it is higher than Price.
type ProductCell struct {
	ID              string
	Name            string
	Image           string
	Price           string
	OriginalPrice   string
	DiscountPercent int
}

func NewProductCell(p catalog.Product) ProductCell {
	cell := ProductCell{
		ID:    p.ID.String(),
		Name:  p.Name,
		Image: p.Image,
		Price: FormatRupees(p.SellingPrice),
	}
	if p.OnSale() {
		cell.OriginalPrice = FormatRupees(p.OriginalPrice)
		cell.DiscountPercent = int(math.Round((p.OriginalPrice - p.SellingPrice) / p.OriginalPrice * 100))
	}
	return cell
}

type ReelCell struct {
	Title       string
	VideoURL    string
	Thumbnail   string
	ProductHref string
}

func NewReelCell(r catalog.Reel) ReelCell {
	cell := ReelCell{Title: r.Title, VideoURL: r.VideoURL, Thumbnail: r.Thumbnail}
	if r.ProductID != "" {
		cell.ProductHref = "/products#product-" + url.PathEscape(r.ProductID.String())
	}
	return cell
}

// CartRow is one cart line. CanDecrement is false at quantity 1; removal is a separate action.
type CartRow struct {
	LineID        string
	Name          string
	Image         string
	UnitPrice     string
	OriginalPrice string
	Quantity      int
	LineTotal     string
	CanDecrement  bool
}

func NewCartRow(l catalog.CartLine) CartRow {
	row := CartRow{
		LineID:       l.ID.String(),
		Name:         l.Name,
		Image:        l.Image,
		UnitPrice:    FormatRupees(l.UnitPrice),
		Quantity:     l.Quantity,
		LineTotal:    FormatRupees(l.LineTotal()),
		CanDecrement: l.Quantity > 1,
	}
	if l.OriginalPrice > l.UnitPrice {
		row.OriginalPrice = FormatRupees(l.OriginalPrice)
	}
	return row
}
