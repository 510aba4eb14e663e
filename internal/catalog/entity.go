package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
)

type Headline struct {
	ID   ID
	Text string
	Link string
}

type Banner struct {
	ID         ID
	Title      string
	Subtitle   string
	Image      string
	Link       string
	ButtonText string
}

type Collection struct {
	ID    ID
	Name  string
	Slug  string
	Image string
}

type Product struct {
	ID            ID
	Name          string
	Description   string
	CollectionID  ID
	Image         string
	Images        []string
	SellingPrice  float64
	OriginalPrice float64
}

// OnSale reports whether the original price should be shown struck through.
func (p Product) OnSale() bool {
	return p.OriginalPrice > p.SellingPrice
}

type Reel struct {
	ID        ID
	Title     string
	VideoURL  string
	Thumbnail string
	ProductID ID
}

// CartLine is one line of the shopper's cart. Quantity is at least 1.
type CartLine struct {
	ID            ID
	ProductID     ID
	Name          string
	Image         string
	UnitPrice     float64
	OriginalPrice float64
	Quantity      int
}

// LineTotal is the unit price times the quantity.
func (l CartLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type headlineWire struct {
	ID       ID     `json:"id"`
	Text     string `json:"text"`
	Title    string `json:"title"`
	Headline string `json:"headline"`
	Link     string `json:"link"`
}

func (w headlineWire) normalize() Headline {
	return Headline{ID: w.ID, Text: firstString(w.Text, w.Title, w.Headline), Link: w.Link}
}

type bannerWire struct {
	ID         ID     `json:"id"`
	Title      string `json:"title"`
	Heading    string `json:"heading"`
	Subtitle   string `json:"subtitle"`
	Link       string `json:"link"`
	ButtonText string `json:"button_text"`
	ImageFields
}

func (w bannerWire) normalize() Banner {
	return Banner{
		ID:         w.ID,
		Title:      firstString(w.Title, w.Heading),
		Subtitle:   w.Subtitle,
		Image:      PrimaryImage(w.ImageFields),
		Link:       w.Link,
		ButtonText: w.ButtonText,
	}
}

type collectionWire struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
	ImageFields
}

func (w collectionWire) normalize() Collection {
	return Collection{ID: w.ID, Name: firstString(w.Name, w.Title), Slug: w.Slug, Image: PrimaryImage(w.ImageFields)}
}

type productWire struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CollectionID ID     `json:"collection_id"`
	PriceFields
	ImageFields
}

func (w productWire) normalize() Product {
	return Product{
		ID:            w.ID,
		Name:          firstString(w.Name, w.Title),
		Description:   w.Description,
		CollectionID:  w.CollectionID,
		Image:         PrimaryImage(w.ImageFields),
		Images:        AllImages(w.ImageFields),
		SellingPrice:  SellingPrice(w.PriceFields),
		OriginalPrice: OriginalPrice(w.PriceFields),
	}
}

type reelWire struct {
	ID        ID     `json:"id"`
	Title     string `json:"title"`
	Video     string `json:"video"`
	VideoURL  string `json:"video_url"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	ProductID ID     `json:"product_id"`
	ImageFields
}

func (w reelWire) normalize() Reel {
	return Reel{
		ID:        w.ID,
		Title:     w.Title,
		VideoURL:  firstString(w.Video, w.VideoURL, w.URL),
		Thumbnail: firstString(w.Thumbnail, PrimaryImage(w.ImageFields)),
		ProductID: w.ProductID,
	}
}

type cartLineWire struct {
	ID        ID           `json:"id"`
	ProductID ID           `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  *Number      `json:"quantity"`
	Qty       *Number      `json:"qty"`
	Product   *productWire `json:"product"`
	PriceFields
	ImageFields
}

func (w cartLineWire) normalize() CartLine {
	line := CartLine{
		ID:            w.ID,
		ProductID:     w.ProductID,
		Name:          w.Name,
		Image:         PrimaryImage(w.ImageFields),
		UnitPrice:     SellingPrice(w.PriceFields),
		OriginalPrice: OriginalPrice(w.PriceFields),
		Quantity:      1,
	}
	// lines may embed the product instead of flattening it
	if w.Product != nil {
		p := w.Product.normalize()
		line.ProductID = ID(firstString(string(line.ProductID), string(p.ID)))
		line.Name = firstString(line.Name, p.Name)
		line.Image = firstString(line.Image, p.Image)
		if line.UnitPrice == 0 {
			line.UnitPrice = p.SellingPrice
		}
		if line.OriginalPrice == 0 {
			line.OriginalPrice = p.OriginalPrice
		}
	}
	if q, ok := w.quantity(); ok {
		line.Quantity = q
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	return line
}

// quantity resolves quantity, then qty. ok is false when neither is present.
func (w cartLineWire) quantity() (int, bool) {
	switch {
	case w.Quantity != nil:
		return int(math.Round(float64(*w.Quantity))), true
	case w.Qty != nil:
		return int(math.Round(float64(*w.Qty))), true
	}
	return 0, false
}

func DecodeHeadlines(raw json.RawMessage) ([]Headline, error) {
	return decodeList(raw, headlineWire.normalize)
}

func DecodeBanners(raw json.RawMessage) ([]Banner, error) {
	return decodeList(raw, bannerWire.normalize)
}

func DecodeCollections(raw json.RawMessage) ([]Collection, error) {
	return decodeList(raw, collectionWire.normalize)
}

func DecodeProducts(raw json.RawMessage) ([]Product, error) {
	return decodeList(raw, productWire.normalize)
}

func DecodeReels(raw json.RawMessage) ([]Reel, error) {
	return decodeList(raw, reelWire.normalize)
}

func DecodeCartLines(raw json.RawMessage) ([]CartLine, error) {
	return decodeList(raw, cartLineWire.normalize)
}

// CartEcho is what a cart mutation answered with.
type CartEcho struct {
	// Line is the echoed line, nil when the answer carried none.
	Line *CartLine
	// QuantityKnown reports whether Line carried a quantity of its own.
	// Without one, Line.Quantity is the normalized default and must not be trusted.
	QuantityKnown bool
	// Listing is set when the answer was an array, such as the whole cart.
	Listing bool
}

// DecodeCartEcho decodes the payload of a cart mutation.
func DecodeCartEcho(raw json.RawMessage) (CartEcho, error) {
	raw = bytes.TrimSpace(raw)
	if isEmpty(raw) {
		return CartEcho{}, nil
	}
	if raw[0] == '[' {
		return CartEcho{Listing: true}, nil
	}
	var w cartLineWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return CartEcho{}, fmt.Errorf("%w: cart line: %v", storeerrors.ErrDecodePayload, err)
	}
	if w.ID == "" {
		return CartEcho{}, nil
	}
	line := w.normalize()
	_, known := w.quantity()
	return CartEcho{Line: &line, QuantityKnown: known}, nil
}

// decodeList decodes a data array in server order. A missing or null array is an empty list.
func decodeList[W any, T any](raw json.RawMessage, normalize func(W) T) ([]T, error) {
	if isEmpty(raw) {
		return []T{}, nil
	}
	var wires []W
	if err := json.Unmarshal(raw, &wires); err != nil {
		return nil, fmt.Errorf("%w: %v", storeerrors.ErrDecodePayload, err)
	}
	out := make([]T, 0, len(wires))
	for _, w := range wires {
		out = append(out, normalize(w))
	}
	return out, nil
}

func isEmpty(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "null" || s == "{}"
}
