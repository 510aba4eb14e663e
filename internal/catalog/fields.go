// Package catalog holds the entity types the storefront receives from the backend
// and the normalization rules for their loosely-typed wire shapes.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an entity identifier. The backend sends numbers or strings; both decode to the same text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Number is a JSON number that may also arrive as a numeric string.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// PriceFields are every price spelling the backend has been seen to use.
type PriceFields struct {
	SellingPrice   *Number `json:"selling_price"`
	Price          *Number `json:"price"`
	SalePrice      *Number `json:"salePrice"`
	OrigionalPrice *Number `json:"origional_price"`
	OriginalPrice  *Number `json:"original_price"`
	RegularPrice   *Number `json:"regularPrice"`
}

// SellingPrice resolves the price a shopper pays.
// Precedence: selling_price, price, salePrice, then 0.
func SellingPrice(p PriceFields) float64 {
	return firstNumber(p.SellingPrice, p.Price, p.SalePrice)
}

// OriginalPrice resolves the pre-discount price.
// Precedence: origional_price (the backend's spelling), original_price, regularPrice, then 0.
func OriginalPrice(p PriceFields) float64 {
	return firstNumber(p.OrigionalPrice, p.OriginalPrice, p.RegularPrice)
}

func firstNumber(candidates ...*Number) float64 {
	for _, c := range candidates {
		if c != nil {
			return float64(*c)
		}
	}
	return 0
}

// ImageFields are every image spelling the backend has been seen to use.
type ImageFields struct {
	Images   []string `json:"images"`
	Image    string   `json:"image"`
	ImageURL string   `json:"image_url"`
}

// PrimaryImage resolves the image shown for an entity.
// Precedence: first non-empty images entry, image, image_url, then "".
func PrimaryImage(i ImageFields) string {
	for _, img := range i.Images {
		if img != "" {
			return img
		}
	}
	return firstString(i.Image, i.ImageURL)
}

// AllImages returns every distinct image reference, primary first.
func AllImages(i ImageFields) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(i.Images)+2)
	for _, img := range append(append([]string{}, i.Images...), i.Image, i.ImageURL) {
		if img == "" {
			continue
		}
		if _, ok := seen[img]; ok {
			continue
		}
		seen[img] = struct{}{}
		out = append(out, img)
	}
	return out
}

func firstString(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
