// Package domain validates and normalises raw, store-specific scrape
// results into core.Product records, rejecting malformed ones at the
// boundary (C3).
package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pushkindt/pushkind-crawlers/internal/apperr"
	"github.com/pushkindt/pushkind-crawlers/internal/core"
)

// defaultUnits is returned by ParseAmountUnits when no unit text is present.
const defaultUnits = "шт"

// amountUnitsRe matches a leading numeric amount (comma or dot decimal)
// followed by an optional alphabetic/percent unit suffix, per spec §4.3.
var amountUnitsRe = regexp.MustCompile(`(?i)^\s*([0-9]+(?:[.,][0-9]+)?)([\p{L}%]*)\s*$`)

// RawProduct is the unvalidated string-field record a store-specific
// extractor (C2) produces from a document; BuildProduct turns it into a
// core.Product or rejects it.
type RawProduct struct {
	SKU          string
	Name         string
	Price        string
	Category     string
	Units        string
	Amount       string
	AmountUnits  string // combined "<amount> <units>" free-text form, e.g. "/100 г"
	Description  string
	URL          string
	ImageURLs    []string
}

// BuildProduct validates and normalises raw into a core.Product owned by
// crawlerID. It returns a *apperr.ValidationError (never nil alongside a nil
// product) when any field-level validator fails.
func BuildProduct(crawlerID int, raw RawProduct) (*core.Product, error) {
	sku := strings.TrimSpace(raw.SKU)
	name := strings.TrimSpace(raw.Name)
	url := strings.TrimSpace(raw.URL)

	if sku == "" {
		return nil, apperr.NewValidationError("sku", raw.SKU, fmt.Errorf("empty"))
	}
	if name == "" {
		return nil, apperr.NewValidationError("name", raw.Name, fmt.Errorf("empty"))
	}
	if url == "" {
		return nil, apperr.NewValidationError("url", raw.URL, fmt.Errorf("empty"))
	}

	price, err := parseLocaleFloat(raw.Price)
	if err != nil {
		return nil, apperr.NewValidationError("price", raw.Price, err)
	}
	if !isPositiveFinite(price) {
		return nil, apperr.NewValidationError("price", raw.Price, fmt.Errorf("must be a positive finite number"))
	}

	var amount float64
	var units string
	if raw.Amount != "" || raw.Units != "" {
		// Store already split amount/units (e.g. two distinct selectors).
		amount, err = parseLocaleFloat(raw.Amount)
		if err != nil {
			return nil, apperr.NewValidationError("amount", raw.Amount, err)
		}
		units = strings.TrimSpace(raw.Units)
		if units == "" {
			units = defaultUnits
		}
	} else {
		amount, units = ParseAmountUnits(raw.AmountUnits)
	}
	if !isPositiveFinite(amount) {
		return nil, apperr.NewValidationError("amount", raw.AmountUnits, fmt.Errorf("must be a positive finite number"))
	}

	images := make([]core.ProductImage, 0, len(raw.ImageURLs))
	for _, u := range raw.ImageURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		images = append(images, core.ProductImage{URL: u})
	}

	return &core.Product{
		CrawlerID:                crawlerID,
		SKU:                      sku,
		Name:                     name,
		Price:                    price,
		Category:                 strings.TrimSpace(raw.Category),
		Units:                    units,
		Amount:                   amount,
		Description:              strings.TrimSpace(raw.Description),
		URL:                      url,
		Images:                   images,
		CategoryAssignmentSource: core.CategoryAssignmentAutomatic,
	}, nil
}

// ParseAmountUnits extracts an (amount, units) pair from a short free-text
// string such as "/100 г" per the deterministic rule of spec §4.3:
//
//  1. Strip a leading '/' and whitespace.
//  2. Try the regex anchor: a numeric prefix (comma or dot decimal) plus an
//     alphabetic/percent tail. An empty tail yields the default unit "шт".
//  3. Otherwise split on whitespace: with >=2 tokens the second-to-last is
//     the amount and the last is the units; with exactly one token, try it
//     as the amount with default units; with zero tokens, default (1.0, "шт").
func ParseAmountUnits(s string) (float64, string) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimSpace(s)

	if m := amountUnitsRe.FindStringSubmatch(s); m != nil {
		amount, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err == nil {
			units := strings.TrimSpace(m[2])
			if units == "" {
				units = defaultUnits
			}
			return amount, units
		}
	}

	tokens := strings.Fields(s)
	switch len(tokens) {
	case 0:
		return 1.0, defaultUnits
	case 1:
		amount, err := parseLocaleFloat(tokens[0])
		if err != nil {
			return 1.0, defaultUnits
		}
		return amount, defaultUnits
	default:
		amountTok := tokens[len(tokens)-2]
		unitsTok := tokens[len(tokens)-1]
		amount, err := parseLocaleFloat(amountTok)
		if err != nil {
			return 1.0, defaultUnits
		}
		return amount, unitsTok
	}
}

// parseLocaleFloat parses a numeric string tolerant of comma decimals and
// embedded spaces (thousands separators), e.g. "1 234,5" -> 1234.5.
func parseLocaleFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric field")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}

func isPositiveFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
