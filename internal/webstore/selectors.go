// Package webstore implements the store-specific extractor (C2): one
// Selectors table per store plus a single Runner that crawls any store
// described by a table. Stores differ only in data — selector strings, the
// pagination query parameter, and whether they expose a JSON variant
// payload — never in algorithm, per spec's "variants, not subclasses"
// guidance.
package webstore

// Selectors is the data-driven description of a single web store: the CSS
// selectors needed to discover categories, pagination, product links and
// product detail fields, plus the pagination query parameter name and an
// optional JSON variant payload attribute.
type Selectors struct {
	// Name is the crawler selector string (e.g. "rusteaco").
	Name string

	BaseURL string

	CategoryLinkSelector string

	PaginationContainerSelector string
	PaginationLinkSelector      string
	// PaginationParam is the query-parameter name the store uses for page
	// numbers ("page" or "PAGEN_1").
	PaginationParam string

	ProductLinkSelector string

	NameSelector        string
	DescriptionSelector string
	BreadcrumbSelector  string
	SKUSelector         string
	PriceSelector       string

	// UnitsSelector/AmountSelector are used when amount and units are
	// rendered by separate elements (101tea). Leave empty when
	// AmountUnitsSelector combines them in one element (gutenberg).
	UnitsSelector  string
	AmountSelector string

	// AmountUnitsSelector selects a single element whose text is a combined
	// "<amount> <units>" free-text string, parsed by domain.ParseAmountUnits.
	AmountUnitsSelector string

	// VariantJSONAttr, when non-empty, names an attribute on
	// VariantFormSelector whose HTML-entity-decoded value is a JSON payload
	// describing one or more SKU variants (rusteaco).
	VariantFormSelector string
	VariantJSONAttr     string
}

// Rusteaco is the selector table for shop.rusteaco.ru, grounded on
// original_source's crawlers/rusteaco.rs. Products are described by a
// data-product-json payload on the product form; each JSON variant becomes
// its own Product record sharing the page's name/category/description.
var Rusteaco = Selectors{
	Name:                        "rusteaco",
	BaseURL:                     "https://shop.rusteaco.ru/",
	CategoryLinkSelector:        "a.header__collections-link",
	PaginationContainerSelector: "div.pagination-items",
	PaginationLinkSelector:      "a.pagination-link",
	PaginationParam:             "page",
	ProductLinkSelector:         "div.product-preview__title > a",
	NameSelector:                "h1.product__title",
	DescriptionSelector:         "div.product__short-description",
	BreadcrumbSelector:          "ul.breadcrumb li a",
	SKUSelector:                 "span.sku-value",
	VariantFormSelector:         "form.product",
	VariantJSONAttr:             "data-product-json",
}

// Tea101 is the selector table for 101tea.ru, grounded on
// original_source's crawlers/tea101.rs. Amount and units are rendered by
// distinct elements rather than a combined free-text string.
var Tea101 = Selectors{
	Name:                        "101tea",
	BaseURL:                     "https://101tea.ru/",
	CategoryLinkSelector:        "a.catalog-nav__link",
	PaginationContainerSelector: "div.pagination",
	PaginationLinkSelector:      "a.pagination-links",
	PaginationParam:             "PAGEN_1",
	ProductLinkSelector:         "div.product-card__info-bottom > a",
	NameSelector:                "h1",
	DescriptionSelector:         "div.catalog-table_content-item_about_product",
	BreadcrumbSelector:          "a.breadcrumbs__list-link",
	SKUSelector:                 "div.product_art span:nth-child(2)",
	PriceSelector:               "span.js-price-val",
	UnitsSelector:               "span.product-card__calculus-unit",
	AmountSelector:              "span.js-product-calc-value",
}

// Gutenberg is the selector table for gutenberg.ru, grounded on
// original_source's crawlers/gutenberg.rs. Amount and units are rendered as
// a single combined element, e.g. "/100 г".
var Gutenberg = Selectors{
	Name:                        "gutenberg",
	BaseURL:                     "https://gutenberg.ru/",
	CategoryLinkSelector:        "ul.menu-type-1 li a",
	PaginationContainerSelector: "div.module-pagination",
	PaginationLinkSelector:      "div.nums > a",
	PaginationParam:             "page",
	ProductLinkSelector:         "div.item-title > a",
	NameSelector:                "h1#pagetitle",
	DescriptionSelector:         "div[itemprop='description']",
	BreadcrumbSelector:          "a.breadcrumbs__link",
	SKUSelector:                 "span.article__value",
	PriceSelector:               "span.price_value",
	AmountUnitsSelector:         "span.price_measure",
}

// Tables maps a crawler's selector string to its Selectors table. At
// dispatch time an unknown name is logged and the envelope is dropped.
var Tables = map[string]Selectors{
	Rusteaco.Name:  Rusteaco,
	Tea101.Name:    Tea101,
	Gutenberg.Name: Gutenberg,
}
