package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Core fields of the product-details document. They are always present in
// an ok record, empty when the document lacks them.
var coreKeys = []string{
	"productTitle",
	"brandName",
	"productColor",
	"productDescription",
	"styleNote",
	"productListingId",
	"rootCategory",
}

// Field names written by the details parser.
const (
	FieldMRP                = "MRP"
	FieldPrice              = "Price"
	FieldDiscount           = "Discount"
	FieldAvailability       = "availability"
	FieldAdditionalFeatures = "additional_features"
	FieldAverageRating      = "averageRating"
	FieldRatingCount        = "ratingCount"
	FieldNumberOfReviews    = "numberOfReviews"
)

// superZoomKey selects the largest gallery image.
const superZoomKey = "superZoom"

// Refs are the identifiers enrichment requests need.
type Refs struct {
	// ProductID is the upper-cased product ID.
	ProductID string

	// BrandCode is the brand code taken from brandURL after "c-".
	BrandCode string

	// CategoryID is the ID of the deepest breadcrumb category.
	CategoryID string

	// SizeGuideID identifies the size chart, empty when there is none.
	SizeGuideID string
}

// notFound reports whether a details document marks the product missing.
func (o object) notFound() (bool, string) {
	if strings.EqualFold(o.str("status"), "failure") {
		if msg := o.str("error"); msg != "" {
			return true, msg
		}
		return true, "status FAILURE"
	}
	if msg := o.str("error"); msg != "" && o.str("productTitle") == "" {
		return true, msg
	}
	return false, ""
}

// detailsFields extracts record fields from a product-details document.
func detailsFields(doc object) model.Fields {
	f := model.NewFields(64)

	for _, k := range coreKeys {
		f.Set(k, doc.str(k))
	}

	f.Set(FieldMRP, doc.obj("mrpPrice").str("value"))
	f.Set(FieldPrice, doc.obj("winningSellerPrice").str("value"))
	f.Set(FieldDiscount, doc.str("discount"))
	f.Set(FieldAvailability, availability(doc))

	for i, c := range doc.list("categoryHierarchy") {
		f.Set("Breadcrum_"+strconv.Itoa(i+1), c.str("category_name"))
	}

	n := 1
	for _, g := range doc.list("galleryImagesList") {
		for _, img := range g.list("galleryImages") {
			if img.str("key") != superZoomKey {
				continue
			}
			if v := img.str("value"); v != "" {
				f.Set("image_"+strconv.Itoa(n), absoluteImage(v))
				n++
			}
		}
	}

	setPairs(&f, doc.list("details"))
	for _, g := range doc.list("specificationGroup") {
		setPairs(&f, g.list("specifications"))
	}
	setPairs(&f, doc.list("detailsSection"))

	for _, sec := range doc.list("classificationList") {
		val := sec.obj("value")
		switch {
		case val.has("classificationList"):
			setPairs(&f, val.list("classificationList"))
		case val.has("classificationValues"):
			f.Set(sec.str("key"), strings.Join(val.texts("classificationValues"), ", "))
		}
	}

	for i, k := range doc.list("knowMore") {
		f.Set("Feature_"+strconv.Itoa(i+1), k.str("knowMoreItem"))
	}

	setPairs(&f, doc.obj("setInformation").list("values"))
	setPairs(&f, doc.list("whatElseYouNeedtoKnow"))

	for _, ing := range doc.list("ingredientDetails") {
		names := make([]string, 0)
		for _, v := range ing.list("values") {
			if s := v.str("key"); s != "" {
				names = append(names, s)
			}
		}
		f.Set(ing.str("key"), strings.Join(names, ", "))
	}
	setPairs(&f, doc.list("primaryIngredients"))

	if feats := additionalFeatures(doc.list("shortStorySmall")); feats != "" {
		f.Set(FieldAdditionalFeatures, feats)
	}

	f.Set(FieldAverageRating, doc.str("averageRating"))
	f.Set(FieldRatingCount, doc.str("ratingCount"))
	f.Set(FieldNumberOfReviews, doc.str("numberOfReviews"))

	n = 1
	for _, c := range doc.obj("APlusContent").list("productContent") {
		texts := c.obj("value").texts("textList")
		if len(texts) == 0 {
			continue
		}
		cleaned := make([]string, 0, len(texts))
		for _, t := range texts {
			if s := CleanHTML(t); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		f.Set("APlus_Content_"+strconv.Itoa(n), strings.Join(cleaned, " "))
		n++
	}

	return f
}

// detailsRefs extracts enrichment identifiers from a details document.
func detailsRefs(doc object, productID string) Refs {
	refs := Refs{
		ProductID:   productID,
		SizeGuideID: doc.str("sizeGuideId"),
	}
	if brandURL := doc.str("brandURL"); brandURL != "" {
		parts := strings.Split(brandURL, "c-")
		refs.BrandCode = strings.ToUpper(parts[len(parts)-1])
	}
	if cats := doc.list("categoryHierarchy"); len(cats) > 0 {
		refs.CategoryID = strings.ToUpper(cats[len(cats)-1].str("category_id"))
	}
	if refs.ProductID == "" {
		refs.ProductID = strings.ToUpper(doc.str("productListingId"))
	}
	return refs
}

// setPairs copies key/value objects into f.
func setPairs(f *model.Fields, pairs []object) {
	for _, p := range pairs {
		if k := p.str("key"); k != "" {
			f.Set(k, p.str("value"))
		}
	}
}

// additionalFeatures joins shortStorySmall keys ordered by their "order".
func additionalFeatures(items []object) string {
	type feat struct {
		order int
		key   string
	}
	feats := make([]feat, 0, len(items))
	for _, it := range items {
		order, _ := strconv.Atoi(it.str("order")) //nolint:errcheck // missing order sorts first
		feats = append(feats, feat{order: order, key: it.str("key")})
	}
	sort.SliceStable(feats, func(i, j int) bool { return feats[i].order < feats[j].order })

	keys := make([]string, 0, len(feats))
	for _, ft := range feats {
		if ft.key != "" {
			keys = append(keys, ft.key)
		}
	}
	return strings.Join(keys, ", ")
}

// availability derives a stock label from the winning seller's stock.
func availability(doc object) string {
	stock := doc.str("winningSellerAvailableStock")
	if stock == "" {
		return ""
	}
	n, err := strconv.ParseFloat(stock, 64)
	if err != nil {
		return stock
	}
	if n > 0 {
		return "in stock"
	}
	return "out of stock"
}

// absoluteImage turns a protocol-relative image URL into an https URL.
func absoluteImage(v string) string {
	switch {
	case strings.HasPrefix(v, "//"):
		return "https:" + v
	case strings.HasPrefix(v, "http://"), strings.HasPrefix(v, "https://"):
		return v
	default:
		return "https:" + v
	}
}
