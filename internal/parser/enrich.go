package parser

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Field names written by the enrichment parsers.
const (
	FieldManufacturer     = "manufacturer"
	FieldPacker           = "packer"
	FieldBrandSize        = "Brand Size"
	FieldMeasurementImage = "measurement_image"
)

// ParseCustomerVoice returns one field per customer-voice entry, named by
// the entry's text.
func ParseCustomerVoice(body []byte) (model.Fields, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return model.Fields{}, fmt.Errorf("customer voice: %w", err)
	}
	f := model.NewFields(8)
	for _, v := range doc.list("customerVoiceData") {
		f.Set(v.str("text"), v.str("value"))
	}
	return f, nil
}

// ParseManufacturing returns the manufacturer and packer fields.
func ParseManufacturing(body []byte) (model.Fields, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return model.Fields{}, fmt.Errorf("manufacturing details: %w", err)
	}
	f := model.NewFields(2)
	if m := doc.list("manufacturer"); len(m) > 0 {
		f.Set(FieldManufacturer, m[0].str("value"))
	}
	if p := doc.list("packer"); len(p) > 0 {
		f.Set(FieldPacker, p[0].str("value"))
	}
	return f, nil
}

// sizeUnit holds one unit's measurements in first-appearance order.
type sizeUnit struct {
	name   string
	dims   []string
	values map[string][]string
}

// ParseSizeGuide flattens a size-guide chart into fields.
//
// "Brand Size" lists the sizes. Each dimension becomes one column holding
// the values for every size. When a dimension has identical values in
// every unit the column is just the dimension name. Otherwise there is one
// column per unit, such as "Chest ( Cm )" and "Chest ( Inches )".
func ParseSizeGuide(body []byte) (model.Fields, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return model.Fields{}, fmt.Errorf("size guide: %w", err)
	}

	var (
		units []*sizeUnit
		sizes []string
		seen  = make(map[string]bool)
		dims  []string
		known = make(map[string]bool)
	)
	for _, u := range doc.obj("sizeGuideTabularWsData").list("unitList") {
		unit := &sizeUnit{name: u.str("displaytext"), values: make(map[string][]string)}
		for _, s := range u.list("sizeGuideList") {
			if size := s.str("dimensionSize"); size != "" && !seen[size] {
				seen[size] = true
				sizes = append(sizes, size)
			}
			for _, d := range s.list("dimensionList") {
				dim := d.str("dimension")
				if dim == "" {
					continue
				}
				if _, ok := unit.values[dim]; !ok {
					unit.dims = append(unit.dims, dim)
				}
				unit.values[dim] = append(unit.values[dim], d.str("dimensionValue"))
				if !known[dim] {
					known[dim] = true
					dims = append(dims, dim)
				}
			}
		}
		units = append(units, unit)
	}

	f := model.NewFields(len(dims)*2 + 2)
	if len(sizes) > 0 {
		f.Set(FieldBrandSize, strings.Join(sizes, ", "))
	}
	for _, dim := range dims {
		if vals, ok := sameInAllUnits(units, dim); ok {
			f.Set(dim, strings.Join(vals, ", "))
			continue
		}
		for _, u := range units {
			if vals := u.values[dim]; len(vals) > 0 {
				f.Set(SizeHeader(dim, u.name), strings.Join(vals, ", "))
			}
		}
	}
	if img := doc.str("imageURL"); img != "" {
		f.Set(FieldMeasurementImage, img)
	}
	return f, nil
}

// sameInAllUnits returns the values of dim when there are at least two
// units and all of them carry identical values for it.
func sameInAllUnits(units []*sizeUnit, dim string) ([]string, bool) {
	if len(units) < 2 {
		return nil, false
	}
	first, ok := units[0].values[dim]
	if !ok {
		return nil, false
	}
	for _, u := range units[1:] {
		other, ok := u.values[dim]
		if !ok || !equalStrings(first, other) {
			return nil, false
		}
	}
	return first, true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SizeHeader formats a dimension column header for a unit.
// "in" is spelled "Inches". Other units are title-cased. An empty unit
// yields the bare dimension.
func SizeHeader(dim, unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return dim
	}
	switch strings.ToLower(unit) {
	case "in", "inch", "inches":
		unit = "Inches"
	default:
		unit = cases.Title(language.English).String(strings.ToLower(unit))
	}
	return dim + " ( " + unit + " )"
}
