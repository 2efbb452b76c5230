package views

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/lectio/admin-console/pkg/models"
)

const (
	SortTitle     = "title"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

var materialTypes = []string{models.MaterialBook, models.MaterialPolycopie, models.MaterialPDF, models.MaterialHandout}

type MaterialFilter struct {
	Type string
	// Query matches the title or the description.
	Query string
	Sort  string
}

func ParseMaterialFilter(q url.Values) (MaterialFilter, error) {
	f := MaterialFilter{Query: strings.TrimSpace(q.Get("q")), Sort: q.Get("sort")}

	if t := q.Get("type"); t != "" && t != "all" {
		if !slices.Contains(materialTypes, t) {
			return MaterialFilter{}, fmt.Errorf("unknown material type %q", t)
		}
		f.Type = t
	}
	switch f.Sort {
	case "":
		f.Sort = SortTitle
	case SortTitle, SortPriceAsc, SortPriceDesc, SortDateAsc, SortDateDesc:
	default:
		return MaterialFilter{}, fmt.Errorf("unknown sort %q", f.Sort)
	}
	return f, nil
}

func (f MaterialFilter) match(m models.Material) bool {
	if f.Type != "" && m.MaterialType != f.Type {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return contains(m.Title, q) || contains(m.Description, q)
}

type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type MaterialsView struct {
	Rows    []models.Material `json:"rows"`
	ByType  []Bucket          `json:"by_type"`
	ByPrice []Bucket          `json:"by_price"`
	Total   int               `json:"total"`
}

// price bands shown next to the catalogue, upper bounds exclusive
var priceBands = []struct {
	name  string
	upper float64
}{
	{"< 1500 DZD", 1500},
	{"1500-2500 DZD", 2500},
	{"2500-3500 DZD", 3500},
	{"> 3500 DZD", 0},
}

func BuildMaterials(materials []models.Material, f MaterialFilter) MaterialsView {
	v := MaterialsView{Rows: []models.Material{}}
	for _, m := range materials {
		if f.match(m) {
			v.Rows = append(v.Rows, m)
		}
	}
	sortMaterials(v.Rows, f.Sort)

	v.ByType = make([]Bucket, len(materialTypes))
	for i, t := range materialTypes {
		v.ByType[i].Name = t
	}
	v.ByPrice = make([]Bucket, len(priceBands))
	for i, b := range priceBands {
		v.ByPrice[i].Name = b.name
	}
	for _, m := range v.Rows {
		if i := slices.Index(materialTypes, m.MaterialType); i >= 0 {
			v.ByType[i].Count++
		}
		v.ByPrice[priceBand(m.PriceDZD)].Count++
	}
	v.Total = len(v.Rows)
	return v
}

func priceBand(price float64) int {
	for i, b := range priceBands[:len(priceBands)-1] {
		if price < b.upper {
			return i
		}
	}
	return len(priceBands) - 1
}

func sortMaterials(rows []models.Material, by string) {
	byDate := func(a, b models.Material) int { return a.CreatedAt.Compare(b.CreatedAt.Time) }
	var cmpFn func(a, b models.Material) int
	switch by {
	case SortPriceAsc:
		cmpFn = func(a, b models.Material) int { return cmp.Compare(a.PriceDZD, b.PriceDZD) }
	case SortPriceDesc:
		cmpFn = func(a, b models.Material) int { return cmp.Compare(b.PriceDZD, a.PriceDZD) }
	case SortDateAsc:
		cmpFn = byDate
	case SortDateDesc:
		cmpFn = func(a, b models.Material) int { return -byDate(a, b) }
	default:
		cmpFn = func(a, b models.Material) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	}
	slices.SortStableFunc(rows, cmpFn)
}
