package listquery

import "net/url"

// None is the filter shape of lists without filters.
type None struct{}

func (None) Values() url.Values { return url.Values{} }

// PriceRange filters the article catalog.
type PriceRange struct {
	MinPrice string
	MaxPrice string
}

func (p PriceRange) Values() url.Values {
	return pairs("minPrice", p.MinPrice, "maxPrice", p.MaxPrice)
}

// CardFilters filters flashcards.
type CardFilters struct {
	Category   string
	Difficulty string
}

func (f CardFilters) Values() url.Values {
	return pairs("category", f.Category, "difficulty", f.Difficulty)
}

// OrderFilters filters the user's and the admin's order lists.
// CustomerName is only honoured by the admin endpoint.
type OrderFilters struct {
	CustomerName string
	StartDate    string
	EndDate      string
	OrderID      string
}

func (f OrderFilters) Values() url.Values {
	return pairs("customerName", f.CustomerName, "startDate", f.StartDate, "endDate", f.EndDate, "orderId", f.OrderID)
}

func pairs(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			v.Set(kv[i], kv[i+1])
		}
	}
	return v
}
