package types

import (
	"net/http"
	"net/url"

	"github.com/gorilla/schema"
)

// AllowedRequest narrows an allowed-set query to one domain or dimension.
// Both empty means every dimension.
type AllowedRequest struct {
	Domain    string `schema:"domain"`
	Dimension string `schema:"dimension"`
}

// ListRequest pages through saved campaigns.
type ListRequest struct {
	Limit  int `schema:"limit,default:50"`
	Offset int `schema:"offset"`
}

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (l *ListRequest) Sanitize() {
	l.Limit = clamp(l.Limit, 1, 500)
	l.Offset = clamp(l.Offset, 0, 1<<20)
}

// Dimensions resolves the request to the dimensions it covers.
func (a *AllowedRequest) Dimensions() ([]Dimension, error) {
	if a.Dimension != "" {
		d, err := ParseDimension(a.Dimension)
		if err != nil {
			return nil, err
		}
		return []Dimension{d}, nil
	}
	if a.Domain != "" {
		d, err := ParseDomain(a.Domain)
		if err != nil {
			return nil, err
		}
		return d.Dimensions(), nil
	}
	return AllDimensions, nil
}

func decodeQuery(query url.Values, out any) error {
	return decoder.Decode(out, query)
}

func GetAllowedRequest(r *http.Request) (*AllowedRequest, error) {
	ar := &AllowedRequest{}
	err := decodeQuery(r.URL.Query(), ar)
	return ar, err
}

func GetListRequest(r *http.Request) (*ListRequest, error) {
	lr := &ListRequest{Limit: 50}
	err := decodeQuery(r.URL.Query(), lr)
	lr.Sanitize()
	return lr, err
}
