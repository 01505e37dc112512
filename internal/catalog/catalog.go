package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/san-kum/tilewall/internal/grid"
)

const (
	DefaultTemplate = "https://ocardu.me/wp-content/uploads/GRID/SMALL/tile%d.jpg"
	DefaultTotal    = 216
)

// Ref locates a fetchable image: an http(s) URL, a file:// URL or a path.
type Ref string

func (r Ref) Remote() bool {
	s := strings.ToLower(string(r))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Path returns the local filesystem path of a non-remote ref.
func (r Ref) Path() string {
	s := string(r)
	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil {
			return u.Path
		}
		return strings.TrimPrefix(s, "file://")
	}
	return s
}

func (r Ref) String() string { return string(r) }

// Catalog enumerates the available images.
type Catalog interface {
	Resolve(id grid.ImageID) Ref
	Total() int
}

// Template resolves ids by formatting them into a URL or path pattern.
type Template struct {
	pattern string
	total   int
}

// NewTemplate builds a catalog of total images. The pattern must contain a
// single integer verb such as %d or %03d.
func NewTemplate(pattern string, total int) (*Template, error) {
	if total <= 0 {
		return nil, fmt.Errorf("catalog: total must be positive, got %d", total)
	}
	if strings.Contains(fmt.Sprintf(pattern, 0), "%!") {
		return nil, fmt.Errorf("catalog: pattern %q needs exactly one integer verb", pattern)
	}
	return &Template{pattern: pattern, total: total}, nil
}

func (t *Template) Resolve(id grid.ImageID) Ref {
	return Ref(fmt.Sprintf(t.pattern, int(id)))
}

func (t *Template) Total() int { return t.total }

// Refs lists every ref in id order.
func Refs(c Catalog) []Ref {
	out := make([]Ref, c.Total())
	for i := range out {
		out[i] = c.Resolve(grid.ImageID(i))
	}
	return out
}
