package domain

// Page enumerates the views of the storefront. The zero value is not a page.
type Page int

const (
	PageHome Page = iota + 1
	PageProducts
	PageBlog
	PageAbout
	PageContact
	PageReviews
	PageAdmin
	PageAdminDashboard
)

// Pages lists every page in navigation order.
var Pages = []Page{
	PageHome,
	PageProducts,
	PageBlog,
	PageAbout,
	PageContact,
	PageReviews,
	PageAdmin,
	PageAdminDashboard,
}

// String returns the page name used by the single-page dispatch route.
func (p Page) String() string {
	switch p {
	case PageHome:
		return "home"
	case PageProducts:
		return "products"
	case PageBlog:
		return "blog"
	case PageAbout:
		return "about"
	case PageContact:
		return "contact"
	case PageReviews:
		return "reviews"
	case PageAdmin:
		return "admin"
	case PageAdminDashboard:
		return "admin-dashboard"
	}
	return ""
}

// Path returns the path-based route of the page.
func (p Page) Path() string {
	switch p {
	case PageHome:
		return "/"
	case PageProducts:
		return "/products"
	case PageBlog:
		return "/blog"
	case PageAbout:
		return "/about"
	case PageContact:
		return "/contact"
	case PageReviews:
		return "/reviews"
	case PageAdmin:
		return "/admin"
	case PageAdminDashboard:
		return "/admin/dashboard"
	}
	return ""
}

// ParsePage resolves a page name. Unknown names report false rather than
// falling back to the home page.
func ParsePage(name string) (Page, bool) {
	for _, p := range Pages {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}
