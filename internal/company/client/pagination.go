package client

// DefaultPerPage is the page size used by the directory UI.
const DefaultPerPage = 12

// Window is one page of a result list: items [Start, End) on page Page of
// TotalPages.
type Window struct {
	Start      int
	End        int
	Page       int
	TotalPages int
}

// Paginate computes the window for page. The page is clamped into
// [1, TotalPages]; an empty list still has one (empty) page.
func Paginate(total, page, perPage int) Window {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if total < 0 {
		total = 0
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return Window{Start: start, End: end, Page: page, TotalPages: totalPages}
}

// PageOf returns the items on page together with its window.
func PageOf[T any](items []T, page, perPage int) ([]T, Window) {
	w := Paginate(len(items), page, perPage)
	return items[w.Start:w.End], w
}
