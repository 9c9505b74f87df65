package vouchers

import "fmt"

// PageSize is the fixed number of vouchers shown per page.
const PageSize = 5

// windowWidth is how many page numbers the paginator offers at once.
const windowWidth = 5

// TotalPages is ceil(total / size). Zero items means zero pages.
func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// PageBounds returns the half-open item range [start, end) of page within
// total items. Pages past the end yield an empty range at total.
func PageBounds(page, size, total int) (start, end int) {
	if page < 1 || size <= 0 || total <= 0 {
		return 0, 0
	}
	start = min((page-1)*size, total)
	end = min(start+size, total)
	return start, end
}

// Slice returns the page window of items.
func Slice[T any](items []T, page, size int) []T {
	start, end := PageBounds(page, size, len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// PageNumbers lists the page numbers offered to the user: up to five,
// starting two before the current page.
func PageNumbers(page, totalPages int) []int {
	if totalPages <= 0 {
		return nil
	}
	start := max(1, page-2)
	end := min(totalPages, start+windowWidth-1)
	nums := make([]int, 0, windowWidth)
	for i := start; i <= end; i++ {
		nums = append(nums, i)
	}
	return nums
}

// PaginatorVisible reports whether pagination controls are shown at all.
func PaginatorVisible(total, size int) bool {
	return total > size
}

// PageInfo renders "Showing X-Y of N vouchers". A page with nothing on it
// (an empty list, or a page past the end) shows 0-0.
func PageInfo(page, size, total int) string {
	first := (page-1)*size + 1
	last := min(page*size, total)
	if first > last {
		first, last = 0, 0
	}
	return fmt.Sprintf("Showing %d-%d of %d vouchers", first, last, total)
}
