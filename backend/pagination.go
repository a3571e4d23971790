package backend

// PaginatedList is one page of a backend API collection.
type PaginatedList[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
}

// UpdatePaginatedList returns a copy of list in which the item whose id
// matches updated is replaced by updated. The input list is left untouched;
// when no item matches, the copy equals the input.
func UpdatePaginatedList[T any](list PaginatedList[T], updated T, id func(T) string) PaginatedList[T] {
	target := id(updated)
	data := make([]T, len(list.Data))
	for i, item := range list.Data {
		if id(item) == target {
			data[i] = updated
			continue
		}
		data[i] = item
	}
	return PaginatedList[T]{Data: data, TotalCount: list.TotalCount}
}
