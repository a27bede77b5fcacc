package usage

import "errors"

var (
	ErrUnknownKind      = errors.New("unknown usage kind")
	ErrCategoryRequired = errors.New("category id required for subcategory usage")
)
