package models

// Category категория товаров; slug уникален и используется в фильтрах.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type CategoryPatch struct {
	Name *string
	Slug *string
}
