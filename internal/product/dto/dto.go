package dto

type ProductFilters struct {
	Category    string `json:"category"`
	SearchQuery string `json:"search"` // matched against product_name
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
}
