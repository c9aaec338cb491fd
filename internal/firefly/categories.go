package firefly

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type categoryResource struct {
	ID         string `json:"id"`
	Attributes struct {
		Name string `json:"name"`
	} `json:"attributes"`
}

// ListCategories returns one page of categories.
func (c *Client) ListCategories(ctx context.Context, page int) (Page[Category], error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	var resp struct {
		Data []categoryResource `json:"data"`
		Meta struct {
			Pagination Pagination `json:"pagination"`
		} `json:"meta"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", query, nil, &resp); err != nil {
		return Page[Category]{}, err
	}

	out := Page[Category]{Pagination: resp.Meta.Pagination}
	out.Items = make([]Category, 0, len(resp.Data))
	for _, res := range resp.Data {
		out.Items = append(out.Items, Category{ID: res.ID, Name: res.Attributes.Name})
	}
	return out, nil
}

// CreateCategory creates a category with the given name.
func (c *Client) CreateCategory(ctx context.Context, name string) (Category, error) {
	body := map[string]string{"name": name}
	var resp struct {
		Data categoryResource `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/categories", nil, body, &resp); err != nil {
		return Category{}, err
	}
	return Category{ID: resp.Data.ID, Name: resp.Data.Attributes.Name}, nil
}

// UpdateCategory renames an existing category.
func (c *Client) UpdateCategory(ctx context.Context, id, name string) (Category, error) {
	body := map[string]string{"name": name}
	var resp struct {
		Data categoryResource `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, "/categories/"+id, nil, body, &resp); err != nil {
		return Category{}, err
	}
	return Category{ID: resp.Data.ID, Name: resp.Data.Attributes.Name}, nil
}

// DeleteCategory removes a category. Transactions in it stay, uncategorized.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+id, nil, nil, nil)
}
