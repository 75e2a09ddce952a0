package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/noah-isme/academy-portal/internal/models"
	"github.com/noah-isme/academy-portal/pkg/upstream"
)

// Backend is the subset of the upstream client the repositories use.
type Backend interface {
	Get(ctx context.Context, route, path string, query url.Values, out interface{}) error
	PostJSON(ctx context.Context, route, path string, body, out interface{}) error
	PatchJSON(ctx context.Context, route, path string, body, out interface{}) error
	Delete(ctx context.Context, route, path string) error
	SendMultipart(ctx context.Context, method, route, path string, form upstream.Multipart, out interface{}) error
}

// The academy backend is not consistent about envelopes. Seen so far:
//
//	{"data": {"data": [...], "pagination": {...}}}   courses
//	{"teachers": [...], "pagination": {...}}          teachers
//	{"data": [...]}                                   levels, subjects
//
// decodePage and decodeItem accept all of them.
func decodePage[T any](raw json.RawMessage, key string) (models.Page[T], error) {
	var page models.Page[T]
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		page.Items = []T{}
		return page, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return page, fmt.Errorf("decode %s list: %w", key, err)
		}
		return finishPage(page), nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return page, fmt.Errorf("decode %s envelope: %w", key, err)
	}

	if p, ok := top["pagination"]; ok {
		if err := json.Unmarshal(p, &page.Pagination); err != nil {
			return page, fmt.Errorf("decode %s pagination: %w", key, err)
		}
	}

	body, ok := top[key]
	if !ok {
		body, ok = top["data"]
	}
	if !ok {
		page.Items = []T{}
		return finishPage(page), nil
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		nested, err := decodePage[T](body, key)
		if err != nil {
			return page, err
		}
		if page.Pagination.TotalCount == 0 && page.Pagination.TotalPages == 0 {
			return nested, nil
		}
		nested.Pagination = page.Pagination
		return finishPage(nested), nil
	}

	if err := json.Unmarshal(body, &page.Items); err != nil {
		return page, fmt.Errorf("decode %s items: %w", key, err)
	}
	return finishPage(page), nil
}

func finishPage[T any](page models.Page[T]) models.Page[T] {
	if page.Items == nil {
		page.Items = []T{}
	}
	if page.Pagination.TotalCount == 0 && len(page.Items) > 0 && page.Pagination.TotalPages == 0 {
		page.Pagination.TotalCount = len(page.Items)
	}
	if page.Pagination.TotalPages < 1 {
		page.Pagination.TotalPages = 1
	}
	if page.Pagination.CurrentPage < 1 {
		page.Pagination.CurrentPage = 1
	}
	return page
}

func decodeItem[T any](raw json.RawMessage, key string) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	for _, k := range []string{key, "data"} {
		if body, ok := top[k]; ok && len(bytes.TrimSpace(body)) > 0 && bytes.TrimSpace(body)[0] == '{' {
			return decodeItem[T](body, key)
		}
	}

	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &item, nil
}

func itemPath(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}
