package api

import (
	"github.com/starford/ansuz/internal/authors"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/postservice"
)

// PostRequest is the front matter payload for creating or updating a post.
// Tags is a single space-separated entry, the way they are typed into the
// form; Date is optional on create (defaults to now) and on update (keeps
// the stored date).
type PostRequest struct {
	Title        string `json:"title" example:"Hello World" validate:"required"`
	Date         string `json:"date" example:"2024-3-2 09:00:00 +0800"`
	MainCategory string `json:"main_category" example:"Development"`
	SubCategory  string `json:"sub_category" example:"Go"`
	Tags         string `json:"tags" example:"go jekyll"`
	Author       string `json:"author" example:"jdoe"`
	Description  string `json:"description" example:"A short summary."`
}

// PostDetail is the full post response type (aliased from the domain layer).
type PostDetail = postservice.PostDetail

// PostListItem is a lightweight item in a list response (aliased from the domain layer).
type PostListItem = postservice.PostListItem

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []PostListItem `json:"posts" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// AuthorsResponse wraps the ordered author list.
type AuthorsResponse struct {
	Authors []authors.Author `json:"authors" validate:"required"`
}

// KeywordsRequest is the request body for keyword suggestion.
type KeywordsRequest struct {
	Body string `json:"body" example:"Post body text..." validate:"required"`
	Max  int    `json:"max" example:"5"`
}

// KeywordsResponse wraps suggested keywords.
type KeywordsResponse struct {
	Keywords []string `json:"keywords" validate:"required"`
}

// EditorOpenRequest asks the server to open a post in the external editor.
type EditorOpenRequest struct {
	Path string `json:"path" example:"_posts/2024-01-15-hello.md" validate:"required"`
}

// AssetUploadResponse is returned after a successful asset upload.
type AssetUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/assets/img/image.png" validate:"required"`
}
