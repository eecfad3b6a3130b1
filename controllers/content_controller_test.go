package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

type listPayload[T any] struct {
	Items      []T              `json:"items"`
	Pagination utils.Pagination `json:"pagination"`
}

func contentRouter[T any, PT contentPtr[T]](t *testing.T, resource string, order string) *gin.Engine {
	t.Helper()
	c := NewContentController[T, PT](newTestDB(t), utils.NewCache(nil, 0), resource, order)
	r := gin.New()
	r.GET("/"+resource, c.List)
	r.GET("/"+resource+"/:id", c.Get)
	admin := r.Group("/admin/"+resource, asAdmin(1, "editor"))
	admin.GET("", c.AdminList)
	admin.GET("/:id", c.AdminGet)
	admin.POST("", c.Create)
	admin.PUT("/:id", c.Update)
	admin.DELETE("/:id", c.Delete)
	return r
}

func TestBlogLifecycle(t *testing.T) {
	r := contentRouter[models.BlogPost](t, "blog", "published_at DESC, id DESC")

	w := serveJSON(t, r, http.MethodPost, "/admin/blog", gin.H{
		"title":     "  Demo Day Şubat 2026 ",
		"content":   `<p onclick="x()">Hello <b>world</b></p><script>alert(1)</script>`,
		"published": true,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.BlogPost
	decodeEnvelope(t, w, &post)
	assert.Equal(t, "Demo Day Şubat 2026", post.Title)
	assert.Equal(t, "demo-day-subat-2026", post.Slug)
	assert.Equal(t, "<p>Hello <b>world</b></p>", post.Content)
	assert.NotNil(t, post.PublishedAt)

	w = serveJSON(t, r, http.MethodPost, "/admin/blog", gin.H{"title": "Draft notes"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var draft models.BlogPost
	decodeEnvelope(t, w, &draft)

	// public reads never show drafts
	var page listPayload[models.BlogPost]
	decodeEnvelope(t, serve(r, http.MethodGet, "/blog", nil, nil), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, post.ID, page.Items[0].ID)
	assert.EqualValues(t, 1, page.Pagination.Total)

	w = serve(r, http.MethodGet, "/blog/demo-day-subat-2026", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodGet, "/blog/draft-notes", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// admin sees both and can filter
	decodeEnvelope(t, serve(r, http.MethodGet, "/admin/blog", nil, nil), &page)
	assert.EqualValues(t, 2, page.Pagination.Total)
	decodeEnvelope(t, serve(r, http.MethodGet, "/admin/blog?published=false", nil, nil), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, draft.ID, page.Items[0].ID)

	w = serveJSON(t, r, http.MethodPost, "/admin/blog", gin.H{"title": "demo day subat 2026!"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40950`)

	w = serveJSON(t, r, http.MethodPut, "/admin/blog/"+itoa(draft.ID), gin.H{"published": true, "id": 999}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.BlogPost
	decodeEnvelope(t, w, &updated)
	assert.Equal(t, draft.ID, updated.ID)
	assert.Equal(t, "Draft notes", updated.Title)
	assert.True(t, updated.Published)

	w = serve(r, http.MethodGet, "/blog/draft-notes", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodDelete, "/admin/blog/"+itoa(post.ID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodDelete, "/admin/blog/"+itoa(post.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(r, http.MethodGet, "/admin/blog/"+itoa(post.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContentValidation(t *testing.T) {
	r := contentRouter[models.Event](t, "events", "starts_at DESC")

	w := serveJSON(t, r, http.MethodPost, "/admin/events", gin.H{"location": "Ankara"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40051`)

	w = serveJSON(t, r, http.MethodPost, "/admin/events", gin.H{"title": "!!!"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40053`)

	w = serve(r, http.MethodGet, "/admin/events/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = serve(r, http.MethodGet, "/admin/events?published=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeamHasNoSlugLookup(t *testing.T) {
	r := contentRouter[models.TeamMember](t, "team", "sort_order ASC, id ASC")

	for i, name := range []string{"Zeynep", "Ali"} {
		w := serveJSON(t, r, http.MethodPost, "/admin/team", gin.H{"name": name, "sort_order": 2 - i, "published": true}, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	var page listPayload[models.TeamMember]
	decodeEnvelope(t, serve(r, http.MethodGet, "/team?page_size=1", nil, nil), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Ali", page.Items[0].Name)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	w := serve(r, http.MethodGet, "/team/ali", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(r, http.MethodGet, "/team/"+itoa(page.Items[0].ID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
