package controllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cancoktug/ginovainno-replit-sub001/mocks"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
)

func TestAssetListAndDelete(t *testing.T) {
	store := storage.NewMemoryStore("uploads")
	db := newTestDB(t)
	u := NewUploadController(db, newTestService(t, store), 10*time.Second)
	a := NewAssetController(db, store)

	r := gin.New()
	admin := r.Group("/admin", asAdmin(1, "editor"))
	admin.POST("/uploads/optimized", u.UploadOptimized)
	admin.GET("/assets", a.List)
	admin.DELETE("/assets/:id", a.Delete)

	for _, category := range []string{"team", "blog", "team"} {
		w := serve(r, http.MethodPost, "/admin/uploads/optimized?type="+category, bytes.NewReader(jpegFixture(t, 20, 20)),
			map[string]string{"X-Upload-Content-Type": "image/jpeg"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Equal(t, 3, store.Len())

	var page listPayload[models.Asset]
	decodeEnvelope(t, serve(r, http.MethodGet, "/admin/assets?category=team", nil, nil), &page)
	require.Len(t, page.Items, 2)
	assert.Greater(t, page.Items[0].ID, page.Items[1].ID)

	victim := page.Items[0]
	w := serve(r, http.MethodDelete, "/admin/assets/"+itoa(victim.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, store.Len())
	_, _, err := store.Get(context.Background(), victim.Key)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	w = serve(r, http.MethodDelete, "/admin/assets/"+itoa(victim.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = serve(r, http.MethodDelete, "/admin/assets/zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssetDeleteKeepsRowWhenStorageFails(t *testing.T) {
	db := newTestDB(t)
	asset := models.Asset{Key: "uploads/team/2026/10/a.jpg", URL: "/media/uploads/team/2026/10/a.jpg", Size: 1}
	require.NoError(t, db.Create(&asset).Error)

	store := &mocks.MockStore{}
	store.On("Delete", mock.Anything, asset.Key).Return(fmt.Errorf("delete: %w", storage.ErrStorageUnavailable)).Once()
	store.On("Delete", mock.Anything, asset.Key).Return(storage.ErrNotFound).Once()

	a := NewAssetController(db, store)
	r := gin.New()
	r.DELETE("/assets/:id", a.Delete)

	w := serve(r, http.MethodDelete, "/assets/"+itoa(asset.ID), nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, db.First(&models.Asset{}, asset.ID).Error)

	// an object that is already gone does not block removing the row
	w = serve(r, http.MethodDelete, "/assets/"+itoa(asset.ID), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}
