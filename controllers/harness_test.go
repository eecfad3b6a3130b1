package controllers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cancoktug/ginovainno-replit-sub001/config"
	"github.com/cancoktug/ginovainno-replit-sub001/media"
	"github.com/cancoktug/ginovainno-replit-sub001/middleware"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/storage"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testMaxBytes = 256 << 10

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, models.All()...))
	return db
}

func newTestService(t *testing.T, store storage.Store) *media.Service {
	t.Helper()
	resolver, err := media.NewResolver("/media")
	require.NoError(t, err)
	svc, err := media.NewService(store, media.NewNormalizer(nil, media.NormalizeOptions{}), resolver, media.ServiceOptions{
		Limits:     media.Limits{MaxBytes: testMaxBytes},
		Categories: []string{"team", "blog", "general"},
		Workers:    2,
	}, media.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return svc
}

func newTestIssuer() *utils.TokenIssuer {
	return utils.NewTokenIssuer(config.JWTSection{Secret: "test-secret", Issuer: "ginova", TTL: time.Hour})
}

// asAdmin stands in for AuthRequired in handler tests.
func asAdmin(id uint, username string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Set(middleware.ContextUserIDKey, id)
		ctx.Set(middleware.ContextUsernameKey, username)
		ctx.Next()
	}
}

func serve(r http.Handler, method, path string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func serveJSON(t *testing.T, r http.Handler, method, path string, payload interface{}, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range header {
		h[k] = v
	}
	return serve(r, method, path, body, h)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}))
	return buf.Bytes()
}

func decodeRaw(t *testing.T, b []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(b, v), string(b))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
