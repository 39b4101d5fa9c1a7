package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/quickdraw-api/internal/classifier"
	"github.com/Brownie44l1/quickdraw-api/internal/engine"
	"github.com/Brownie44l1/quickdraw-api/internal/engine/fake"
	"github.com/Brownie44l1/quickdraw-api/internal/handlers"
	"github.com/Brownie44l1/quickdraw-api/internal/sketch"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// inkEngine scores "blank" when the input has no ink and "ink" otherwise.
func inkEngine() *fake.Engine {
	return &fake.Engine{
		Output: engine.Shape{1, 2},
		Score: func(in, out []float32) {
			var sum float32
			for _, v := range in {
				sum += v
			}
			out[0], out[1] = 1, 0
			if sum > 0 {
				out[0], out[1] = 0, 1
			}
		},
	}
}

func newRouter(t *testing.T) (*gin.Engine, *fake.Engine) {
	t.Helper()
	eng := inkEngine()
	c, err := classifier.New(eng, []byte("model"), []string{"blank", "ink"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return handlers.NewRouter(handlers.NewHandler(c, nil, sketch.Nearest)), eng
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflight(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, httptest.NewRequest(http.MethodOptions, "/predict", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestNotReady(t *testing.T) {
	loadErr := errors.New("failed to read model: open models/model.onnx: no such file or directory")
	r := handlers.NewRouter(handlers.NewHandler(nil, loadErr, sketch.Nearest))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/labels"},
		{http.MethodPost, "/predict"},
		{http.MethodPost, "/predict/image"},
		{http.MethodPost, "/predict/strokes"},
	} {
		w := do(r, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		require.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
		body := decode(t, w)
		assert.Equal(t, "not ready", body["status"])
		assert.Equal(t, loadErr.Error(), body["error"])
	}
}

func TestLabels(t *testing.T) {
	r, _ := newRouter(t)
	w := do(r, httptest.NewRequest(http.MethodGet, "/labels", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"blank", "ink"}, decode(t, w)["labels"])
}

func TestPredict(t *testing.T) {
	r, _ := newRouter(t)

	input := make([]float32, 28*28)
	input[100] = 255
	body, err := json.Marshal(handlers.PredictionRequest{Image: input})
	require.NoError(t, err)

	w := do(r, httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ink", decode(t, w)["class"])
}

func TestPredictBadInput(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader("{nope")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"image":[1,2,3]}`)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "expected 784 values, got 3")
}

func upload(t *testing.T, img image.Image) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "sketch.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(part, img))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPredictFromImage(t *testing.T) {
	r, eng := newRouter(t)

	// transparent canvas with one opaque black square
	img := image.NewNRGBA(image.Rect(0, 0, 280, 280))
	for y := 100; y < 180; y++ {
		for x := 100; x < 180; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 0xff})
		}
	}

	w := do(r, upload(t, img))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ink", decode(t, w)["class"])

	in := eng.Sessions[0].LastInput
	assert.Equal(t, float32(0), in[0], "transparent corner reads as white paper")
	assert.Equal(t, float32(255), in[14*28+14])

	w = do(r, upload(t, image.NewNRGBA(image.Rect(0, 0, 50, 50))))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blank", decode(t, w)["class"])
}

func TestPredictFromImageErrors(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, httptest.NewRequest(http.MethodPost, "/predict/image", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/predict/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w = do(r, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Invalid image format")
}

func TestPredictFromStrokes(t *testing.T) {
	r, _ := newRouter(t)

	body := `{"strokes":[[[10,200],[10,200]],{"x":[10,200],"y":[200,10]}],"line_width":12}`
	w := do(r, httptest.NewRequest(http.MethodPost, "/predict/strokes", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ink", decode(t, w)["class"])
}

func TestPredictFromStrokesErrors(t *testing.T) {
	r, _ := newRouter(t)

	for _, body := range []string{
		`{"strokes":[]}`,
		`{"strokes":[[[1,2]]]}`,
		`{}`,
	} {
		w := do(r, httptest.NewRequest(http.MethodPost, "/predict/strokes", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestPredictFromStrokesRejectsHugeCanvas(t *testing.T) {
	r, eng := newRouter(t)

	for _, body := range []string{
		`{"strokes":[{"x":[0,1],"y":[0,1]}],"width":2000000000,"height":2000000000}`,
		`{"strokes":[{"x":[0,1],"y":[0,1]}],"width":40000,"height":40000}`,
		`{"strokes":[{"x":[0,1e12],"y":[0,1]}]}`,
	} {
		w := do(r, httptest.NewRequest(http.MethodPost, "/predict/strokes", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid drawing", decode(t, w)["error"], body)
	}
	assert.Zero(t, eng.Sessions[0].Runs)
}

func TestPredictFromStrokesBodyLimit(t *testing.T) {
	r, _ := newRouter(t)

	body := `{"strokes":[{"x":[0,1],"y":[0,1]}],"note":"` + strings.Repeat("a", 2<<20) + `"}`
	w := do(r, httptest.NewRequest(http.MethodPost, "/predict/strokes", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", decode(t, w)["error"])
}

func TestPredictFromImageTooLarge(t *testing.T) {
	r, eng := newRouter(t)

	w := do(r, upload(t, image.NewGray(image.Rect(0, 0, sketch.MaxCanvas+1, 1))))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Image too large", decode(t, w)["error"])
	assert.Zero(t, eng.Sessions[0].Runs)
}
