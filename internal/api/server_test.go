package api

import (
	"bytes"
	"encoding/binary"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/ggufcheck/internal/gguf"
)

func header(order binary.AppendByteOrder, version uint32, tensors, kvs uint64) []byte {
	buf := []byte(gguf.Magic)
	buf = order.AppendUint32(buf, version)
	buf = order.AppendUint64(buf, tensors)
	buf = order.AppendUint64(buf, kvs)
	return buf
}

func newTestEcho(opts Options) *echo.Echo {
	e := echo.New()
	NewServer(opts).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v\n%s", err, rec.Body.String())
	}
	return out
}

func TestValidateBody(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{})

	body := append(header(binary.LittleEndian, 3, 5, 10), make([]byte, 64)...)
	rec := do(t, e, http.MethodPost, "/v1/validate", "application/octet-stream", bytes.NewReader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[ValidationResponse](t, rec)
	if !strings.HasPrefix(resp.ID, "hdr_") {
		t.Fatalf("unexpected id %q", resp.ID)
	}
	if resp.Object != "gguf.header" || !resp.Valid || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	want := gguf.HeaderSummary{Endianness: gguf.LittleEndian, Version: 3, TensorCount: 5, KVCount: 10}
	if resp.Header == nil || *resp.Header != want {
		t.Fatalf("unexpected header: %+v", resp.Header)
	}
	if !strings.Contains(rec.Body.String(), `"endianness":"little"`) {
		t.Fatalf("endianness not rendered as text: %s", rec.Body.String())
	}
}

func TestValidateBodyFailures(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{Limits: gguf.Limits{MaxKVCount: 1}})

	cases := []struct {
		name string
		body []byte
		kind gguf.Kind
	}{
		{"empty", nil, gguf.KindTruncated},
		{"bad magic", []byte("ABCDEFGH"), gguf.KindBadMagic},
		{"version", []byte("GGUF\x02\x00\x00\x00"), gguf.KindUnsupportedVersion},
		{"kv ceiling", header(binary.BigEndian, 3, 0, 2), gguf.KindImplausibleCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, e, http.MethodPost, "/v1/validate", "", bytes.NewReader(tc.body))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
			}
			resp := decode[ValidationResponse](t, rec)
			if resp.Valid || resp.Header != nil || resp.Error == nil {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if resp.Error.Kind != tc.kind {
				t.Fatalf("kind: got %q want %q", resp.Error.Kind, tc.kind)
			}
		})
	}
}

func TestValidateMultipart(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile("file", "model.gguf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(header(binary.BigEndian, 3, 1, 2)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	rec := do(t, e, http.MethodPost, "/v1/validate", mw.FormDataContentType(), &buf)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[ValidationResponse](t, rec)
	if resp.Header == nil || resp.Header.Endianness != gguf.BigEndian || resp.Header.KVCount != 2 {
		t.Fatalf("unexpected header: %+v", resp.Header)
	}
}

func TestValidateMultipartWithoutFile(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "no file here"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	rec := do(t, e, http.MethodPost, "/v1/validate", mw.FormDataContentType(), &buf)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `no \"file\" part`) {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	files := map[string][]byte{
		"b.gguf":    []byte("not a model"),
		"a.gguf":    header(binary.LittleEndian, 3, 291, 24),
		"readme.md": []byte("# hi"),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	e := newTestEcho(Options{ModelsDir: dir})

	rec := do(t, e, http.MethodGet, "/v1/models", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	list := decode[ListResponse](t, rec)
	if list.Object != "list" || len(list.Data) != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list.Data[0].Path != "a.gguf" || !list.Data[0].Valid || list.Data[0].Header.TensorCount != 291 {
		t.Fatalf("unexpected first entry: %+v", list.Data[0])
	}
	if list.Data[1].Path != "b.gguf" || list.Data[1].Valid || list.Data[1].Error.Kind != gguf.KindBadMagic {
		t.Fatalf("unexpected second entry: %+v", list.Data[1])
	}
}

func TestListModelsNotConfigured(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{})
	rec := do(t, e, http.MethodGet, "/v1/models", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not_found_error") {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestListModelsMissingDir(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{ModelsDir: filepath.Join(t.TempDir(), "gone")})
	rec := do(t, e, http.MethodGet, "/v1/models", "", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLimits(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{Limits: gguf.Limits{MaxTensorCount: 42}})
	rec := do(t, e, http.MethodGet, "/v1/limits", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[gguf.Limits](t, rec)
	want := gguf.Limits{MaxTensorCount: 42, MaxKVCount: gguf.DefaultMaxKVCount}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	e := newTestEcho(Options{})
	rec := do(t, e, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}
