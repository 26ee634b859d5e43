package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmendes/orderimport/internal/config"
	"github.com/tmendes/orderimport/internal/importer"
	"github.com/tmendes/orderimport/internal/store"
)

type fakeImportStore struct {
	createErr error
	nextID    int64
	created   []string
	imports   map[int64]importer.Import
}

func (f *fakeImportStore) Create(_ context.Context, fileRef string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.created = append(f.created, fileRef)
	return f.nextID, nil
}

func (f *fakeImportStore) Find(_ context.Context, id int64) (importer.Import, error) {
	imp, ok := f.imports[id]
	if !ok {
		return importer.Import{}, importer.ErrImportNotFound
	}
	return imp, nil
}

type fakeFileSaver struct {
	saveErr error
	saved   []string
}

func (f *fakeFileSaver) Save(r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, string(b))
	return fmt.Sprintf("ref-%d.txt", len(f.saved)), nil
}

type fakeEnqueuer struct {
	ids []int64
}

func (f *fakeEnqueuer) Enqueue(id int64) { f.ids = append(f.ids, id) }

type fakeCatalog struct {
	users    []store.UserRow
	products []store.ProductRow
	orders   []store.OrderRow
	err      error

	lastLimit  int
	lastOffset int
}

func (f *fakeCatalog) ListUsers(_ context.Context, limit, offset int) ([]store.UserRow, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.users, f.err
}

func (f *fakeCatalog) ListProducts(_ context.Context, limit, offset int) ([]store.ProductRow, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.products, f.err
}

func (f *fakeCatalog) ListOrders(_ context.Context, limit, offset int) ([]store.OrderRow, error) {
	f.lastLimit, f.lastOffset = limit, offset
	return f.orders, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			RequestTimeout: 5 * time.Second,
		},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
	}
}

func newTestServer(imports *fakeImportStore, files *fakeFileSaver, queue *fakeEnqueuer, catalog *fakeCatalog) *Server {
	if imports == nil {
		imports = &fakeImportStore{imports: map[int64]importer.Import{}}
	}
	if files == nil {
		files = &fakeFileSaver{}
	}
	if queue == nil {
		queue = &fakeEnqueuer{}
	}
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	return NewServer(imports, files, queue, catalog, testConfig())
}

// multipartBody builds a multipart request body with a single file part.
func multipartBody(t *testing.T, field, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename),
	}
	if contentType != "" {
		hdr["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateImport(t *testing.T) {
	imports := &fakeImportStore{imports: map[int64]importer.Import{}}
	files := &fakeFileSaver{}
	queue := &fakeEnqueuer{}
	srv := newTestServer(imports, files, queue, nil)

	body, ct := multipartBody(t, "file", "orders.txt", "text/plain", "some order data\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}

	var resp createImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ImportID != 1 {
		t.Errorf("import_id = %d, want 1", resp.ImportID)
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}

	if len(files.saved) != 1 || files.saved[0] != "some order data\n" {
		t.Errorf("saved files = %q", files.saved)
	}
	if len(imports.created) != 1 || imports.created[0] != "ref-1.txt" {
		t.Errorf("created imports = %q", imports.created)
	}
	if len(queue.ids) != 1 || queue.ids[0] != 1 {
		t.Errorf("enqueued = %v, want [1]", queue.ids)
	}
}

func TestCreateImportMissingFileField(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	body, ct := multipartBody(t, "attachment", "orders.txt", "text/plain", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateImportNotMultipart(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader("raw body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateImportWrongContentType(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
	}{
		{"pdf", "orders.pdf", "application/pdf"},
		{"octet stream", "orders.txt", "application/octet-stream"},
		{"no content type", "orders.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &fakeEnqueuer{}
			srv := newTestServer(nil, nil, queue, nil)

			body, ct := multipartBody(t, "file", tt.filename, tt.contentType, "data")
			req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()

			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusUnsupportedMediaType {
				t.Errorf("status = %d, want 415", rec.Code)
			}
			if len(queue.ids) != 0 {
				t.Errorf("enqueued = %v, want none", queue.ids)
			}
		})
	}
}

func TestCreateImportSaveFailure(t *testing.T) {
	files := &fakeFileSaver{saveErr: errors.New("disk full")}
	srv := newTestServer(nil, files, nil, nil)

	body, ct := multipartBody(t, "file", "orders.txt", "text/plain", "data")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestImportStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	imports := &fakeImportStore{imports: map[int64]importer.Import{
		42: {ID: 42, Status: importer.StatusCompleted, CreatedAt: now, UpdatedAt: now},
	}}
	srv := newTestServer(imports, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/42", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var resp importStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ImportID != 42 || resp.Status != "completed" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.CreatedAt != "2025-06-01T12:00:00Z" {
		t.Errorf("created_at = %q", resp.CreatedAt)
	}
}

func TestImportStatusNotFound(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/999", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestImportStatusBadID(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	for _, id := range []string{"abc", "-1", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+id, nil)
		rec := httptest.NewRecorder()

		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("id %q: status = %d, want 400", id, rec.Code)
		}
	}
}

func TestListUsers(t *testing.T) {
	catalog := &fakeCatalog{users: []store.UserRow{
		{
			ID:   70,
			Name: "Palmer Prosacco",
			Orders: []store.OrderRow{{
				ID:         1068,
				Date:       time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC),
				TotalCents: 183674,
				Items:      []store.OrderItemRow{{ProductID: 2, PriceCents: 183674}},
			}},
		},
		{ID: 75, Name: "Bobbie Batz"},
	}}
	srv := newTestServer(nil, nil, nil, catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?page=2&per_page=10", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if catalog.lastLimit != 10 || catalog.lastOffset != 10 {
		t.Errorf("limit/offset = %d/%d, want 10/10", catalog.lastLimit, catalog.lastOffset)
	}

	var resp listResponse[userResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Page != 2 || resp.PerPage != 10 {
		t.Errorf("page/per_page = %d/%d", resp.Page, resp.PerPage)
	}
	if len(resp.Items) != 2 || resp.Items[0].Name != "Palmer Prosacco" {
		t.Fatalf("items = %+v", resp.Items)
	}

	// Each user carries their orders, items and formatted totals included.
	orders := resp.Items[0].Orders
	if len(orders) != 1 || orders[0].ID != 1068 {
		t.Fatalf("user orders = %+v", orders)
	}
	if orders[0].Total != "1836.74" || orders[0].Date != "2021-03-08" {
		t.Errorf("order = %+v", orders[0])
	}
	if len(orders[0].Products) != 1 || orders[0].Products[0].Price != "1836.74" {
		t.Errorf("order products = %+v", orders[0].Products)
	}
	if len(resp.Items[1].Orders) != 0 {
		t.Errorf("user without orders = %+v", resp.Items[1].Orders)
	}
}

func TestListProductsFormatsPrice(t *testing.T) {
	catalog := &fakeCatalog{products: []store.ProductRow{
		{ID: 2, PriceCents: 183674},
		{ID: 4, PriceCents: 75},
	}}
	srv := newTestServer(nil, nil, nil, catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp listResponse[productResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Items[0].Price != "1836.74" {
		t.Errorf("price = %q, want 1836.74", resp.Items[0].Price)
	}
	if resp.Items[1].Price != "0.75" {
		t.Errorf("price = %q, want 0.75", resp.Items[1].Price)
	}
}

func TestListOrders(t *testing.T) {
	catalog := &fakeCatalog{orders: []store.OrderRow{
		{
			ID:         1068,
			Date:       time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC),
			TotalCents: 147814,
			Items: []store.OrderItemRow{
				{ProductID: 2, PriceCents: 73857},
				{ProductID: 2, PriceCents: 73957},
			},
		},
	}}
	srv := newTestServer(nil, nil, nil, catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp listResponse[orderResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	o := resp.Items[0]
	if o.ID != 1068 || o.Date != "2021-03-08" {
		t.Errorf("order = %+v", o)
	}
	if o.Total != "1478.14" {
		t.Errorf("total = %q, want 1478.14", o.Total)
	}
	if len(o.Products) != 2 || o.Products[0].Price != "738.57" {
		t.Errorf("products = %+v", o.Products)
	}
}

func TestListPaginationValidation(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	for _, query := range []string{
		"?page=0", "?page=-2", "?page=x",
		"?per_page=0", "?per_page=501", "?per_page=many",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users"+query, nil)
		rec := httptest.NewRecorder()

		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestListUsersStoreError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("connection refused")}
	srv := newTestServer(nil, nil, nil, catalog)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
