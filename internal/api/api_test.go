package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/filter"
	"github.com/starford/ansuz/internal/filterservice"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
	"github.com/starford/ansuz/internal/vault"
)

// testEnv sets up a temp vault, SQLite filter store, service, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()

	vaultDir, prov := testutil.TestVault(t)
	snap := vault.NewSnapshot(prov)
	if _, err := snap.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	reg := registry.NewDefault()
	svc := filterservice.NewService(testutil.TestStore(t), reg)
	router := NewRouter(svc, reg, snap, nil, authToken != "", authToken, nil)
	return &snapshotRefresher{router: router, snap: snap}, vaultDir
}

// snapshotRefresher reloads the snapshot before each request so tests that
// write vault files do not need the fsnotify watcher.
type snapshotRefresher struct {
	router http.Handler
	snap   *vault.Snapshot
}

func (s *snapshotRefresher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = s.snap.Reload()
	s.router.ServeHTTP(w, r)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func tagCfg(tags ...string) filter.Config {
	list := make([]any, len(tags))
	for i, tag := range tags {
		list[i] = tag
	}
	return filter.Config{"type": filter.TypeTag, "tags": list}
}

func createFilter(t *testing.T, router http.Handler, name string, cfg filter.Config) store.SavedFilter {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/filters", SaveFilterRequest{Name: name, Config: cfg})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved store.SavedFilter
	if err := json.Unmarshal(w.Body.Bytes(), &saved); err != nil {
		t.Fatal(err)
	}
	return saved
}

func TestSaveAndGetFilter(t *testing.T) {
	router, _ := testEnv(t, "")

	saved := createFilter(t, router, "work", tagCfg("work"))
	if saved.Metadata.ID == "" {
		t.Fatal("saved filter has no id")
	}

	w := doJSON(t, router, http.MethodGet, "/filters/"+saved.Metadata.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got store.SavedFilter
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Metadata.Name != "work" || got.Config.Type() != filter.TypeTag {
		t.Errorf("got = %+v", got)
	}
}

func TestSaveFilter_InvalidConfig(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/filters", SaveFilterRequest{
		Name:   "bad",
		Config: filter.Config{"type": filter.TypeTag},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", w.Code, w.Body.String())
	}
}

func TestListFilters_IncludesPresets(t *testing.T) {
	router, _ := testEnv(t, "")
	createFilter(t, router, "mine", tagCfg("x"))

	w := doJSON(t, router, http.MethodGet, "/filters", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res FilterListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Total != len(filterservice.Presets())+1 {
		t.Errorf("total = %d, want presets + 1", res.Total)
	}
}

func TestUpdateFilter(t *testing.T) {
	router, _ := testEnv(t, "")
	saved := createFilter(t, router, "before", tagCfg("a"))

	name := "after"
	w := doJSON(t, router, http.MethodPut, "/filters/"+saved.Metadata.ID, UpdateFilterRequest{Name: &name})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var got store.SavedFilter
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Metadata.Name != "after" {
		t.Errorf("name = %q", got.Metadata.Name)
	}
}

func TestDeleteFilter(t *testing.T) {
	router, _ := testEnv(t, "")
	saved := createFilter(t, router, "gone", tagCfg("a"))

	w := doJSON(t, router, http.MethodDelete, "/filters/"+saved.Metadata.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/filters/"+saved.Metadata.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestPresetRoutes(t *testing.T) {
	router, _ := testEnv(t, "")
	id := filterservice.PresetPrefix + "today"

	w := doJSON(t, router, http.MethodGet, "/filters/"+id, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get preset = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/filters/"+id, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("delete preset = %d, want 403", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/filters/validate", ValidateRequest{Config: tagCfg("x")})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res filterservice.ConfigValidation
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Valid {
		t.Errorf("result = %+v, want valid", res)
	}

	w = doJSON(t, router, http.MethodPost, "/filters/validate", ValidateRequest{
		Config: filter.Config{"type": filter.TypeTag},
	})
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if w.Code != http.StatusOK || res.Valid {
		t.Errorf("invalid config: status = %d, result = %+v", w.Code, res)
	}
}

func TestEvaluateEndpoint(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "a.md", "---\ntags:\n  - work\n---\n# A\n")
	testutil.WriteNote(t, vaultDir, "b.md", "---\ntags:\n  - home\n---\n# B\n")

	w := doJSON(t, router, http.MethodPost, "/filters/evaluate", EvaluateRequest{Config: tagCfg("work")})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res EvaluateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Total != 1 || res.Notes[0].ID != "a.md" {
		t.Errorf("result = %+v, want only a.md", res)
	}
	if res.Description == "" {
		t.Error("description should be populated")
	}
}

func TestEvaluateEndpoint_RequiresExactlyOneSelector(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/filters/evaluate", EvaluateRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("neither selector = %d, want 400", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/filters/evaluate", EvaluateRequest{
		ID: "x", Config: tagCfg("a"),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("both selectors = %d, want 400", w.Code)
	}
}

func TestEvaluateEndpoint_BySavedID(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "a.md", "---\ntags:\n  - work\n---\n# A\n")
	saved := createFilter(t, router, "work", tagCfg("work"))

	w := doJSON(t, router, http.MethodPost, "/filters/evaluate", EvaluateRequest{ID: saved.Metadata.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res EvaluateResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Total != 1 {
		t.Errorf("total = %d, want 1", res.Total)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")
	createFilter(t, router, "weekly report", tagCfg("report"))

	w := doJSON(t, router, http.MethodGet, "/filters/search?q=weekly", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res FilterListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Total != 1 || res.Filters[0].Metadata.Name != "weekly report" {
		t.Errorf("result = %+v", res)
	}

	w = doJSON(t, router, http.MethodGet, "/filters/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	router, _ := testEnv(t, "")
	createFilter(t, router, "one", tagCfg("a"))
	createFilter(t, router, "two", tagCfg("b"))

	w := doJSON(t, router, http.MethodGet, "/filters/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	var exported ExportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &exported)
	if len(exported.Filters) != 2 {
		t.Fatalf("exported = %d filters, want 2", len(exported.Filters))
	}

	// Import into a fresh environment, with one broken item mixed in.
	router2, _ := testEnv(t, "")
	broken := store.SavedFilter{
		Metadata: store.FilterMetadata{Name: "broken"},
		Config:   filter.Config{"type": "NOPE"},
	}
	w = doJSON(t, router2, http.MethodPost, "/filters/import", ImportRequest{
		Filters: append(exported.Filters, broken),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	var imported ImportResponse
	_ = json.Unmarshal(w.Body.Bytes(), &imported)
	if len(imported.Imported) != 2 {
		t.Errorf("imported = %d, want 2", len(imported.Imported))
	}
	if len(imported.Errors) != 1 || imported.Errors[0].Name != "broken" {
		t.Errorf("errors = %v", imported.Errors)
	}
}

func TestFilterTypesEndpoint(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/filter-types", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Types []FilterTypeInfo `json:"types"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Types) != 4 {
		t.Fatalf("types = %d, want 4", len(res.Types))
	}
	for _, info := range res.Types {
		if info.DisplayName == "" || info.Example == nil {
			t.Errorf("type %s missing metadata", info.Type)
		}
	}
}

func TestListNotes(t *testing.T) {
	router, vaultDir := testEnv(t, "")
	testutil.WriteNote(t, vaultDir, "a.md", "# A\nbody")

	w := doJSON(t, router, http.MethodGet, "/notes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Total != 1 || res.Notes[0].Title != "A" {
		t.Errorf("result = %+v", res)
	}
}

func TestAuth(t *testing.T) {
	router, _ := testEnv(t, "secret")

	req := httptest.NewRequest(http.MethodGet, "/filters", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/filters", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/filters", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestInvalidJSONBody(t *testing.T) {
	router, _ := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/filters", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUnknownFilter404(t *testing.T) {
	router, _ := testEnv(t, "")
	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/filters/%s", "ghost"), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
