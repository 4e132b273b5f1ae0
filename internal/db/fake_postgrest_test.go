package db

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type row = map[string]interface{}

// fakePostgrest is an in-memory PostgREST double that understands the subset
// of the protocol the store uses: eq./in. filters, order, POST inserts and
// PATCH updates.
type fakePostgrest struct {
	t  *testing.T
	mu sync.Mutex

	tables map[string][]row
	// fail maps "METHOD table" to an error message returned with status 500.
	fail     map[string]string
	requests []string
}

func newFakePostgrest(t *testing.T) (*fakePostgrest, *Store) {
	t.Helper()
	f := &fakePostgrest{t: t, tables: map[string][]row{}, fail: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewPostgrestClient(srv.URL, "service-key")
	require.NoError(t, err)
	return f, NewStore(client, nil)
}

// seed adds rows, given as structs or maps, to table.
func (f *fakePostgrest) seed(table string, values ...interface{}) {
	f.t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		b, err := json.Marshal(v)
		require.NoError(f.t, err)
		var r row
		require.NoError(f.t, json.Unmarshal(b, &r))
		f.tables[table] = append(f.tables[table], r)
	}
}

func (f *fakePostgrest) rows(table string) []row {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]row(nil), f.tables[table]...)
}

func (f *fakePostgrest) find(table, id string) row {
	for _, r := range f.rows(table) {
		if r["id"] == id {
			return r
		}
	}
	return nil
}

func (f *fakePostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	table := path.Base(r.URL.Path)
	f.requests = append(f.requests, r.Method+" "+table)
	if msg, ok := f.fail[r.Method+" "+table]; ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "XX000", "message": msg})
		return
	}

	query := r.URL.Query()
	switch r.Method {
	case http.MethodGet:
		out := []row{}
		for _, rr := range f.tables[table] {
			if matches(rr, query) {
				out = append(out, rr)
			}
		}
		sortRows(out, query.Get("order"))
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var body interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": err.Error()})
			return
		}
		var inserted []row
		switch v := body.(type) {
		case []interface{}:
			for _, item := range v {
				inserted = append(inserted, item.(map[string]interface{}))
			}
		case map[string]interface{}:
			inserted = append(inserted, v)
		}
		f.tables[table] = append(f.tables[table], inserted...)
		writeJSON(w, http.StatusCreated, inserted)

	case http.MethodPatch:
		var patch row
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"code": "PGRST102", "message": err.Error()})
			return
		}
		updated := []row{}
		for _, rr := range f.tables[table] {
			if !matches(rr, query) {
				continue
			}
			for k, v := range patch {
				rr[k] = v
			}
			updated = append(updated, rr)
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

var reservedParams = map[string]bool{"select": true, "order": true, "limit": true, "offset": true, "columns": true, "on_conflict": true}

func matches(r row, query map[string][]string) bool {
	for col, filters := range query {
		if reservedParams[col] {
			continue
		}
		val := fmt.Sprint(r[col])
		for _, filter := range filters {
			switch {
			case strings.HasPrefix(filter, "eq."):
				if val != strings.TrimPrefix(filter, "eq.") {
					return false
				}
			case strings.HasPrefix(filter, "in.("):
				list := strings.TrimSuffix(strings.TrimPrefix(filter, "in.("), ")")
				found := false
				for _, item := range strings.Split(list, ",") {
					if strings.Trim(item, `"`) == val {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
		}
	}
	return true
}

func sortRows(rows []row, order string) {
	if order == "" {
		return
	}
	parts := strings.Split(strings.Split(order, ",")[0], ".")
	col := parts[0]
	desc := len(parts) > 1 && parts[1] == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i][col].(float64)
		b, _ := rows[j][col].(float64)
		if desc {
			return a > b
		}
		return a < b
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
