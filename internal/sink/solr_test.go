package sink

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type solrCall struct {
	path, query, body string
}

func fakeSolr(t *testing.T, status int, reply string) (*httptest.Server, func() []solrCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []solrCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, solrCall{path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []solrCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]solrCall(nil), calls...)
	}
}

func TestSolrClient_RunSequence(t *testing.T) {
	srv, calls := fakeSolr(t, http.StatusOK, `{"responseHeader":{"status":0,"QTime":1}}`)
	c := NewSolrClient(srv.URL+"/solr/", "refguide", time.Second, nil)
	ctx := context.Background()

	if err := c.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Submit(ctx, sampleTree("g.md")); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	_ = c.Close()

	// delete, commit, submit, commit
	got := calls()
	if len(got) != 4 {
		t.Fatalf("got %d calls, want 4: %+v", len(got), got)
	}
	for _, call := range got {
		if call.path != "/solr/refguide/update" {
			t.Errorf("path = %q", call.path)
		}
	}
	if !strings.Contains(got[0].body, `"*:*"`) {
		t.Errorf("clear call = %+v", got[0])
	}
	for _, i := range []int{1, 3} {
		if !strings.Contains(got[i].query+got[i].body, "commit") {
			t.Errorf("call %d is not a commit: %+v", i, got[i])
		}
	}

	var docs []map[string]interface{}
	if err := json.Unmarshal([]byte(got[2].body), &docs); err != nil {
		t.Fatalf("submit body: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("submitted %d docs, want 1 nested tree", len(docs))
	}
	root := docs[0]
	if root["id"] != "g.md:##DOC" || root["isDocumentRoot"] != true {
		t.Errorf("root = %v", root)
	}
	if _, ok := root["anchor"]; ok {
		t.Error("root should have no anchor field")
	}
	children, _ := root["children"].([]interface{})
	if len(children) != 2 || root["childrenCount"] != float64(2) {
		t.Errorf("children = %v", root["children"])
	}
}

func TestSolrClient_ErrorResponse(t *testing.T) {
	srv, _ := fakeSolr(t, http.StatusBadRequest, `{"responseHeader":{"status":400},"error":{"msg":"unknown field 'foo'","code":400}}`)
	c := NewSolrClient(srv.URL, "refguide", 0, nil)
	err := c.Submit(context.Background(), sampleTree("g.md"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "g.md:##DOC") {
		t.Errorf("error should name the tree: %v", err)
	}
}

func TestSolrClient_UnavailableServer(t *testing.T) {
	srv, _ := fakeSolr(t, http.StatusServiceUnavailable, "down for maintenance")
	c := NewSolrClient(srv.URL, "refguide", 0, nil)
	if err := c.ClearAll(context.Background()); err == nil {
		t.Error("expected error")
	}
}
