package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/apitest"
	"github.com/aiswide/gpudash/internal/schema"
	"github.com/aiswide/gpudash/internal/session"
)

func newTestService(t *testing.T) (*Service, *apitest.Backend) {
	t.Helper()
	b := apitest.NewBackend(t)
	store := session.NewMemoryStore()
	store.Set(session.KeyAccessToken, "abc")
	client := apiclient.New(b.URL, store, apiclient.WithHTTPClient(b.Client()))
	return New(client), b
}

func TestGPUResources(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(GPUResourcePath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"nodeList": ["node-a", "node-b"],
			"gpuData": {
				"node-a": {
					"10": [{"compute": "7g", "migId": null, "flavor": "A100", "user": "kim", "status": "busy"}],
					"2": [
						{"compute": 3, "migId": 1, "flavor": "A100-3g", "user": "", "status": "idle"},
						{"compute": 4, "migId": 2, "flavor": "A100-4g", "user": "lee", "status": "busy"}
					]
				},
				"node-b": {}
			}
		}`))
	})

	res, err := svc.GPUResources(context.Background())
	if err != nil {
		t.Fatalf("GPUResources: %v", err)
	}
	if len(res.NodeList) != 2 {
		t.Errorf("NodeList = %v", res.NodeList)
	}
	ids := res.GPUIDs("node-a")
	if len(ids) != 2 || ids[0] != "2" || ids[1] != "10" {
		t.Errorf("GPUIDs = %v, want [2 10]", ids)
	}
	slot := res.GPUData["node-a"]["2"][0]
	if slot.Compute != "3" || slot.MigID != "1" || slot.InUse() {
		t.Errorf("slot = %+v", slot)
	}
	if res.GPUData["node-a"]["10"][0].MigID != "" {
		t.Error("null migId should decode as empty")
	}
	counts := res.SlotCounts()
	if counts["busy"] != 2 || counts["idle"] != 1 {
		t.Errorf("SlotCounts = %v", counts)
	}
}

func TestServers_GPULabel(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(ServerListPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, []ServerRow{
			{UserName: "kim", GPU: "A100", Status: "Running", Node: []string{"node-a [0]"}},
			{UserName: "lee", GPU: "H100", Status: "Pending", Node: []string{"node-a [0]", "node-b [1]", "node-c [2]"}},
		})
	})

	rows, err := svc.Servers(context.Background())
	if err != nil {
		t.Fatalf("Servers: %v", err)
	}
	want := []string{"A100", "H100*3"}
	for i, r := range rows {
		if got := r.GPULabel(); got != want[i] {
			t.Errorf("rows[%d].GPULabel() = %q, want %q", i, got, want[i])
		}
	}
}

func TestMyServers(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(MyServerPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":3,"userName":"kim","serverName":"train","podName":"kim-train","cpu":8,"memory":"32Gi","status":"Running","internal_ip":"10.0.0.4","tags":null}]`))
	})

	servers, err := svc.MyServers(context.Background())
	if err != nil {
		t.Fatalf("MyServers: %v", err)
	}
	if len(servers) != 1 {
		t.Fatalf("len = %d, want 1", len(servers))
	}
	s := servers[0]
	if s.PodName != "kim-train" || s.CPU != "8" || s.Memory != "32Gi" || s.InternalIP != "10.0.0.4" {
		t.Errorf("server = %+v", s)
	}
}

func TestDeleteServer(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Delete(DeleteServerPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if err := svc.DeleteServer(context.Background(), "kim-train"); err != nil {
		t.Fatalf("DeleteServer: %v", err)
	}
	calls := b.Calls(DeleteServerPath)
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	var body map[string]string
	if err := json.Unmarshal(calls[0].Body, &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["name"] != "kim-train" {
		t.Errorf("body = %v", body)
	}

	if err := svc.DeleteServer(context.Background(), ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestDeleteServer_NotFound(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Delete(DeleteServerPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.Detail(w, http.StatusNotFound, "Server not found or not authorized")
	})

	err := svc.DeleteServer(context.Background(), "other")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound || se.Detail != "Server not found or not authorized" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestPVCsAndDelete(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(MyPVCsPath, func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]any{
			"pvcs": []PVC{{ID: 1, Name: "kim-data", Path: "/data/kim"}},
		})
	})
	b.Router.Delete(DeletePVCPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	p, err := svc.FindPVC(context.Background(), "kim-data")
	if err != nil {
		t.Fatalf("FindPVC: %v", err)
	}
	if p.ID != 1 || p.Path != "/data/kim" {
		t.Errorf("pvc = %+v", p)
	}
	if _, err := svc.FindPVC(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown pvc")
	}

	if err := svc.DeletePVC(context.Background(), "kim-data", true); err != nil {
		t.Fatalf("DeletePVC: %v", err)
	}
	var body struct {
		Name string `json:"name"`
		PV   bool   `json:"pv"`
	}
	if err := json.Unmarshal(b.Calls(DeletePVCPath)[0].Body, &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Name != "kim-data" || !body.PV {
		t.Errorf("body = %+v", body)
	}
}

func TestBrowse_Query(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(BrowsePath, func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, Listing{
			Path:       r.URL.Query().Get("path"),
			TotalItems: 1,
			Items:      []Entry{{Name: "logs", Type: EntryDirectory}},
		})
	})

	l, err := svc.Browse(context.Background(), 4, "/data/kim/run 1")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}
	if l.Path != "/data/kim/run 1" {
		t.Errorf("Path = %q", l.Path)
	}
	if !l.Items[0].IsDir() {
		t.Error("expected directory entry")
	}
	q := b.Calls(BrowsePath)[0].Query
	if q != "path=%2Fdata%2Fkim%2Frun+1&pvc_id=4" {
		t.Errorf("query = %q", q)
	}
}

func TestGetJSON_SchemaViolation(t *testing.T) {
	svc, b := newTestService(t)
	b.Router.Get(BrowsePath, func(w http.ResponseWriter, r *http.Request) {
		apitest.WriteJSON(w, http.StatusOK, map[string]string{"data": "plain text"})
	})

	_, err := svc.Browse(context.Background(), 1, "/")
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *schema.ValidationError", err)
	}
}

func TestGetJSON_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		detail string
	}{
		{"string detail", func(w http.ResponseWriter) {
			apitest.Detail(w, http.StatusInternalServerError, "boom")
		}, "boom"},
		{"list detail", func(w http.ResponseWriter) {
			apitest.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]string{{"msg": "field required"}}})
		}, `[{"msg":"field required"}]`},
		{"no body", func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadGateway)
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, b := newTestService(t)
			b.Router.Get(ServerListPath, func(w http.ResponseWriter, r *http.Request) { tt.write(w) })

			_, err := svc.Servers(context.Background())
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StatusError", err)
			}
			if se.Detail != tt.detail {
				t.Errorf("Detail = %q, want %q", se.Detail, tt.detail)
			}
			if se.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestGetJSON_AuthFailurePropagates(t *testing.T) {
	b := apitest.NewBackend(t)
	client := apiclient.New(b.URL, session.NewMemoryStore(), apiclient.WithHTTPClient(b.Client()))
	svc := New(client)

	_, err := svc.GPUResources(context.Background())
	if !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}
	if b.Total() != 0 {
		t.Errorf("requests = %d, want 0", b.Total())
	}
}

func TestLabel_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{`"3g.20gb"`, "3g.20gb"},
		{`7`, "7"},
		{`1.5`, "1.5"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var l Label
		if err := json.Unmarshal([]byte(tt.in), &l); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.in, err)
			continue
		}
		if l != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, l, tt.want)
		}
	}

	var l Label
	if err := json.Unmarshal([]byte(`{}`), &l); err == nil {
		t.Error("expected error for object")
	}
}
