package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/dashboard"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	c := New()
	c.ObserveRequest(http.MethodGet, "/server/list", 200, nil)
	c.ObserveRequest(http.MethodGet, "/server/list", 200, nil)
	c.ObserveRequest(http.MethodGet, "/server/list", 401, nil)
	c.ObserveRequest(http.MethodPost, "/refresh", 0, errors.New("dial tcp: refused"))

	tests := []struct {
		method, code string
		want         float64
	}{
		{"GET", "200", 2},
		{"GET", "401", 1},
		{"POST", "error", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(c.requests.WithLabelValues(tt.method, tt.code)); got != tt.want {
			t.Errorf("requests{%s,%s} = %v, want %v", tt.method, tt.code, got, tt.want)
		}
	}
}

func TestObserveRefresh(t *testing.T) {
	c := New()
	c.ObserveRefresh(apiclient.RefreshSucceeded)
	c.ObserveRefresh(apiclient.RefreshShared)
	c.ObserveRefresh(apiclient.RefreshShared)

	if got := testutil.ToFloat64(c.refreshes.WithLabelValues("shared")); got != 2 {
		t.Errorf("shared = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.refreshes); got != 2 {
		t.Errorf("series = %d, want 2", got)
	}
}

func TestUpdateGPU_ReplacesSnapshot(t *testing.T) {
	c := New()
	c.UpdateGPU(&dashboard.GPUResources{
		GPUData: map[string]map[string][]dashboard.GPUSlot{
			"node-a": {"0": {{Status: "busy"}, {Status: "busy"}, {Status: "idle"}}},
			"node-b": {"1": {{Status: "idle"}}},
		},
	})
	if got := testutil.ToFloat64(c.gpuSlots.WithLabelValues("node-a", "0", "busy")); got != 2 {
		t.Errorf("node-a/0/busy = %v, want 2", got)
	}

	c.UpdateGPU(&dashboard.GPUResources{
		GPUData: map[string]map[string][]dashboard.GPUSlot{
			"node-a": {"0": {{Status: "idle"}}},
		},
	})
	if got := testutil.CollectAndCount(c.gpuSlots); got != 1 {
		t.Errorf("series after update = %d, want 1", got)
	}
}

func TestUpdateServers(t *testing.T) {
	c := New()
	c.UpdateServers([]dashboard.ServerRow{
		{Status: "Running"}, {Status: "Running"}, {Status: "Pending"},
	})
	expected := `
# HELP gpudash_servers Running servers in the cluster by status.
# TYPE gpudash_servers gauge
gpudash_servers{status="Pending"} 1
gpudash_servers{status="Running"} 2
`
	if err := testutil.CollectAndCompare(c.servers, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
	if testutil.ToFloat64(c.lastPoll) == 0 {
		t.Error("last poll timestamp not set")
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.ObserveRefresh(apiclient.RefreshRejected)
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `gpudash_token_refresh_total{outcome="rejected"} 1`) {
		t.Errorf("metrics output missing refresh counter:\n%s", body)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}
