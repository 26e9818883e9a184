package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/schema"
	"github.com/rs/zerolog"
)

// Endpoint paths relative to the API base URL.
const (
	GPUResourcePath  = "/metrics/gpu-resource"
	ServerListPath   = "/server/list"
	MyServerPath     = "/server/my-server"
	DeleteServerPath = "/server/delete-server"
	MyPVCsPath       = "/server/my-pvcs"
	DeletePVCPath    = "/server/delete-pvc"
	BrowsePath       = "/server/browse"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// Service reads and mutates dashboard resources through an authenticated
// client.
type Service struct {
	client *apiclient.Client
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service on top of client.
func New(client *apiclient.Client, opts ...Option) *Service {
	s := &Service{client: client, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GPUResources fetches the cluster GPU snapshot.
func (s *Service) GPUResources(ctx context.Context) (*GPUResources, error) {
	var out GPUResources
	if err := s.getJSON(ctx, GPUResourcePath, nil, schema.GPUResource, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Servers fetches every running server in the cluster.
func (s *Service) Servers(ctx context.Context) ([]ServerRow, error) {
	var out []ServerRow
	if err := s.getJSON(ctx, ServerListPath, nil, schema.ServerList, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyServers fetches the servers owned by the signed-in user.
func (s *Service) MyServers(ctx context.Context) ([]MyServer, error) {
	var out []MyServer
	if err := s.getJSON(ctx, MyServerPath, nil, schema.MyServer, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteServer deletes the caller's server with the given pod name.
func (s *Service) DeleteServer(ctx context.Context, podName string) error {
	if podName == "" {
		return fmt.Errorf("server name is required")
	}
	body := struct {
		Name string `json:"name"`
	}{podName}
	return s.delete(ctx, DeleteServerPath, body)
}

// PVCs fetches the caller's persistent volume claims.
func (s *Service) PVCs(ctx context.Context) ([]PVC, error) {
	var out pvcList
	if err := s.getJSON(ctx, MyPVCsPath, nil, schema.MyPVCs, &out); err != nil {
		return nil, err
	}
	return out.PVCs, nil
}

// FindPVC returns the caller's PVC with the given name.
func (s *Service) FindPVC(ctx context.Context, name string) (PVC, error) {
	pvcs, err := s.PVCs(ctx)
	if err != nil {
		return PVC{}, err
	}
	for _, p := range pvcs {
		if p.Name == name {
			return p, nil
		}
	}
	return PVC{}, fmt.Errorf("pvc %q not found", name)
}

// DeletePVC deletes the caller's PVC. When withVolume is true the bound
// persistent volume is deleted as well.
func (s *Service) DeletePVC(ctx context.Context, name string, withVolume bool) error {
	if name == "" {
		return fmt.Errorf("pvc name is required")
	}
	body := struct {
		Name string `json:"name"`
		PV   bool   `json:"pv"`
	}{name, withVolume}
	return s.delete(ctx, DeletePVCPath, body)
}

// Browse lists the directory at path inside the PVC with the given id.
func (s *Service) Browse(ctx context.Context, pvcID int, path string) (*Listing, error) {
	q := url.Values{}
	q.Set("pvc_id", strconv.Itoa(pvcID))
	q.Set("path", path)

	var out Listing
	if err := s.getJSON(ctx, BrowsePath, q, schema.Browse, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) getJSON(ctx context.Context, path string, query url.Values, schemaName string, out any) error {
	resp, err := s.client.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodGet, path, resp.StatusCode, body)
	}

	if err := schema.Validate(schemaName, body); err != nil {
		s.logger.Debug().Err(err).Str("path", path).Msg("response failed validation")
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (s *Service) delete(ctx context.Context, path string, body any) error {
	resp, err := s.client.Delete(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		return statusError(http.MethodDelete, path, resp.StatusCode, data)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	s.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("deleted")
	return nil
}
