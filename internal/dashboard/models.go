package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Label is a display value the backend sends as either a string or a number.
type Label string

// UnmarshalJSON accepts strings, numbers and null.
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*l = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("label must be a string or number: %w", err)
		}
		*l = Label(n.String())
	}
	return nil
}

// GPUSlot is one compute slice of a physical GPU (a whole GPU or a MIG
// instance).
type GPUSlot struct {
	Compute Label  `json:"compute"`
	MigID   Label  `json:"migId"`
	Flavor  string `json:"flavor"`
	User    string `json:"user"`
	Status  string `json:"status"`
}

// InUse reports whether a user holds the slot.
func (s GPUSlot) InUse() bool { return s.User != "" }

// GPUResources is the cluster-wide GPU snapshot: node -> GPU id -> slots.
type GPUResources struct {
	NodeList []string                        `json:"nodeList"`
	GPUData  map[string]map[string][]GPUSlot `json:"gpuData"`
}

// GPUIDs returns the GPU ids of node in numeric order when they are numbers,
// lexical order otherwise.
func (r *GPUResources) GPUIDs(node string) []string {
	gpus := r.GPUData[node]
	ids := make([]string, 0, len(gpus))
	for id := range gpus {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})
	return ids
}

// SlotCounts tallies slots by status across the whole cluster.
func (r *GPUResources) SlotCounts() map[string]int {
	counts := make(map[string]int)
	for _, gpus := range r.GPUData {
		for _, slots := range gpus {
			for _, s := range slots {
				counts[s.Status]++
			}
		}
	}
	return counts
}

// ServerRow is one entry of the cluster-wide running server table.
type ServerRow struct {
	UserName  string   `json:"userName"`
	GPU       string   `json:"gpu"`
	CPUMem    string   `json:"cpuMem"`
	CreatedAt string   `json:"createdAt"`
	Status    string   `json:"status"`
	Node      []string `json:"node"`
	Tags      string   `json:"tags"`
}

// GPULabel is the GPU column text: the flavor for a single node, suffixed
// with "*N" when the server spans N nodes.
func (r ServerRow) GPULabel() string {
	if len(r.Node) > 1 {
		return fmt.Sprintf("%s*%d", r.GPU, len(r.Node))
	}
	return r.GPU
}

// MyServer is a server owned by the signed-in user.
type MyServer struct {
	ID          int    `json:"id"`
	UserName    string `json:"userName"`
	ServerName  string `json:"serverName"`
	PodName     string `json:"podName"`
	Description string `json:"description"`
	GPU         string `json:"gpu"`
	CPU         Label  `json:"cpu"`
	Memory      Label  `json:"memory"`
	CreatedAt   string `json:"createdAt"`
	Status      string `json:"status"`
	InternalIP  string `json:"internal_ip"`
	Tags        string `json:"tags"`
}

// PVC is a persistent volume claim owned by the signed-in user.
type PVC struct {
	ID   int    `json:"id"`
	Name string `json:"pvc_name"`
	Path string `json:"path"`
}

type pvcList struct {
	PVCs []PVC `json:"pvcs"`
}

// Entry types in a directory listing.
const (
	EntryFile      = "file"
	EntryDirectory = "directory"
)

// Entry is a file or directory inside a PVC.
type Entry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Extension   string `json:"extension"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	Modified    string `json:"modified"`
	Permissions string `json:"permissions"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == EntryDirectory }

// Listing is the content of one directory.
type Listing struct {
	Path           string  `json:"path"`
	TotalItems     int     `json:"total_items"`
	TotalSize      int64   `json:"total_size"`
	TotalSizeHuman string  `json:"total_size_human"`
	Items          []Entry `json:"items"`
}
