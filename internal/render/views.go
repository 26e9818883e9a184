package render

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/aiswide/gpudash/internal/dashboard"
)

// GPUTable lists every slot of every node in node order.
func GPUTable(res *dashboard.GPUResources) Table {
	t := Table{Header: []string{"NODE", "GPU", "MIG", "COMPUTE", "FLAVOR", "USER", "STATUS"}}
	for _, node := range res.NodeList {
		for _, gpu := range res.GPUIDs(node) {
			for _, s := range res.GPUData[node][gpu] {
				t.Rows = append(t.Rows, []string{
					node, gpu, string(s.MigID), string(s.Compute), s.Flavor, s.User, s.Status,
				})
			}
		}
	}
	return t
}

// ServerTable is the cluster-wide running server table.
func ServerTable(rows []dashboard.ServerRow) Table {
	t := Table{Header: []string{"USER", "GPU", "CPU/MEM", "NODE", "CREATED", "STATUS", "TAGS"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.UserName, r.GPULabel(), r.CPUMem, strings.Join(r.Node, ", "), r.CreatedAt, r.Status, r.Tags,
		})
	}
	return t
}

// MyServerTable lists the caller's servers.
func MyServerTable(servers []dashboard.MyServer) Table {
	t := Table{Header: []string{"ID", "NAME", "POD", "GPU", "CPU", "MEMORY", "IP", "STATUS", "CREATED"}}
	for _, s := range servers {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(s.ID), s.ServerName, s.PodName, s.GPU, string(s.CPU), string(s.Memory), s.InternalIP, s.Status, s.CreatedAt,
		})
	}
	return t
}

// PVCTable lists the caller's volume claims.
func PVCTable(pvcs []dashboard.PVC) Table {
	t := Table{Header: []string{"ID", "NAME", "PATH"}}
	for _, p := range pvcs {
		t.Rows = append(t.Rows, []string{strconv.Itoa(p.ID), p.Name, p.Path})
	}
	return t
}

// ListingTable lists a directory, directories first as returned.
func ListingTable(l *dashboard.Listing) Table {
	t := Table{Header: []string{"TYPE", "NAME", "SIZE", "MODIFIED", "PERMISSIONS"}}
	for _, e := range l.Items {
		kind, size := "f", e.SizeHuman
		if e.IsDir() {
			kind, size = "d", ""
		}
		t.Rows = append(t.Rows, []string{kind, e.Name, size, e.Modified, e.Permissions})
	}
	return t
}

// SummaryTable counts GPU slots by status.
func SummaryTable(res *dashboard.GPUResources) Table {
	counts := res.SlotCounts()
	t := Table{Header: []string{"STATUS", "SLOTS"}}
	for _, status := range slices.Sorted(maps.Keys(counts)) {
		t.Rows = append(t.Rows, []string{status, strconv.Itoa(counts[status])})
	}
	return t
}
