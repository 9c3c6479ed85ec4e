package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MemReport is a hierarchical breakdown of the memory held by a built
// structure. Leaves carry their own byte count; inner nodes made with
// NewMemReport carry the sum of their children.
type MemReport struct {
	Name       string      `json:"name"`
	TotalBytes uint64      `json:"total_bytes"`
	Children   []MemReport `json:"children,omitempty"`
}

// Leaf returns a report node with no children.
func Leaf(name string, bytes uint64) MemReport {
	return MemReport{Name: name, TotalBytes: bytes}
}

// NewMemReport returns a node whose total is the sum of children.
func NewMemReport(name string, children ...MemReport) MemReport {
	var total uint64
	for _, c := range children {
		total += c.TotalBytes
	}
	return MemReport{Name: name, TotalBytes: total, Children: children}
}

func (r MemReport) Bits() uint64 {
	return r.TotalBytes * 8
}

// JSON returns a JSON string representation of the MemReport.
func (r MemReport) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(b)
}

func (r MemReport) String() string {
	var sb strings.Builder
	r.buildString(&sb, 0)
	return sb.String()
}

func (r MemReport) buildString(sb *strings.Builder, indent int) {
	prefix := strings.Repeat("  ", indent)
	fmt.Fprintf(sb, "%s- %s: %d bytes\n", prefix, r.Name, r.TotalBytes)
	for _, child := range r.Children {
		child.buildString(sb, indent+1)
	}
}
