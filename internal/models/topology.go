package models

import (
	"fmt"
	"sort"
	"strings"
)

// EdgeType is the protocol an edge exposes.
type EdgeType int

const (
	EdgeHTTP EdgeType = iota + 1
	EdgeHTTPS
)

// edgeTypes lists every EdgeType; ParseEdgeType matches against it.
var edgeTypes = []EdgeType{EdgeHTTP, EdgeHTTPS}

// String returns the lower-case configuration spelling of the edge type.
func (t EdgeType) String() string {
	switch t {
	case EdgeHTTP:
		return "http"
	case EdgeHTTPS:
		return "https"
	}
	return fmt.Sprintf("EdgeType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t EdgeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseEdgeType matches s case-insensitively against the known edge types.
func ParseEdgeType(s string) (EdgeType, error) {
	for _, t := range edgeTypes {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown edge type %q (expected http or https)", s)
}

// TLSConfig points at the certificate material used to terminate TLS.
type TLSConfig struct {
	Certificate string `json:"certificate"`
	Key         string `json:"key"`
}

// SubEdge routes one exposure to a component or resource.
// It does not know its own id; see SubEdgeDef.
type SubEdge struct {
	Target string     `json:"target"`
	Type   EdgeType   `json:"type"`
	TLS    *TLSConfig `json:"tls,omitempty"`
}

// Edge maps sub-edge ids to sub-edges.
type Edge map[string]SubEdge

// Topology maps edge ids to edges.
type Topology map[string]Edge

// SubEdgeDef pairs a sub-edge with the keys it is filed under.
type SubEdgeDef struct {
	EdgeID    string
	SubEdgeID string
	SubEdge   SubEdge
}

// ID returns the "edge/sub-edge" identity of the definition.
func (d SubEdgeDef) ID() string {
	return d.EdgeID + "/" + d.SubEdgeID
}

// EdgeIDs returns the edge ids in lexicographic order.
func (t Topology) EdgeIDs() []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SubEdges flattens the topology into definitions ordered by edge id, then sub-edge id.
func (t Topology) SubEdges() []SubEdgeDef {
	var defs []SubEdgeDef
	for _, edgeID := range t.EdgeIDs() {
		edge := t[edgeID]
		subIDs := make([]string, 0, len(edge))
		for id := range edge {
			subIDs = append(subIDs, id)
		}
		sort.Strings(subIDs)
		for _, subID := range subIDs {
			defs = append(defs, SubEdgeDef{EdgeID: edgeID, SubEdgeID: subID, SubEdge: edge[subID]})
		}
	}
	return defs
}

// PortMapping is an external:internal port pair.
type PortMapping struct {
	External int `json:"external"`
	Internal int `json:"internal"`
}

// String renders the mapping as "external:internal".
func (m PortMapping) String() string {
	return fmt.Sprintf("%d:%d", m.External, m.Internal)
}

// Endpoint exposes a single target under an externally reachable name.
type Endpoint struct {
	Name   string      `json:"name"`
	Target string      `json:"target"`
	Port   PortMapping `json:"port"`
	Type   EdgeType    `json:"type"`
	TLS    *TLSConfig  `json:"tls,omitempty"`
}
