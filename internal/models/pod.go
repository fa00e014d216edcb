package models

// Node status values derived from the reported uptime.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// RawPod is a node descriptor exactly as reported by a seed's
// get-pods-with-stats call. Every field is optional on the wire.
type RawPod struct {
	Address             *string  `json:"address"`
	IsPublic            *bool    `json:"is_public"`
	LastSeenTimestamp   *int64   `json:"last_seen_timestamp"`
	Pubkey              *string  `json:"pubkey"`
	RPCPort             *int     `json:"rpc_port"`
	StorageCommitted    *int64   `json:"storage_committed"`
	StorageUsagePercent *float64 `json:"storage_usage_percent"`
	StorageUsed         *int64   `json:"storage_used"`
	Uptime              *int64   `json:"uptime"`
	Version             *string  `json:"version"`
}

// Node is the current persisted state of a fleet node, keyed by pubkey.
// An upsert replaces the whole row; fields absent from the latest raw
// record come back as NULL.
type Node struct {
	Pubkey              string   `json:"pubkey" db:"pubkey"`
	Address             string   `json:"address" db:"address"`
	Version             *string  `json:"version" db:"version"`
	Status              *string  `json:"status" db:"status"`
	LastSeen            *int64   `json:"lastSeen" db:"last_seen"`
	Uptime              *int64   `json:"uptime" db:"uptime"`
	IsPublic            *bool    `json:"isPublic" db:"is_public"`
	StorageUsed         *int64   `json:"storageUsed" db:"storage_used"`
	StorageCommitted    *int64   `json:"storageCommitted" db:"storage_committed"`
	StorageUsagePercent *float64 `json:"storageUsagePercent" db:"storage_usage_percent"`
	Credits             *int64   `json:"credits" db:"credits"`
	LatencyMs           *int64   `json:"latencyMs" db:"latency_ms"`
	Country             *string  `json:"country" db:"country"`
	City                *string  `json:"city" db:"city"`
	Latitude            *float64 `json:"lat" db:"lat"`
	Longitude           *float64 `json:"lon" db:"lon"`
}

// GeoData is the geographic enrichment attached to a node.
type GeoData struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Country   string  `json:"country"`
	City      string  `json:"city"`
}

// Geo flattens the node's geographic columns into a nested object, or nil
// when the node was never enriched.
func (n *Node) Geo() *GeoData {
	if n.Latitude == nil || n.Longitude == nil {
		return nil
	}
	geo := &GeoData{
		Latitude:  *n.Latitude,
		Longitude: *n.Longitude,
	}
	if n.Country != nil {
		geo.Country = *n.Country
	}
	if n.City != nil {
		geo.City = *n.City
	}
	return geo
}

// PodDto is the API representation of a node.
type PodDto struct {
	Pubkey              *string  `json:"pubkey"`
	Address             *string  `json:"address"`
	Uptime              *int64   `json:"uptime"`
	StorageUsed         *int64   `json:"storage_used"`
	StorageCommitted    *int64   `json:"storage_committed"`
	StorageUsagePercent *float64 `json:"storage_usage_percent"`
	Version             *string  `json:"version"`
	LastSeenTimestamp   *int64   `json:"last_seen_timestamp"`
	IsPublic            *bool    `json:"is_public"`
	Geo                 *GeoData `json:"geo"`
	LatencyMs           *int64   `json:"latency_ms"`
}

// PodsResponse is the envelope for the node list endpoint.
type PodsResponse struct {
	TotalCount int      `json:"total_count"`
	Pods       []PodDto `json:"pods"`
}

// ToDto maps a persisted node to its API shape.
func (n *Node) ToDto() PodDto {
	pubkey := n.Pubkey
	address := n.Address
	return PodDto{
		Pubkey:              &pubkey,
		Address:             &address,
		Uptime:              n.Uptime,
		StorageUsed:         n.StorageUsed,
		StorageCommitted:    n.StorageCommitted,
		StorageUsagePercent: n.StorageUsagePercent,
		Version:             n.Version,
		LastSeenTimestamp:   n.LastSeen,
		IsPublic:            n.IsPublic,
		Geo:                 n.Geo(),
		LatencyMs:           n.LatencyMs,
	}
}

// FleetSnapshot is one append-only aggregate row per refresh cycle.
type FleetSnapshot struct {
	ID           int64 `json:"-" db:"id"`
	Timestamp    int64 `json:"timestamp" db:"timestamp"`
	TotalNodes   int   `json:"total_nodes" db:"total_nodes"`
	OnlineNodes  int   `json:"online_nodes" db:"online_nodes"`
	TotalStorage int64 `json:"total_storage" db:"total_storage"`
}

// HistorySample is one append-only per-node observation per refresh cycle.
type HistorySample struct {
	ID        int64   `json:"-" db:"id"`
	Pubkey    string  `json:"-" db:"pubkey"`
	Timestamp int64   `json:"timestamp" db:"timestamp"`
	LatencyMs *int64  `json:"latency_ms" db:"latency_ms"`
	Status    *string `json:"status" db:"status"`
}
