package protocol

import (
	"time"

	"ringlink/pkg/types"
)

type Empty struct{}

type CreateRingRequest struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Type   types.RingType `json:"type"`
	Secret string         `json:"secret,omitempty"`
}

type RingRequest struct {
	RingID string `json:"ring_id"`
}

type RingResponse struct {
	Ring *types.HostedRing `json:"ring"`
}

type ListRingsResponse struct {
	Rings []*types.HostedRing `json:"rings"`
}

// MemberRequest names one member or pending request of a hosted ring
type MemberRequest struct {
	RingID string `json:"ring_id"`
	URL    string `json:"url"`
}

type AddMemberRequest struct {
	RingID string         `json:"ring_id"`
	Member types.Identity `json:"member"`
}

type JoinRingRequest struct {
	HostURL string `json:"host_url"`
	RingID  string `json:"ring_id"`
	Secret  string `json:"secret,omitempty"`
}

type JoinRingResponse struct {
	Ring   *types.JoinedRing `json:"ring"`
	Status string            `json:"status"`
}

type JoinedRequest struct {
	Key string `json:"key"`
}

type ListJoinedResponse struct {
	Rings []*types.JoinedRing `json:"rings"`
}

// SyncNowRequest syncs one joined ring, or all of them when Key is empty
type SyncNowRequest struct {
	Key string `json:"key,omitempty"`
}

type SyncNowResponse struct {
	Rings  int `json:"rings"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

type HealthCheckResponse struct {
	Rings     int `json:"rings"`
	Probed    int `json:"probed"`
	Failed    int `json:"failed"`
	Died      int `json:"died"`
	Recovered int `json:"recovered"`
}

type RateRequest struct {
	RingID    string `json:"ring_id"`
	TargetURL string `json:"target_url"`
	Rating    int    `json:"rating"`
}

type SiteMessage struct {
	Site types.Identity `json:"site"`
}

type DisplayMessage struct {
	Display types.DisplaySettings `json:"display"`
}

type StatusResponse struct {
	Version         string         `json:"version"`
	Site            types.Identity `json:"site"`
	StorageBackend  string         `json:"storage_backend"`
	HTTPAddress     string         `json:"http_address"`
	HostedRings     int            `json:"hosted_rings"`
	JoinedRings     int            `json:"joined_rings"`
	Members         int            `json:"members"`
	DeadMembers     int            `json:"dead_members"`
	PendingRequests int            `json:"pending_requests"`
	ProbedSites     int            `json:"probed_sites"`
	StartedAt       time.Time      `json:"started_at"`
	LastHealthCheck time.Time      `json:"last_health_check"`
	LastSync        time.Time      `json:"last_sync"`
}
