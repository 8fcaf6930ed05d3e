package federation

import (
	"strings"
	"time"

	"ringlink/pkg/types"
)

// Version is reported by the ping endpoint.
const Version = "1.0.0"

// PathPrefix is where every site mounts the federation endpoints.
const PathPrefix = "/ringlink/v1"

type JoinStatus string

const (
	JoinApproved      JoinStatus = "approved"
	JoinPending       JoinStatus = "pending"
	JoinAlreadyMember JoinStatus = "already_member"
)

// Membership values reported in a ring snapshot for the requesting site.
const (
	MembershipMember  = "member"
	MembershipPending = "pending"
	MembershipNone    = "none"
)

type PingResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	SiteName string `json:"site_name"`
}

type RingSnapshot struct {
	RingID  string         `json:"ring_id"`
	Name    string         `json:"name"`
	Type    types.RingType `json:"type"`
	Members []types.Member `json:"members"`
	Updated time.Time      `json:"updated"`
	// Membership is set when the request named a member url.
	Membership string `json:"membership,omitempty"`
}

type JoinRequest struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	PageURL string `json:"page_url"`
	Image   string `json:"image"`
	Excerpt string `json:"excerpt"`
	Secret  string `json:"secret"`
}

func (r JoinRequest) Identity() types.Identity {
	return types.Identity{
		URL:     r.URL,
		Name:    r.Name,
		PageURL: r.PageURL,
		Image:   r.Image,
		Excerpt: r.Excerpt,
	}.WithDefaults()
}

type JoinResponse struct {
	Status JoinStatus `json:"status"`
}

type RateRequest struct {
	TargetURL string `json:"target_url"`
	Rating    int    `json:"rating"`
	RaterURL  string `json:"rater_url"`
}

type RateResponse struct {
	Status string `json:"status"`
}

// ErrorBody is the error envelope of every federation endpoint
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func endpoint(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + PathPrefix + "/" + strings.Join(parts, "/")
}
