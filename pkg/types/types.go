package types

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

type RingType string

const (
	RingOpen      RingType = "open"
	RingModerated RingType = "moderated"
	RingPrivate   RingType = "private"
	RingCurated   RingType = "curated"
)

// Valid reports whether t is one of the known admission policies
func (t RingType) Valid() bool {
	switch t {
	case RingOpen, RingModerated, RingPrivate, RingCurated:
		return true
	}
	return false
}

type MemberStatus string

const (
	StatusActive MemberStatus = "active"
	StatusDead   MemberStatus = "dead"
)

var ringIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidRingID reports whether id is usable as a ring id in federation URLs
func ValidRingID(id string) bool {
	return ringIDPattern.MatchString(id)
}

// Identity is the profile a site publishes about itself. URL is the
// canonical identity and the dedup key inside a ring.
type Identity struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	PageURL string `json:"page_url"`
	Image   string `json:"image,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

// WithDefaults returns a copy with PageURL falling back to URL
func (i Identity) WithDefaults() Identity {
	if i.PageURL == "" {
		i.PageURL = i.URL
	}
	return i
}

type Member struct {
	Identity
	Joined  time.Time      `json:"joined"`
	Status  MemberStatus   `json:"status"`
	Fails   int            `json:"fails"`
	Ratings map[string]int `json:"ratings"`
}

// NewMember builds an active member with no failures and no ratings
func NewMember(id Identity, joined time.Time) Member {
	return Member{
		Identity: id.WithDefaults(),
		Joined:   joined,
		Status:   StatusActive,
		Ratings:  make(map[string]int),
	}
}

// IsDead treats an empty status as active, matching mirrors synced from
// hosts that never probed the member.
func (m Member) IsDead() bool {
	return m.Status == StatusDead
}

// AverageRating is the mean of all ratings rounded to one decimal, 0 when
// nobody rated the member yet.
func (m Member) AverageRating() float64 {
	if len(m.Ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range m.Ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(m.Ratings))
	return math.Round(avg*10) / 10
}

type PendingRequest struct {
	Identity
	Joined time.Time `json:"joined"`
}

type HostedRing struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Type    RingType         `json:"type"`
	Secret  string           `json:"secret,omitempty"`
	Members []Member         `json:"members"`
	Pending []PendingRequest `json:"pending"`
	Created time.Time        `json:"created"`
	Updated time.Time        `json:"updated"`
}

// MemberIndex returns the position of the member with url, or -1
func (r *HostedRing) MemberIndex(url string) int {
	for i := range r.Members {
		if r.Members[i].URL == url {
			return i
		}
	}
	return -1
}

// PendingIndex returns the position of the pending request with url, or -1
func (r *HostedRing) PendingIndex(url string) int {
	for i := range r.Pending {
		if r.Pending[i].URL == url {
			return i
		}
	}
	return -1
}

// HasURL reports whether url is already known to the ring, either as a
// member or as a pending request.
func (r *HostedRing) HasURL(url string) bool {
	return r.MemberIndex(url) >= 0 || r.PendingIndex(url) >= 0
}

// ActiveCount returns the number of members not marked dead
func (r *HostedRing) ActiveCount() int {
	n := 0
	for _, m := range r.Members {
		if !m.IsDead() {
			n++
		}
	}
	return n
}

// JoinedRing is a local mirror of a ring hosted by another site.
type JoinedRing struct {
	Key      string    `json:"key"`
	HostURL  string    `json:"host_url"`
	RingID   string    `json:"ring_id"`
	Name     string    `json:"name"`
	Secret   string    `json:"secret,omitempty"`
	Members  []Member  `json:"members"`
	LastSync time.Time `json:"last_sync"`
	Pending  bool      `json:"pending"`
}

// JoinedKey derives the storage key of a mirror from the host and the
// remote ring id, so joining the same ring twice lands on one record.
func JoinedKey(hostURL, ringID string) string {
	host := strings.TrimRight(hostURL, "/")
	return fmt.Sprintf("%016x", xxh3.HashString(host+"\x00"+ringID))
}

type DisplayMode string

const (
	ModeCarousel  DisplayMode = "carousel"
	ModeLive      DisplayMode = "live"
	ModeDirectory DisplayMode = "directory"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type Width string

const (
	WidthCompact Width = "compact"
	WidthFull    Width = "full"
)

// DisplaySettings are the site-wide defaults for ring widgets.
type DisplaySettings struct {
	Mode  DisplayMode `json:"mode"`
	Theme Theme       `json:"theme"`
	Width Width       `json:"width"`
}

func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{Mode: ModeCarousel, Theme: ThemeLight, Width: WidthCompact}
}

// Validate rejects values outside the known enumerations. Empty fields are
// allowed and mean "use the default".
func (d DisplaySettings) Validate() error {
	switch d.Mode {
	case "", ModeCarousel, ModeLive, ModeDirectory:
	default:
		return fmt.Errorf("unknown display mode %q", d.Mode)
	}
	switch d.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("unknown theme %q", d.Theme)
	}
	switch d.Width {
	case "", WidthCompact, WidthFull:
	default:
		return fmt.Errorf("unknown width %q", d.Width)
	}
	return nil
}

// Merge overlays the non-empty fields of o on top of d
func (d DisplaySettings) Merge(o DisplaySettings) DisplaySettings {
	if o.Mode != "" {
		d.Mode = o.Mode
	}
	if o.Theme != "" {
		d.Theme = o.Theme
	}
	if o.Width != "" {
		d.Width = o.Width
	}
	return d
}
