// Package timezone resolves a user's timezone and their local wall-clock time.
package timezone

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/hray3182/planbot/internal/models"
)

// DefaultZone is used for users who never chose a timezone.
const DefaultZone = "Europe/Moscow"

// ErrUnknownZone is returned for an identifier that is neither an IANA name
// nor a UTC offset.
var ErrUnknownZone = errors.New("timezone: unknown zone")

// Quick is a zone offered as a one-tap choice.
type Quick struct {
	Label string
	Zone  string
}

// QuickZones are offered when the user is asked for a timezone.
var QuickZones = []Quick{
	{Label: "Moscow", Zone: "Europe/Moscow"},
	{Label: "Yekaterinburg", Zone: "Asia/Yekaterinburg"},
	{Label: "Kaliningrad", Zone: "Europe/Kaliningrad"},
	{Label: "Samara", Zone: "Europe/Samara"},
	{Label: "Novosibirsk", Zone: "Asia/Novosibirsk"},
	{Label: "Vladivostok", Zone: "Asia/Vladivostok"},
}

var offsetRe = regexp.MustCompile(`^(?i)(?:UTC|GMT)\s*(?:([+-])\s*(\d{1,2})(?::?(\d{2}))?)?$`)

// Load parses an IANA name ("Asia/Yekaterinburg") or a UTC offset ("UTC+5",
// "UTC-03:30") and returns the location with its canonical identifier.
func Load(name string) (*time.Location, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}

	if m := offsetRe.FindStringSubmatch(name); m != nil {
		if m[1] == "" {
			return time.UTC, "UTC", nil
		}
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes >= 60 {
			return nil, "", fmt.Errorf("%w: offset out of range %q", ErrUnknownZone, name)
		}
		canonical := fmt.Sprintf("UTC%s%02d:%02d", m[1], hours, minutes)
		secs := hours*3600 + minutes*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone(canonical, secs), canonical, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	return loc, loc.String(), nil
}

// Store persists the userID -> zone mapping.
type Store interface {
	Get(userID int64) (string, bool)
	Set(ctx context.Context, userID int64, zone string)
}

// Resolver maps users to locations. Loaded locations are cached by name.
type Resolver struct {
	store       Store
	defaultName string

	mu    sync.Mutex
	cache map[string]*time.Location
}

// NewResolver returns a Resolver falling back to defaultZone, which must load.
func NewResolver(store Store, defaultZone string) (*Resolver, error) {
	if defaultZone == "" {
		defaultZone = DefaultZone
	}
	loc, name, err := Load(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone: %w", err)
	}
	return &Resolver{
		store:       store,
		defaultName: name,
		cache:       map[string]*time.Location{name: loc},
	}, nil
}

// Zone returns the user's timezone identifier, or the default.
func (r *Resolver) Zone(userID int64) string {
	if zone, ok := r.store.Get(userID); ok {
		return zone
	}
	return r.defaultName
}

// HasZone reports whether the user has chosen a timezone.
func (r *Resolver) HasZone(userID int64) bool {
	_, ok := r.store.Get(userID)
	return ok
}

// SetZone validates zone and stores its canonical form for the user.
func (r *Resolver) SetZone(ctx context.Context, userID int64, zone string) (string, error) {
	loc, name, err := Load(zone)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.cache[name] = loc
	r.mu.Unlock()

	r.store.Set(ctx, userID, name)
	return name, nil
}

// Location returns the user's location. A stored zone that no longer loads
// falls back to the default.
func (r *Resolver) Location(userID int64) *time.Location {
	name := r.Zone(userID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if loc, ok := r.cache[name]; ok {
		return loc
	}
	loc, _, err := Load(name)
	if err != nil {
		return r.cache[r.defaultName]
	}
	r.cache[name] = loc
	return loc
}

// LocalNow converts now to the user's wall-clock time in the floating form
// used by Plan.OccursAt.
func (r *Resolver) LocalNow(userID int64, now time.Time) time.Time {
	return models.Floating(now.In(r.Location(userID)))
}
