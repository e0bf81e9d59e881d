// Package auth owns the bot's access-control state: the sudo grant
// table, the per-guild allow-list, and the pending access requests.
// Each table sits behind its own mutex and persists itself on mutation.
package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"crunchbot/internal/config"
	"crunchbot/internal/store"
)

var ErrInvalidDuration = errors.New("invalid duration format, use e.g. 12h, 3d, 2w, 1m, 1y or permanent")

var durationRe = regexp.MustCompile(`^([1-9]\d*)([hdwmy])$`)

// ParseDuration parses a grant duration spec. The "permanent" sentinel
// returns permanent=true with a zero duration. Month and year are fixed
// 30/365-day approximations (see config.DurationUnits).
func ParseDuration(spec string) (time.Duration, bool, error) {
	if spec == "permanent" {
		return 0, true, nil
	}
	m := durationRe.FindStringSubmatch(spec)
	if m == nil {
		return 0, false, ErrInvalidDuration
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false, ErrInvalidDuration
	}
	return time.Duration(n*config.DurationUnits[m[2]]) * time.Second, false, nil
}

type grantState int

const (
	grantActive grantState = iota
	grantExpired
)

// stateAt is the pure expiry decision. The deleting side effect lives in
// Allows so the two are testable independently.
func stateAt(expiry *time.Time, now time.Time) grantState {
	if expiry == nil || now.Before(*expiry) {
		return grantActive
	}
	return grantExpired
}

type GrantInfo struct {
	UserID    string
	Remaining string
}

// Grants is the sudo table: user id -> optional expiry. The admin has an
// implicit permanent grant that is never stored and never removable.
type Grants struct {
	mu    sync.Mutex
	admin string
	path  string
	set   map[string]*time.Time
	now   func() time.Time
}

func NewGrants(admin, path string) (*Grants, error) {
	g := &Grants{
		admin: admin,
		path:  path,
		set:   make(map[string]*time.Time),
		now:   time.Now,
	}
	raw := map[string]*int64{}
	if err := store.Load(path, &raw); err != nil {
		return nil, err
	}
	for id, epoch := range raw {
		if epoch == nil {
			g.set[id] = nil
			continue
		}
		t := time.Unix(*epoch, 0)
		g.set[id] = &t
	}
	return g, nil
}

// Allows reports whether userID holds an active grant. An expired grant
// is deleted on this read and persisted (lazy expiry, no sweeper).
func (g *Grants) Allows(userID string) bool {
	if userID == g.admin {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.set[userID]
	if !ok {
		return false
	}
	if stateAt(expiry, g.now()) == grantExpired {
		delete(g.set, userID)
		g.persistLocked()
		return false
	}
	return true
}

// Grant stores (or overwrites) a grant for userID and persists the table.
// A persistence failure is logged but the in-memory grant stays active.
func (g *Grants) Grant(userID, spec string) (GrantInfo, error) {
	d, permanent, err := ParseDuration(spec)
	if err != nil {
		return GrantInfo{}, err
	}
	if userID == g.admin {
		// The admin's grant is implicit; nothing to store.
		return GrantInfo{UserID: userID, Remaining: "Permanent"}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var expiry *time.Time
	if !permanent {
		t := g.now().Add(d)
		expiry = &t
	}
	g.set[userID] = expiry
	g.persistLocked()
	return GrantInfo{UserID: userID, Remaining: remainingDisplay(expiry, g.now())}, nil
}

// Revoke removes userID's grant. Returns false for the admin or for a
// user without a grant, leaving the table untouched.
func (g *Grants) Revoke(userID string) bool {
	if userID == g.admin {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.set[userID]; !ok {
		return false
	}
	delete(g.set, userID)
	g.persistLocked()
	return true
}

// List returns the current grants ordered by user id. Listing never
// triggers lazy deletion, so an expired-but-unread grant shows as
// "Expired" rather than disappearing.
func (g *Grants) List() []GrantInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	out := make([]GrantInfo, 0, len(g.set))
	for id, expiry := range g.set {
		out = append(out, GrantInfo{UserID: id, Remaining: remainingDisplay(expiry, now)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.ParseUint(out[i].UserID, 10, 64)
		b, errB := strconv.ParseUint(out[j].UserID, 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Remaining reports the display string for a single user, or "" when no
// grant exists. The admin always reads as Permanent.
func (g *Grants) Remaining(userID string) string {
	if userID == g.admin {
		return "Permanent"
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	expiry, ok := g.set[userID]
	if !ok {
		return ""
	}
	return remainingDisplay(expiry, g.now())
}

func (g *Grants) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.set)
}

func remainingDisplay(expiry *time.Time, now time.Time) string {
	if expiry == nil {
		return "Permanent"
	}
	left := expiry.Sub(now)
	if left <= 0 {
		return "Expired"
	}
	days := int(left.Hours()) / 24
	hours := int(left.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

func (g *Grants) persistLocked() {
	raw := make(map[string]*int64, len(g.set))
	for id, expiry := range g.set {
		if expiry == nil {
			raw[id] = nil
			continue
		}
		epoch := expiry.Unix()
		raw[id] = &epoch
	}
	if err := store.Save(g.path, raw); err != nil {
		log.Printf("[Auth] Failed to persist grants: %v", err)
	}
}
