package auth

import (
	"log"
	"sort"
	"strconv"
	"sync"

	"crunchbot/internal/store"
)

// Guilds is the allow-list of servers where the bot will act. Guild ids
// are Discord snowflakes (decimal strings) in memory and integers in the
// persisted document. The list only grows; there is no remove command.
type Guilds struct {
	mu   sync.Mutex
	path string
	set  map[string]struct{}
}

func NewGuilds(path string) (*Guilds, error) {
	g := &Guilds{
		path: path,
		set:  make(map[string]struct{}),
	}
	var raw []int64
	if err := store.Load(path, &raw); err != nil {
		return nil, err
	}
	for _, id := range raw {
		g.set[strconv.FormatInt(id, 10)] = struct{}{}
	}
	return g, nil
}

// Authorize adds guildID to the allow-list and persists. Adding an
// already-listed guild is a no-op and reports false.
func (g *Guilds) Authorize(guildID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.set[guildID]; ok {
		return false
	}
	g.set[guildID] = struct{}{}
	g.persistLocked()
	return true
}

func (g *Guilds) Contains(guildID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.set[guildID]
	return ok
}

func (g *Guilds) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.set)
}

func (g *Guilds) persistLocked() {
	raw := make([]int64, 0, len(g.set))
	for id := range g.set {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			log.Printf("[Auth] Skipping non-numeric guild id %q", id)
			continue
		}
		raw = append(raw, n)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })
	if err := store.Save(g.path, raw); err != nil {
		log.Printf("[Auth] Failed to persist authorized guilds: %v", err)
	}
}

// Authorizer answers the one question handlers ask: may this user run a
// protected command here. In a guild context the guild must be
// allow-listed first; that gate applies to every user, admin included,
// so the bot can't be used from unsanctioned servers.
type Authorizer struct {
	Grants *Grants
	Guilds *Guilds
}

func (a *Authorizer) IsAuthorized(userID, guildID string) bool {
	if guildID != "" && !a.Guilds.Contains(guildID) {
		return false
	}
	return a.Grants.Allows(userID)
}
