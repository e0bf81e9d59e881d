package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Cookie is one record of a Cookie-Editor JSON export.
type Cookie struct {
	Domain         string  `json:"domain"`
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	ExpirationDate float64 `json:"expirationDate"`
}

// Credentials holds each user's cookies in memory. They are only ever
// written to disk for the duration of a single yt-dlp call.
type Credentials struct {
	mu     sync.Mutex
	byUser map[string][]Cookie
}

func NewCredentials() *Credentials {
	return &Credentials{byUser: make(map[string][]Cookie)}
}

// Set parses a Cookie-Editor JSON export and replaces userID's cookies.
// Returns the number of cookies stored.
func (c *Credentials) Set(userID string, raw []byte) (int, error) {
	var cookies []Cookie
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return 0, fmt.Errorf("invalid cookie JSON: %w", err)
	}
	if len(cookies) == 0 {
		return 0, fmt.Errorf("cookie export is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byUser[userID] = cookies
	return len(cookies), nil
}

func (c *Credentials) Get(userID string) ([]Cookie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cookies, ok := c.byUser[userID]
	return cookies, ok
}

// Clear removes userID's cookies, reporting whether any existed.
func (c *Credentials) Clear(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.byUser[userID]
	delete(c.byUser, userID)
	return ok
}

func (c *Credentials) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byUser)
}

// WriteCookieFile materializes cookies as a Netscape cookie file for
// yt-dlp. The returned cleanup must run on every exit path; it removes
// the file regardless of how the external call ended. With no cookies
// it returns an empty path and a no-op cleanup.
func WriteCookieFile(dir, name string, cookies []Cookie) (string, func(), error) {
	if len(cookies) == 0 {
		return "", func() {}, nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, ck := range cookies {
		domain := ck.Domain
		if domain == "" {
			domain = ".crunchyroll.com"
		}
		flag := "FALSE"
		if strings.HasPrefix(domain, ".") {
			flag = "TRUE"
		}
		path := ck.Path
		if path == "" {
			path = "/"
		}
		secure := "FALSE"
		if ck.Secure {
			secure = "TRUE"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			domain, flag, path, secure, int64(ck.ExpirationDate), ck.Name, ck.Value)
	}

	path := filepath.Join(dir, fmt.Sprintf("cookies_%s.txt", name))
	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}
