package auth

import (
	"errors"
	"sync"
	"time"
)

var ErrNoSuchRequest = errors.New("no pending access request for that user")

// PendingRequest is one outstanding access request. At most one exists
// per user; a repeat request overwrites the earlier one.
type PendingRequest struct {
	UserID      string
	DisplayName string
	RequestedAt time.Time
}

// Approvals holds pending access requests in memory only. A restart
// implicitly denies everything outstanding; that is deliberate.
type Approvals struct {
	mu      sync.Mutex
	pending map[string]PendingRequest
	now     func() time.Time
}

func NewApprovals() *Approvals {
	return &Approvals{
		pending: make(map[string]PendingRequest),
		now:     time.Now,
	}
}

// Request records (or replaces) userID's pending request. The caller is
// responsible for notifying the admin.
func (a *Approvals) Request(userID, displayName string) PendingRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	req := PendingRequest{
		UserID:      userID,
		DisplayName: displayName,
		RequestedAt: a.now(),
	}
	a.pending[userID] = req
	return req
}

// Approve clears userID's pending request and returns it. It does not
// create a grant: the admin issues /grant with a duration as a separate
// step, which is why the consumed request is handed back to the caller.
func (a *Approvals) Approve(userID string) (PendingRequest, error) {
	return a.take(userID)
}

// Deny clears userID's pending request and returns it so the caller can
// notify the requester.
func (a *Approvals) Deny(userID string) (PendingRequest, error) {
	return a.take(userID)
}

func (a *Approvals) take(userID string) (PendingRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	req, ok := a.pending[userID]
	if !ok {
		return PendingRequest{}, ErrNoSuchRequest
	}
	delete(a.pending, userID)
	return req, nil
}

func (a *Approvals) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
