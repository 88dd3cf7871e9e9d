// Package quota enforces the byte budgets of a run: a per-file cap, a running
// total of bytes written to the local folder, and the live size of the
// remote archive folder.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// ErrExceeded is wrapped by every budget violation
var ErrExceeded = errors.New("quota exceeded")

// Budget names used in errors and log fields
const (
	BudgetFile   = "file_size"
	BudgetLocal  = "local_folder_size"
	BudgetRemote = "remote_folder_size"
)

// RemoteSizer reports the current size of the remote folder
type RemoteSizer interface {
	FolderSize(ctx context.Context, remotePath string) (int64, error)
}

// Limits holds the byte budgets. Zero means unlimited.
type Limits struct {
	FileSize         int64
	LocalFolderSize  int64
	RemoteFolderSize int64
}

// ExceededError describes which budget an item would break
type ExceededError struct {
	Budget string
	Used   int64
	Size   int64
	Limit  int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %s + %s > %s", e.Budget,
		humanize.IBytes(uint64(e.Used)), humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

func (e *ExceededError) Unwrap() error {
	return ErrExceeded
}

// Guards checks items against the limits. It is safe for concurrent use.
type Guards struct {
	limits     Limits
	remote     RemoteSizer
	remotePath string

	localUsed atomic.Int64
	// reserveMu serializes check-and-reserve on the local counter
	reserveMu sync.Mutex
	reserved  int64
}

// NewGuards creates guards for one run. remote may be nil when archiving is disabled.
func NewGuards(limits Limits, remote RemoteSizer, remotePath string) *Guards {
	return &Guards{limits: limits, remote: remote, remotePath: remotePath}
}

// Limits returns the configured budgets
func (g *Guards) Limits() Limits {
	return g.limits
}

// CheckFile rejects items larger than the per-file cap
func (g *Guards) CheckFile(size int64) error {
	if g.limits.FileSize > 0 && size > g.limits.FileSize {
		return &ExceededError{Budget: BudgetFile, Size: size, Limit: g.limits.FileSize}
	}
	return nil
}

// ReserveLocal claims size bytes of the local budget for an in-flight
// download. Every successful reservation must be followed by CommitLocal or
// ReleaseLocal.
func (g *Guards) ReserveLocal(size int64) error {
	g.reserveMu.Lock()
	defer g.reserveMu.Unlock()

	used := g.localUsed.Load() + g.reserved
	if g.limits.LocalFolderSize > 0 && used+size > g.limits.LocalFolderSize {
		return &ExceededError{Budget: BudgetLocal, Used: used, Size: size, Limit: g.limits.LocalFolderSize}
	}
	g.reserved += size
	return nil
}

// CommitLocal turns a reservation of reserved bytes into written bytes
func (g *Guards) CommitLocal(reserved, written int64) {
	g.reserveMu.Lock()
	g.reserved -= reserved
	g.reserveMu.Unlock()
	g.localUsed.Add(written)
}

// ReleaseLocal drops a reservation after a failed download
func (g *Guards) ReleaseLocal(reserved int64) {
	g.reserveMu.Lock()
	g.reserved -= reserved
	g.reserveMu.Unlock()
}

// LocalUsed returns the bytes written to the local folder during this run
func (g *Guards) LocalUsed() int64 {
	return g.localUsed.Load()
}

// CheckRemote queries the remote folder size and rejects size if it would
// not fit. The size is queried on every call and never cached.
func (g *Guards) CheckRemote(ctx context.Context, size int64) error {
	if g.limits.RemoteFolderSize <= 0 || g.remote == nil {
		return nil
	}
	used, err := g.remote.FolderSize(ctx, g.remotePath)
	if err != nil {
		return fmt.Errorf("failed to query remote folder size: %w", err)
	}
	if used+size > g.limits.RemoteFolderSize {
		return &ExceededError{Budget: BudgetRemote, Used: used, Size: size, Limit: g.limits.RemoteFolderSize}
	}
	return nil
}
