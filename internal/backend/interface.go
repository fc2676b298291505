package backend

import (
	"context"

	"fishbox/internal/ports"
)

// Repositories bundles the persistence collaborators of one backend.
type Repositories interface {
	ports.CatchRepository
	ports.SocialRepository
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is what a factory hands to the command wiring.
type Result struct {
	Repos   Repositories
	Cleanup CleanupFunc
	// Ping reports whether the backend can serve requests.
	Ping func(ctx context.Context) error
}

// Close runs Cleanup when one is set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type         Type
	SQLiteDBPath string
}

type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
