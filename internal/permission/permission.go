// Package permission decides whether the camera may be started.
//
// The required set depends on the platform version: camera access is always
// needed, and read access to shared storage only on platforms older than
// LegacyStorageThreshold.
package permission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// LegacyStorageThreshold is the first platform version on which app-owned
// media directories no longer need ReadExternalStorage.
const LegacyStorageThreshold = 33

type Permission string

const (
	Camera              Permission = "CAMERA"
	ReadExternalStorage Permission = "READ_EXTERNAL_STORAGE"
)

var ErrPermissionDenied = errors.New("permission denied")

// DeniedError lists the permissions that were refused.
type DeniedError struct {
	Denied []Permission
}

func (e *DeniedError) Error() string {
	names := make([]string, len(e.Denied))
	for i, p := range e.Denied {
		names[i] = string(p)
	}
	return fmt.Sprintf("%s: %s", ErrPermissionDenied, strings.Join(names, ", "))
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }

// Required returns the permissions needed on the given platform version.
func Required(platformVersion int) []Permission {
	if platformVersion >= LegacyStorageThreshold {
		return []Permission{Camera}
	}
	return []Permission{Camera, ReadExternalStorage}
}

// Checker reports whether a permission is currently held.
type Checker interface {
	Granted(p Permission) bool
}

// Status is the outcome of a gate check.
type Status int

const (
	// Granted means every required permission is held; the camera may start.
	Granted Status = iota
	// NeedsRequest means at least one permission must be requested
	// interactively before the camera can start.
	NeedsRequest
)

// Gate evaluates the required permission set against a Checker.
type Gate struct {
	checker  Checker
	required []Permission
}

func NewGate(checker Checker, platformVersion int) *Gate {
	return &Gate{checker: checker, required: Required(platformVersion)}
}

// Required returns the permissions this gate insists on.
func (g *Gate) Required() []Permission {
	return append([]Permission(nil), g.required...)
}

// Check returns Granted when every required permission is already held, and
// otherwise NeedsRequest together with the missing permissions.
func (g *Gate) Check() (Status, []Permission) {
	var missing []Permission
	for _, p := range g.required {
		if !g.checker.Granted(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return Granted, nil
	}
	return NeedsRequest, missing
}

// Resolve evaluates the answers of an interactive request. A permission the
// checker already reports as held counts as granted; any other permission
// absent from results counts as denied. The returned error wraps
// ErrPermissionDenied.
func (g *Gate) Resolve(results map[Permission]bool) error {
	var denied []Permission
	for _, p := range g.required {
		if !results[p] && !g.checker.Granted(p) {
			denied = append(denied, p)
		}
	}
	if len(denied) == 0 {
		return nil
	}
	sort.Slice(denied, func(i, j int) bool { return denied[i] < denied[j] })
	return &DeniedError{Denied: denied}
}

// GrantAll builds a result map answering yes to every permission in ps.
func GrantAll(ps []Permission) map[Permission]bool {
	results := make(map[Permission]bool, len(ps))
	for _, p := range ps {
		results[p] = true
	}
	return results
}
