// Package retrieval streams recording files off the remote share, as a single
// download or a zip archive built on the fly, gated by the sensitivity access
// policy.
package retrieval

import (
	"github.com/preepi/recordings/internal/domain/catalog"
	"github.com/preepi/recordings/internal/platform/auth"
)

// Permitted decides whether a principal may read a record. Non-sensitive
// modalities are readable by every authenticated user; sensitive ones
// (video, reports) require the elevated grant.
func Permitted(p *auth.Principal, m catalog.Modality) bool {
	if !m.Sensitive() {
		return true
	}
	return p != nil && p.CanAccessSensitive
}
