package posting

import (
	"fmt"
	"strings"

	"github.com/hera/finance/internal/domain/shared"
)

// SmartCode is a dotted, versioned classification string identifying a
// business event's type, e.g. "HERA.ERP.SD.Invoice.Posted.v1".
// Segment index 2 names the owning module (SD, MM, HR, or an app-specific
// namespace) and drives module-activation gating.
type SmartCode string

// moduleSegmentIndex is the 0-indexed position of the owning module
const moduleSegmentIndex = 2

// minSegments is the minimum number of dotted segments a smart code must
// have to carry a module and a version suffix
const minSegments = 4

// Validate checks the structural shape of the smart code
func (c SmartCode) Validate() error {
	segs := c.Segments()
	if len(segs) < minSegments {
		return shared.NewDomainError("INVALID_SMART_CODE",
			fmt.Sprintf("smart code %q must have at least %d dotted segments", c, minSegments))
	}
	for _, s := range segs {
		if s == "" {
			return shared.NewDomainError("INVALID_SMART_CODE",
				fmt.Sprintf("smart code %q contains an empty segment", c))
		}
	}
	if !strings.HasPrefix(segs[len(segs)-1], "v") {
		return shared.NewDomainError("INVALID_SMART_CODE",
			fmt.Sprintf("smart code %q is missing a version suffix", c))
	}
	return nil
}

// Segments returns the dotted segments of the code
func (c SmartCode) Segments() []string {
	if c == "" {
		return nil
	}
	return strings.Split(string(c), ".")
}

// Module returns the owning module code (segment index 2), or an empty
// string when the code is too short to carry one
func (c SmartCode) Module() string {
	segs := c.Segments()
	if len(segs) <= moduleSegmentIndex {
		return ""
	}
	return segs[moduleSegmentIndex]
}

// Version returns the trailing version segment (e.g. "v1")
func (c SmartCode) Version() string {
	segs := c.Segments()
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// String returns the string representation
func (c SmartCode) String() string {
	return string(c)
}
