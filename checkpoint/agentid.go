package checkpoint

import (
	"fmt"
	"regexp"

	"github.com/hupe1980/memora/core"
)

var agentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateAgentID rejects identities that are empty, too long or that could
// escape the storage directory when used as a file name.
func ValidateAgentID(agentID string) error {
	if !agentIDPattern.MatchString(agentID) || agentID == "." || agentID == ".." {
		return fmt.Errorf("%w: %q", core.ErrInvalidAgentID, agentID)
	}
	return nil
}
