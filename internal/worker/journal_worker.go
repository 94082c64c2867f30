package worker

import (
	"github.com/spec-kit/astro-gateway/internal/service"
)

// StartJournalWorker registers the journal's event handlers. A disabled
// journal registers nothing.
func StartJournalWorker(journal *service.JournalService) {
	if !journal.Enabled() {
		return
	}
	journal.RegisterHandlers()
}
