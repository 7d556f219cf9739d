// SPDX-License-Identifier: MIT
package daemon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Deps carries everything the lifecycle manager needs. Handlers are plain
// http.Handler values so the manager stays decoupled from the api package.
type Deps struct {
	Logger         zerolog.Logger
	APIHandler     http.Handler
	MetricsHandler http.Handler

	// TriggerRefresh starts one collection cycle. It must return false when
	// a cycle is already in flight.
	TriggerRefresh func(ctx context.Context) bool
}

// Validate checks that required dependencies are present.
func (d Deps) Validate() error {
	if d.APIHandler == nil {
		return fmt.Errorf("API handler is required")
	}
	if d.TriggerRefresh == nil {
		return fmt.Errorf("refresh trigger is required")
	}
	return nil
}
