// SPDX-License-Identifier: MIT
package daemon

import "errors"

// ErrManagerNotStarted is returned by Shutdown when Start was never called.
var ErrManagerNotStarted = errors.New("daemon manager not started")
