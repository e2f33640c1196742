// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

import (
	"errors"
	"fmt"
)

// ErrWidthMismatch is wrapped when a vector does not match a transform's width.
var ErrWidthMismatch = errors.New("vector width mismatch")

// ConfigError reports a filter or transform parameter that cannot work
// with the data it is applied to.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("features config %s: %s", e.Param, e.Reason)
}
