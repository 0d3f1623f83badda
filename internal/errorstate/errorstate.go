// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package errorstate holds the last-operation error code/message pair the
// Facade exposes alongside its return values. The Facade keeps two
// independent States — one for store/lock operations, one for the TTL
// namespace — since a failing TTL call must not clobber the error a caller
// is still inspecting from an unrelated store call.
package errorstate

import (
	"sync"

	"github.com/streamdps/dps/pkg/errors"
)

// State holds the most recent operation's outcome.
type State struct {
	mu      sync.RWMutex
	code    string
	message string
}

// New returns a State with no recorded error.
func New() *State {
	return &State{}
}

// Begin clears the state; every public operation calls this first, so a
// prior failure never leaks into the result of an unrelated later call.
func (s *State) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = ""
	s.message = ""
}

// Record stores err's code/message, or clears the state if err is nil.
func (s *State) Record(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.code = ""
		s.message = ""
		return
	}
	if dpsErr, ok := err.(*errors.Error); ok {
		s.code = dpsErr.Code
		s.message = dpsErr.Message
		return
	}
	s.code = "DL_UNKNOWN_ERROR"
	s.message = err.Error()
}

// Last returns the most recently recorded code/message, ("", "") if the
// last operation succeeded.
func (s *State) Last() (code, message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code, s.message
}

// HasError reports whether the last recorded operation failed.
func (s *State) HasError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code != ""
}
