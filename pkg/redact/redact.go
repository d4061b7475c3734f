// Reddit-scheduler is a service that submits scheduled posts to Reddit.
// Copyright (C) 2026 Reddit-scheduler contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package redact masks credentials before they reach logs or terminal
// output.
package redact

import "strings"

// Secret redacts an API identifier for display. Empty strings return
// empty. Short strings (<=4 chars) return "****". Longer strings show the
// first 2 and last 2 characters with asterisks in between.
func Secret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

// Password always returns "[REDACTED]" for any non-empty password, so no
// password information leaks regardless of length.
func Password(password string) string {
	if password == "" {
		return ""
	}
	return "[REDACTED]"
}
