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

package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecret(t *testing.T) {
	assert.Equal(t, "", Secret(""))
	assert.Equal(t, "****", Secret("abc"))
	assert.Equal(t, "****", Secret("abcd"))
	assert.Equal(t, "ab*56", Secret("ab456"))
	assert.Equal(t, "ab********34", Secret("abcdefghij34"))
}

func TestPassword(t *testing.T) {
	assert.Equal(t, "", Password(""))
	assert.Equal(t, "[REDACTED]", Password("hunter2"))
}
