// Package system provides the wall clock used outside of tests.
package system

import (
	"time"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

var _ llmstxt.Clock = (*Clock)(nil)

// Clock reports the current time in UTC so job timestamps and cache ages
// compare consistently across backends.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (*Clock) Now() time.Time {
	return time.Now().UTC()
}
