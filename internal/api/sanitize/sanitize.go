package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// Text strips any markup from user- or proxy-supplied strings. Logged URLs,
// methods and usernames end up rendered in the desktop admin view, so they
// must never carry live HTML.
func Text(input string) string {
	return getStrictPolicy().Sanitize(strings.TrimSpace(input))
}

func getStrictPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}
