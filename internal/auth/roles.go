package auth

import (
	"strings"

	"github.com/higher-endeavors/endeavors/internal/app/domain/user"
)

// AdminAllowlist holds the emails promoted to admin on sign-in.
type AdminAllowlist map[string]bool

func NewAdminAllowlist(emails []string) AdminAllowlist {
	a := make(AdminAllowlist, len(emails))
	for _, e := range emails {
		if e = user.NormalizeEmail(e); e != "" {
			a[e] = true
		}
	}
	return a
}

func (a AdminAllowlist) Contains(email string) bool {
	return a[user.NormalizeEmail(email)]
}

// SafeRedirect keeps post-sign-in redirects on this site: only absolute
// paths are allowed, anything else becomes "/".
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
