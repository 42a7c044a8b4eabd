package middleware

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
)

// SubdomainRewrite rewrites tenant-portal requests addressed as
// {company}.{baseDomain} onto the path-based internal route
// /company/{subdomain}{path}. Requests without a recognized subdomain
// label pass through unchanged. Register it with e.Pre so the rewrite
// happens before routing.
func SubdomainRewrite(baseDomain string) echo.MiddlewareFunc {
	baseDomain = strings.ToLower(baseDomain)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host := hostWithoutPort(c.Request().Host)
			label, ok := subdomainLabel(host, baseDomain)
			if !ok {
				return next(c)
			}

			req := c.Request()
			path := req.URL.Path
			if path == "/" {
				path = ""
			}
			req.URL.Path = "/company/" + label + path

			return next(c)
		}
	}
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.ToLower(h)
	}
	return strings.ToLower(host)
}

// subdomainLabel extracts the tenant label from host. The apex domain,
// www, bare IPs and multi-level labels are not tenant portals.
func subdomainLabel(host, baseDomain string) (string, bool) {
	if host == baseDomain || net.ParseIP(host) != nil {
		return "", false
	}
	if !strings.HasSuffix(host, "."+baseDomain) {
		return "", false
	}
	label := strings.TrimSuffix(host, "."+baseDomain)
	if label == "" || label == "www" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}
