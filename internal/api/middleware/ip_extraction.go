package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetClientIP resuelve la IP real detrás de proxies y CDN, en orden de
// confianza: Cloudflare, X-Forwarded-For, X-Real-IP y por último la conexión.
func GetClientIP(c *gin.Context) string {
	if ip := c.GetHeader("CF-Connecting-IP"); ip != "" {
		if validIP := validateIP(ip); validIP != "" {
			return validIP
		}
	}

	if ips := c.GetHeader("X-Forwarded-For"); ips != "" {
		for _, part := range strings.Split(ips, ",") {
			if validIP := validateIP(strings.TrimSpace(part)); validIP != "" {
				return validIP
			}
		}
	}

	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		if validIP := validateIP(ip); validIP != "" {
			return validIP
		}
	}

	return c.ClientIP()
}

func validateIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	// descartar el puerto si vino como host:port
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

var privateNetworks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"::1/128",
		"fc00::/7",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range privateNetworks {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}
