package proxy

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/bluetide-io/bluetide/pkg/types"
)

// domainTemplate renders a name-based virtual host. Caddy acquires and
// renews the certificate for the domain on its own; the headers are the
// baseline security set.
const domainTemplate = `{{.Domain}} {
	reverse_proxy localhost:{{.Port}}

	header {
		Strict-Transport-Security "max-age=31536000; includeSubDomains"
		X-Content-Type-Options "nosniff"
		X-Frame-Options "DENY"
		Referrer-Policy "strict-origin-when-cross-origin"
		-Server
	}

	encode gzip
}
`

// plainTemplate is the HTTP-only listener used when no domain is configured
const plainTemplate = `:80 {
	reverse_proxy localhost:{{.Port}}
}
`

type caddyfileData struct {
	Domain string
	Port   int
}

// renderCaddyfile generates the proxy configuration for a target with the
// routing fact pointing at the given port.
func renderCaddyfile(t types.Target, port int) (string, error) {
	text := plainTemplate
	if t.Domain != "" {
		text = domainTemplate
	}

	tmpl, err := template.New("caddyfile").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse caddyfile template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, caddyfileData{Domain: t.Domain, Port: port}); err != nil {
		return "", fmt.Errorf("failed to render caddyfile: %w", err)
	}
	return buf.String(), nil
}
