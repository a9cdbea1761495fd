// Package util reúne helpers chicos compartidos entre cmd y los paquetes
// internos.
package util

import "strings"

// MaskEmail ofusca un email para logs — acá se usa con el destinatario de
// alertas de operador en el arranque. Conserva la primera letra del usuario
// y del primer label del dominio; lo que no parece un email se reduce a
// primera y última letra.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		switch {
		case s == "":
			return ""
		case len(s) <= 3:
			return "***"
		default:
			return s[:1] + "…" + s[len(s)-1:]
		}
	}
	user, dom := s[:at], s[at+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	parts := strings.Split(dom, ".")
	if len(parts) > 0 && len(parts[0]) > 1 {
		parts[0] = parts[0][:1] + "…"
	}
	return user + "@" + strings.Join(parts, ".")
}
