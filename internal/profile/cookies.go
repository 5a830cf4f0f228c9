package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// browserCookie is one entry of a browser extension's JSON cookie export.
type browserCookie struct {
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	ExpirationDate *float64 `json:"expirationDate"`
	Expiry         *float64 `json:"expiry"`
	Name           string   `json:"name"`
	Value          string   `json:"value"`
}

// SetupCookies writes one cookie file per profile tag under dir. JSON cookie
// exports are converted to Netscape format; anything else is written as-is.
// Blank material is skipped. Conversion failures fall back to the raw content
// so a half-usable file still beats none.
func SetupCookies(dir string, material map[string]string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cookies dir: %w", err)
	}
	for tag, content := range material {
		content = strings.TrimSpace(content)
		if len(content) <= 10 {
			continue
		}

		final := content
		if strings.HasPrefix(content, "[") || strings.HasPrefix(content, "{") {
			converted, err := jsonToNetscape(content)
			if err != nil {
				logger.Error("cookie conversion failed",
					slog.String("profile", tag),
					slog.String("error", err.Error()),
				)
			} else {
				final = converted
				logger.Info("converted JSON cookies to Netscape format", slog.String("profile", tag))
			}
		}

		path := filepath.Join(dir, tag+".txt")
		if err := os.WriteFile(path, []byte(final), 0o600); err != nil {
			return fmt.Errorf("write cookies for %s: %w", tag, err)
		}
	}
	return nil
}

func jsonToNetscape(content string) (string, error) {
	var cookies []browserCookie
	if strings.HasPrefix(content, "{") {
		var single browserCookie
		if err := json.Unmarshal([]byte(content), &single); err != nil {
			return "", err
		}
		cookies = []browserCookie{single}
	} else if err := json.Unmarshal([]byte(content), &cookies); err != nil {
		return "", err
	}

	lines := []string{"# Netscape HTTP Cookie File"}
	for _, c := range cookies {
		flag := "FALSE"
		if strings.HasPrefix(c.Domain, ".") {
			flag = "TRUE"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		var exp int64
		if c.ExpirationDate != nil {
			exp = int64(*c.ExpirationDate)
		} else if c.Expiry != nil {
			exp = int64(*c.Expiry)
		}
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s",
			c.Domain, flag, path, secure, exp, c.Name, c.Value))
	}
	return strings.Join(lines, "\n"), nil
}
