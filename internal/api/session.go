package api

import (
	"time"

	"stabledesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	SessionCookieName = "stabledesk_session"
	// SessionTable is created by the init migration.
	SessionTable = "tbl_session"
)

// NewSessionStore keeps operator sessions in storage. A nil storage keeps
// them in memory.
func NewSessionStore(storage fiber.Storage, cfg config.ServerConfig) *session.Store {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return session.New(session.Config{
		Storage:        storage,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.SessionCookieSecure || cfg.IsProduction(),
		CookieSameSite: "Strict",
		Expiration:     ttl,
	})
}
