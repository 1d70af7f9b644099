package redis

import "strings"

// Keyspace namespaces every key the portal writes.
type Keyspace string

const DefaultKeyspace Keyspace = "portal"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
)

// Key joins the non-empty parts under the namespace.
func (k Keyspace) Key(parts ...string) string {
	root := string(k)
	if root == "" {
		root = string(DefaultKeyspace)
	}
	var b strings.Builder
	b.WriteString(root)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.Key(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.keys.Key(rateLimitPrefix, scope)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return c.keys.Key(sessionPrefix, "access", accessID)
}
