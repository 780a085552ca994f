package middleware

import tele "gopkg.in/telebot.v4"

// IsAdminKey names the context flag set by ResolveRole.
const IsAdminKey = "is_admin"

// ResolveRole stamps each update with whether the sender is a configured
// admin. Authorization decisions stay in the workflow layer; this only
// resolves the identity once per update.
func ResolveRole(adminIDs []int64) tele.MiddlewareFunc {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			isAdmin := false
			if sender := c.Sender(); sender != nil {
				_, isAdmin = admins[sender.ID]
			}
			c.Set(IsAdminKey, isAdmin)
			return next(c)
		}
	}
}
