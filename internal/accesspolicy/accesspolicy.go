// Package accesspolicy holds the pure authorization decisions consulted by
// the HTTP handlers: link visibility, link ownership and admin gating.
// A false answer is terminal for the request; handlers answer 403.
package accesspolicy

import "github.com/patric-chuzhbe/linknest/internal/auth"

// CanReadLink reports whether viewer may read a link owned by
// ownerUsername. The owner always may, regardless of visibility; everyone
// else (including the anonymous zero Identity) only when the owner's
// profile is public.
func CanReadLink(viewer auth.Identity, ownerUsername string, ownerIsPublic bool) bool {
	return viewer.Username == ownerUsername || ownerIsPublic
}

// CanMutateLink reports whether actor may update or delete a link owned by
// ownerUsername. Only the exact owner may; there is no admin override for
// resource mutation - admins manage users, not other users' links.
func CanMutateLink(actor auth.Identity, ownerUsername string) bool {
	return actor.Username != "" && actor.Username == ownerUsername
}

// IsAdmin reports whether actor carries the admin claim.
func IsAdmin(actor auth.Identity) bool {
	return actor.IsAdmin
}
