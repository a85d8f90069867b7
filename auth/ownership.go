package auth

// RequireOwnership fails closed: it denies unless p is present and owns
// the resource. Call it after fetching the resource and before returning
// or changing it.
func RequireOwnership(p *Principal, ownerID string) error {
	if p == nil || p.ID == "" {
		return errUnauthenticated
	}
	if ownerID == "" || p.ID != ownerID {
		return errNotOwner
	}
	return nil
}

// RequirePrincipal denies anonymous callers.
func RequirePrincipal(p *Principal) error {
	if p == nil || p.ID == "" {
		return errUnauthenticated
	}
	return nil
}
