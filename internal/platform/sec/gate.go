// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Chapter Mutation Gate

// CanMutate reports whether actor may change or delete assets of a chapter
// uploaded by ownerID. Administrators pass unconditionally; everyone else
// must be the original uploader. A nil actor never passes.
func CanMutate(actor *AuthClaims, ownerID string) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || (ownerID != "" && actor.UserID == ownerID)
}
