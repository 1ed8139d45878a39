package service

// AuthorizeOwner allows a mutation only when the subject owns the post.
func AuthorizeOwner(subjectID, ownerID string) error {
	if subjectID == "" || subjectID != ownerID {
		return ErrForbidden
	}
	return nil
}
