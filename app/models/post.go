package models

// SlugString returns the current slug value.
func (p *Post) SlugString() string {
	return p.Slug.Current
}

// AuthorName returns the author's name, or an empty string for unattributed posts.
func (p *Post) AuthorName() string {
	return p.Author.Name
}

// ApprovedComments returns the comments whose approval flag is set.
func (p *Post) ApprovedComments() []Comment {
	approved := make([]Comment, 0, len(p.Comments))
	for _, c := range p.Comments {
		if c.Approved {
			approved = append(approved, c)
		}
	}
	return approved
}
