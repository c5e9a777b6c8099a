package model

// Profile is the normalized applicant field mapping evaluated against
// grant rules. Values are already canonicalized by the normalizer.
type Profile map[string]any

// Has reports whether the profile carries a non-nil value for key.
func (p Profile) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Tags returns the caller-supplied relevance tags, if any.
func (p Profile) Tags() []string {
	switch v := p["tags"].(type) {
	case []string:
		return v
	case []any:
		tags := make([]string, 0, len(v))
		for _, t := range v {
			if s, ok := t.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}
