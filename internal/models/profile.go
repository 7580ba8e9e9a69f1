package models

// ProfileField is one canonical applicant value plus the label, placeholder
// and name synonyms used to find its input.
type ProfileField struct {
	Name     string   `yaml:"name" json:"name"`
	Value    string   `yaml:"value" json:"value"`
	Synonyms []string `yaml:"synonyms" json:"synonyms"`
}

// ProfileFieldMap is ordered: more specific fields (phone country code)
// must come before the generic ones they overlap with (phone).
type ProfileFieldMap []ProfileField

func (m ProfileFieldMap) Get(name string) (ProfileField, bool) {
	for _, f := range m {
		if f.Name == name {
			return f, true
		}
	}
	return ProfileField{}, false
}

// Set replaces the value of an existing field or appends a new one.
func (m ProfileFieldMap) Set(name, value string, synonyms ...string) ProfileFieldMap {
	for i := range m {
		if m[i].Name == name {
			m[i].Value = value
			if len(synonyms) > 0 {
				m[i].Synonyms = synonyms
			}
			return m
		}
	}
	return append(m, ProfileField{Name: name, Value: value, Synonyms: synonyms})
}
