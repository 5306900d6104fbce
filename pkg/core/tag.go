// pkg/core/tag.go
package core

// Tag is a Stash tag. Parents may themselves carry parents.
//
// CorrespondingTagName and SortOrder are typed forms of directives that live in the
// free-text description; they are filled in by tagmeta.Normalize at the system boundary.
type Tag struct {
	ID          string
	Name        string
	Description string
	Parents     []Tag

	CorrespondingTagName string
	SortOrder            []string
}

// Gender is a performer gender as reported by Stash.
type Gender string

const (
	GenderMale              Gender = "MALE"
	GenderFemale            Gender = "FEMALE"
	GenderTransgenderMale   Gender = "TRANSGENDER_MALE"
	GenderTransgenderFemale Gender = "TRANSGENDER_FEMALE"
)

// ParseGender maps a Stash gender string to a Gender. Unknown values map to "".
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderTransgenderMale, GenderTransgenderFemale:
		return Gender(s)
	default:
		return ""
	}
}

// Performer is read-only input supplied by Stash.
type Performer struct {
	ID     string
	Name   string
	Gender Gender
}
