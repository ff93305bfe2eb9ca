package canonical

// Person identifies a submitter or author.
type Person struct {
	// FullName is the display name.
	FullName string `json:"full_name"`
	// LastName is the family name part of the display name.
	LastName string `json:"last_name,omitempty"`
	// FirstName is the given name part of the display name.
	FirstName string `json:"first_name,omitempty"`
	// Suffix is an optional generational or honorific suffix.
	Suffix string `json:"suffix,omitempty"`
	// Affiliation lists institutional affiliations.
	Affiliation []string `json:"affiliation,omitempty"`
}

// IsZero reports whether p carries no information.
func (p Person) IsZero() bool {
	return p.FullName == "" && p.LastName == "" && p.FirstName == "" &&
		p.Suffix == "" && len(p.Affiliation) == 0
}

// Category is an archive classification term such as "cs.DL".
type Category string

// String returns the serialized category value.
func (c Category) String() string { return string(c) }

// Metadata is the submitter supplied descriptive record for one version.
type Metadata struct {
	// PrimaryClassification is the primary category of the version.
	PrimaryClassification Category `json:"primary_classification"`
	// SecondaryClassification lists cross-listed categories in the order
	// they were added.
	SecondaryClassification []Category `json:"secondary_classification,omitempty"`
	// Title is the article title.
	Title string `json:"title"`
	// Abstract is the article abstract.
	Abstract string `json:"abstract"`
	// Authors is the unparsed author display string.
	Authors string `json:"authors"`
	// License is the license URI asserted at submission time.
	License string `json:"license,omitempty"`
	// Comments is the free-form submitter comment.
	Comments string `json:"comments,omitempty"`
	// JournalRef is the journal reference, when published.
	JournalRef string `json:"journal_ref,omitempty"`
	// ReportNum is the institutional report number.
	ReportNum string `json:"report_num,omitempty"`
	// DOI is the digital object identifier, when known.
	DOI string `json:"doi,omitempty"`
	// MSCClass is the Mathematics Subject Classification code.
	MSCClass string `json:"msc_class,omitempty"`
	// ACMClass is the ACM Computing Classification code.
	ACMClass string `json:"acm_class,omitempty"`
}

// Categories returns the primary classification followed by every
// secondary classification.
func (m Metadata) Categories() []Category {
	all := make([]Category, 0, len(m.SecondaryClassification)+1)
	if m.PrimaryClassification != "" {
		all = append(all, m.PrimaryClassification)
	}
	return append(all, m.SecondaryClassification...)
}

// HasCategory reports whether c is the primary or a secondary
// classification.
func (m Metadata) HasCategory(c Category) bool {
	if m.PrimaryClassification == c {
		return true
	}
	for _, secondary := range m.SecondaryClassification {
		if secondary == c {
			return true
		}
	}
	return false
}

// IsZero reports whether the metadata carries no descriptive fields.
// Partial version states in metadata events use the zero value to mean
// "leave the current metadata alone".
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Abstract == "" &&
		m.PrimaryClassification == "" && len(m.Authors) == 0
}

// AddSecondary appends c to the secondary classifications unless it is
// already present. It reports whether the metadata changed.
func (m *Metadata) AddSecondary(c Category) bool {
	if c == "" || m.HasCategory(c) {
		return false
	}
	m.SecondaryClassification = append(m.SecondaryClassification, c)
	return true
}
