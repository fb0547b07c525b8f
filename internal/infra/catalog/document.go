package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/clinic-assistant/internal/domain/faq"
)

// Document is the YAML layout shared by the file and object sources.
//
//	faqs:            # entries of the default clinic
//	  - question: ...
//	    answer: ...
//	clinics:
//	  downtown:
//	    - question: ...
//	      answer: ...
type Document struct {
	FAQs    []faq.KnownQuestion            `yaml:"faqs"`
	Clinics map[string][]faq.KnownQuestion `yaml:"clinics"`
}

// ParseDocument decodes and validates a catalog document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validateEntries("faqs", doc.FAQs); err != nil {
		return Document{}, err
	}
	for clinicID, entries := range doc.Clinics {
		if strings.TrimSpace(clinicID) == "" {
			return Document{}, errors.New("catalog clinic id cannot be empty")
		}
		if err := validateEntries("clinics."+clinicID, entries); err != nil {
			return Document{}, err
		}
	}
	return doc, nil
}

// Catalogs flattens the document into per-clinic catalogs. Entries listed
// under faqs precede any listed for the default clinic under clinics.
func (d Document) Catalogs(defaultClinicID string) map[string][]faq.KnownQuestion {
	out := make(map[string][]faq.KnownQuestion, len(d.Clinics)+1)
	if len(d.FAQs) > 0 {
		out[defaultClinicID] = append(out[defaultClinicID], d.FAQs...)
	}
	for clinicID, entries := range d.Clinics {
		out[clinicID] = append(out[clinicID], entries...)
	}
	return out
}

func validateEntries(section string, entries []faq.KnownQuestion) error {
	for i, entry := range entries {
		if strings.TrimSpace(entry.Question) == "" {
			return fmt.Errorf("%s[%d]: question cannot be empty", section, i)
		}
		if strings.TrimSpace(entry.Answer) == "" {
			return fmt.Errorf("%s[%d]: answer cannot be empty", section, i)
		}
	}
	return nil
}
