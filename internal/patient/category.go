package patient

import "fmt"

// Category is a diagnostic section of the record counted by the
// sufficiency gate.
type Category string

const (
	CategoryHistory       Category = "history"
	CategoryBlood         Category = "blood"
	CategoryUrine         Category = "urine"
	CategoryECG           Category = "ecg"
	CategoryEcho          Category = "echo"
	CategoryComorbidities Category = "comorbidities"
)

var allCategories = []Category{
	CategoryHistory,
	CategoryBlood,
	CategoryUrine,
	CategoryECG,
	CategoryEcho,
	CategoryComorbidities,
}

// AllCategories returns the six diagnostic categories in display order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func ParseCategory(s string) (Category, error) {
	for _, c := range allCategories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown diagnostic category %q", s)
}

// Label is the human-readable category name used in messages.
func (c Category) Label() string {
	switch c {
	case CategoryHistory:
		return "medical history"
	case CategoryBlood:
		return "blood panel"
	case CategoryUrine:
		return "urine panel"
	case CategoryECG:
		return "ECG"
	case CategoryEcho:
		return "echocardiography"
	case CategoryComorbidities:
		return "comorbidities"
	default:
		return string(c)
	}
}

// PresentCategories reports which sections of an already loaded record
// have data.
func (r *Record) PresentCategories() map[Category]bool {
	return map[Category]bool{
		CategoryHistory:       r.Anamnesis != nil,
		CategoryBlood:         r.Blood != nil,
		CategoryUrine:         r.Urine != nil,
		CategoryECG:           r.ECG != nil,
		CategoryEcho:          r.Echo != nil,
		CategoryComorbidities: r.Comorbidities != nil,
	}
}
