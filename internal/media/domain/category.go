package domain

import "fmt"

type Category string

const (
	Passport Category = "passport"
	Visa     Category = "visa"
	Photo    Category = "photo"
)

// CategoryMeta is the display metadata of a category. MaxFiles is a hint for
// clients, the API does not enforce it.
type CategoryMeta struct {
	Key         Category
	Label       string
	Description string
	MaxFiles    int
}

// registry keeps declaration order: clients render cards in this order.
var registry = [...]CategoryMeta{
	{
		Key:         Visa,
		Label:       "Visa Application Form",
		Description: "Upload your completed and signed national visa application form. This document is required to start your visa process.",
		MaxFiles:    2,
	},
	{
		Key:         Photo,
		Label:       "Passport Photos",
		Description: "Upload two recent, passport-style photos. Photos must be in color, taken within the last 6 months, and meet official requirements.",
		MaxFiles:    2,
	},
	{
		Key:         Passport,
		Label:       "Passport",
		Description: "Upload a scan or photo of your valid passport. Your passport must be valid for at least 6 months beyond your intended stay.",
		MaxFiles:    1,
	},
}

// Categories returns a copy of the registry in declaration order.
func Categories() []CategoryMeta {
	out := make([]CategoryMeta, len(registry))
	copy(out, registry[:])
	return out
}

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case Passport, Visa, Photo:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// Meta returns the registry entry for c.
func (c Category) Meta() (CategoryMeta, bool) {
	for _, m := range registry {
		if m.Key == c {
			return m, true
		}
	}
	return CategoryMeta{}, false
}
