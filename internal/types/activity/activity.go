package activity

import (
	"strings"

	"epicourierAPI/utils"
)

var greenTagMarkers = []string{"sustainable", "green", "eco"}

// LoggedMeal is a calendar entry with status = true, joined through its
// recipe to the recipe's tags. The store may hand back each to-one relation
// as an object or a single-element array, so those are normalized on decode.
type LoggedMeal struct {
	Date   *string                `json:"date"`
	Recipe utils.Embedded[Recipe] `json:"Recipe"`
}

type Recipe struct {
	TagMap []RecipeTagMap `json:"Recipe-Tag_Map"`
}

type RecipeTagMap struct {
	Tag utils.Embedded[Tag] `json:"RecipeTag"`
}

type Tag struct {
	Name *string `json:"name"`
}

// IsGreen reports whether any tag name contains a sustainability marker,
// case-insensitively.
func (m LoggedMeal) IsGreen() bool {
	recipe := m.Recipe.Get()
	if recipe == nil {
		return false
	}
	for _, tm := range recipe.TagMap {
		tag := tm.Tag.Get()
		if tag == nil || tag.Name == nil {
			continue
		}
		if IsGreenTag(*tag.Name) {
			return true
		}
	}
	return false
}

// OnOrAfter reports whether the meal date falls inside a window starting at
// windowStart (YYYY-MM-DD). Meals without a date are outside every window.
func (m LoggedMeal) OnOrAfter(windowStart string) bool {
	return m.Date != nil && *m.Date >= windowStart
}

func IsGreenTag(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range greenTagMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
