package wheel

import "fmt"

// Category is one of the eight fruits on the wheel. The set is closed:
// adding a fruit means adding a constant here and a row in multiplierByCategory.
type Category int

const (
	CategoryApple Category = iota
	CategoryOrange
	CategoryLemon
	CategoryGrape
	CategoryWatermelon
	CategoryStrawberry
	CategoryCherry
	CategoryMango

	categoryCount
)

// BaseMultiplier is the lowest payout tier. Anything above it counts as a big win.
const BaseMultiplier = 5

// Multipliers lists the payout tiers in the fixed order used when walking
// the probability distribution. Several categories share the base tier.
var Multipliers = [5]int{5, 10, 15, 25, 45}

var multiplierByCategory = [categoryCount]int{
	CategoryApple:      5,
	CategoryOrange:     5,
	CategoryLemon:      5,
	CategoryGrape:      5,
	CategoryWatermelon: 10,
	CategoryStrawberry: 15,
	CategoryCherry:     25,
	CategoryMango:      45,
}

var categoryNames = [categoryCount]string{
	CategoryApple:      "apple",
	CategoryOrange:     "orange",
	CategoryLemon:      "lemon",
	CategoryGrape:      "grape",
	CategoryWatermelon: "watermelon",
	CategoryStrawberry: "strawberry",
	CategoryCherry:     "cherry",
	CategoryMango:      "mango",
}

func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

func (c Category) Multiplier() int {
	if !c.Valid() {
		return 0
	}
	return multiplierByCategory[c]
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText makes categories readable in JSON payloads and usable as map keys.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range categoryNames {
		if n == name {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", name)
}

// ParseCategory resolves a category by its wire name.
func ParseCategory(name string) (Category, error) {
	var c Category
	if err := c.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return c, nil
}

// Categories returns all categories in wheel order.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// CategoriesWithMultiplier returns the member categories of a payout tier,
// in wheel order.
func CategoriesWithMultiplier(multiplier int) []Category {
	var out []Category
	for c := Category(0); c < categoryCount; c++ {
		if multiplierByCategory[c] == multiplier {
			out = append(out, c)
		}
	}
	return out
}
