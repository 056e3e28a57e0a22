package recommend

import "strings"

// householdItems are things most homes already have. A material whose name
// contains any of these is never forecast as something to buy.
var householdItems = []string{
	// kitchen
	"water", "spoon", "fork", "knife", "plate", "bowl", "cup", "mug", "napkin",
	"paper towel", "towel", "dish soap", "sponge", "container", "basket", "tray",
	"measuring cup", "measuring spoon",
	// craft
	"paper", "pencil", "pen", "marker", "crayon", "scissors", "glue", "tape",
	"paint", "brush", "coloring book", "construction paper", "cardboard", "box",
	"string", "yarn", "ribbon",
	// around the house
	"bag", "bottle", "jar", "lid", "cloth", "fabric", "tissue", "cotton ball",
	"cotton swab", "broom", "dustpan", "mop", "rag",
	// outdoors
	"sand", "dirt", "soil", "rock", "stone", "leaf", "stick", "shell", "seed",
	"flower", "grass", "pinecone", "acorn", "feather",
	// pantry
	"rice", "bean", "pasta", "cereal", "flour", "salt", "sugar", "spice", "herb",
	"fruit", "vegetable", "grain", "nut", "raisin", "cracker", "cookie", "bread",
	// tools
	"soap", "bucket", "spray bottle", "hammer", "screwdriver", "pliers", "tongs", "clamp",
	// toys and misc
	"book", "chalk", "board", "card", "puzzle", "block", "bead", "button", "coin",
	"key", "lock", "magnet", "mirror", "magnifying glass",
}

// IsHouseholdItem reports whether name contains a household item.
// Matching is a plain substring test, so "sandpaper letters" counts as household.
func IsHouseholdItem(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	for _, item := range householdItems {
		if strings.Contains(n, item) {
			return true
		}
	}
	return false
}
