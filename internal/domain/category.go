package domain

// EntityCategory is the closed set of interest classifications. It is used
// both to bucket free-text input and to target signal-source queries.
type EntityCategory string

const (
	CategoryArtist      EntityCategory = "artist"
	CategoryMovie       EntityCategory = "movie"
	CategoryTVShow      EntityCategory = "tv_show"
	CategoryBook        EntityCategory = "book"
	CategoryPodcast     EntityCategory = "podcast"
	CategoryBrand       EntityCategory = "brand"
	CategoryDestination EntityCategory = "destination"
	CategoryPlace       EntityCategory = "place"
	CategoryPerson      EntityCategory = "person"
	CategoryVideogame   EntityCategory = "videogame"
)

// AllCategories lists every valid category in a stable order.
var AllCategories = []EntityCategory{
	CategoryArtist,
	CategoryMovie,
	CategoryTVShow,
	CategoryBook,
	CategoryPodcast,
	CategoryBrand,
	CategoryDestination,
	CategoryPlace,
	CategoryPerson,
	CategoryVideogame,
}

func (c EntityCategory) IsValid() bool {
	for _, valid := range AllCategories {
		if c == valid {
			return true
		}
	}
	return false
}

func (c EntityCategory) String() string {
	return string(c)
}

// ParseCategory returns the category matching s, or false when s is not a
// member of the closed set.
func ParseCategory(s string) (EntityCategory, bool) {
	c := EntityCategory(s)
	if c.IsValid() {
		return c, true
	}
	return "", false
}
