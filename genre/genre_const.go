package genre

import "strconv"

// Genre is a content_nibble_level_1 value shifted into the high nibble.
type Genre uint8

const (
	Undefined Genre = iota << 4
	MovieDrama
	NewsCurrentAffairs
	ShowGameShow
	Sports
	ChildrenYouth
	MusicBalletDance
	ArtsCulture
	SocialPoliticalEconomics
	EducationScienceFactual
	LeisureHobbies
	SpecialCharacteristics
	GenreReserved1
	GenreReserved2
	GenreReserved3
	UserDefined
)

// Codes outside the 8 bit nibble space that are carried alongside
// broadcast codes for operator specific categories.
const (
	InternalCategory1 Code = 888
	InternalCategory2 Code = 999
)

var categoryNames = map[Genre]string{
	MovieDrama:               "Movie",
	NewsCurrentAffairs:       "News",
	ShowGameShow:             "Show",
	Sports:                   "Sports",
	ChildrenYouth:            "Youth",
	MusicBalletDance:         "Music",
	ArtsCulture:              "Arts/Culture",
	SocialPoliticalEconomics: "Social/Politics",
	EducationScienceFactual:  "Education",
	LeisureHobbies:           "Leisure hobbies",
	UserDefined:              "Serie",
}

// Category names a level 1 nibble; unnamed classes yield "".
func Category(level1 uint8) string {
	return categoryNames[Genre(level1&0x0f)<<4]
}

func (g Genre) String() string {
	if name, ok := categoryNames[g&0xf0]; ok {
		return name
	}
	return "0x" + strconv.FormatUint(uint64(g), 16)
}
