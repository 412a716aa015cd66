package models

// Slot is one music disc record the pack can replace.
type Slot struct {
	Name     string `json:"name" yaml:"name"`
	Duration int    `json:"duration" yaml:"duration"` // canonical length in seconds
}

// MaxTracks is the number of records in the catalog and therefore the most tracks one pack can carry.
const MaxTracks = 21

// RecordDir is the archive directory holding the replaced records.
const RecordDir = "sounds/music/game/records"

// catalog mirrors the record table of the target game version (min_engine_version 1.21.0).
// Names and durations must match the game; changing them breaks compatibility with it.
var catalog = [MaxTracks]Slot{
	{"13", 178},
	{"cat", 185},
	{"blocks", 345},
	{"chirp", 185},
	{"far", 174},
	{"mall", 197},
	{"mellohi", 96},
	{"stal", 150},
	{"strad", 188},
	{"ward", 251},
	{"11", 71},
	{"wait", 237},
	{"otherside", 195},
	{"5", 178},
	{"pigstep", 148},
	{"relic", 219},
	{"creator", 176},
	{"creator_music_box", 73},
	{"precipice", 299},
	{"tears", 175},
	{"lava_chicken", 135},
}

// Slots returns a copy of the catalog in reference order.
func Slots() []Slot {
	out := make([]Slot, len(catalog))
	copy(out, catalog[:])
	return out
}

// LookupSlot finds a slot by record name.
func LookupSlot(name string) (Slot, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// RecordPath is the archive path of the sound file that replaces the slot.
func (s Slot) RecordPath() string {
	return RecordDir + "/" + s.Name + ".ogg"
}
