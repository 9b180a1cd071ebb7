package detect

import "strings"

// noisePhrases lists screenplay formatting phrases and camera/editing jargon
// that must never be recorded as entities.  All entries are upper-case.
var noisePhrases = []string{
	"CONTINUED",
	"CONT'D",
	"FADE IN",
	"FADE OUT",
	"FADE TO",
	"FADE",
	"CUT TO",
	"CUT",
	"SMASH CUT",
	"MATCH CUT",
	"JUMP CUT",
	"DISSOLVE TO",
	"DISSOLVE",
	"WIPE TO",
	"MONTAGE",
	"INTERCUT",
	"FLASHBACK",
	"FLASH FORWARD",
	"CLOSE ON",
	"CLOSE UP",
	"CLOSEUP",
	"ANGLE ON",
	"ANGLE",
	"WIDE SHOT",
	"WIDE",
	"TRACKING",
	"PAN",
	"TILT",
	"ZOOM",
	"POV",
	"INSERT",
	"SUPER",
	"TITLE",
	"SUBTITLE",
	"CREDITS",
	"THE END",
	"END OF",
	"BACK TO",
	"BACK TO SCENE",
	"LATER",
	"MOMENTS LATER",
	"BEAT",
	"OMITTED",
	"SCENE",
	"DAY",
	"NIGHT",
	"V.O.",
	"O.S.",
	"O.C.",
}

// IsNoise reports whether a candidate entity name is screenplay formatting
// noise.  A candidate is noise when it exactly equals a noise phrase, or when
// it starts with a noise phrase immediately followed by a space or colon.
// The space/colon requirement keeps real words that merely share a prefix with
// a noise phrase: "FADE IN:" and "CUT TO:" are filtered, but "FADED" (prefix
// "FADE") and "PANEL" (prefix "PAN") are not.
func IsNoise(candidate string) bool {
	c := strings.ToUpper(strings.TrimSpace(candidate))
	if c == "" {
		return true
	}
	for _, phrase := range noisePhrases {
		if c == phrase {
			return true
		}
		if strings.HasPrefix(c, phrase) && len(c) > len(phrase) {
			switch c[len(phrase)] {
			case ' ', ':':
				return true
			}
		}
	}
	return false
}

// normalizeCategory lower-cases and whitespace-trims a tag category for table
// lookup.
func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
