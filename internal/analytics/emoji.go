package analytics

// emojiRanges covers the standard emoji blocks: emoticons, misc symbols
// and pictographs, transport, regional indicators (flags), misc symbols
// and dingbats. Multi-codepoint sequences (skin tones, ZWJ) are counted
// per base codepoint.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // misc symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
}

// isEmoji reports whether r falls inside one of the emoji blocks
func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// stripEmojis removes emoji codepoints (plus variation selectors and
// zero-width joiners left behind by emoji sequences) from text
func stripEmojis(text string) string {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if isEmoji(r) || r == 0xFE0F || r == 0x200D {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
