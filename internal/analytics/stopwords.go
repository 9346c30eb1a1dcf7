package analytics

// stopWords is the fixed English stop-word list used by keyword
// extraction. Tokens in this set never become unigram keywords and never
// participate in bigrams.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"day": true, "get": true, "has": true, "him": true, "his": true,
	"how": true, "man": true, "new": true, "now": true, "old": true,
	"see": true, "two": true, "way": true, "who": true, "its": true,
	"did": true, "yes": true, "this": true, "that": true, "with": true,
	"have": true, "from": true, "they": true, "know": true, "want": true,
	"been": true, "good": true, "much": true, "some": true, "time": true,
	"very": true, "when": true, "come": true, "here": true, "just": true,
	"like": true, "long": true, "make": true, "many": true, "more": true,
	"only": true, "over": true, "such": true, "take": true, "than": true,
	"them": true, "well": true, "were": true, "what": true, "your": true,
	"will": true, "about": true, "there": true, "their": true, "would": true,
	"these": true, "other": true, "which": true, "into": true, "also": true,
	"after": true, "first": true, "where": true, "being": true, "because": true,
	"could": true, "should": true, "before": true, "going": true, "think": true,
	"still": true, "okay": true, "yeah": true, "dont": true, "cant": true,
}

func isStopWord(token string) bool {
	return stopWords[token]
}
