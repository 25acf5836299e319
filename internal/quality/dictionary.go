package quality

// commonWords holds high-frequency function words per language. Text that
// almost never hits these is unlikely to be real prose in that language.
var commonWords = map[string]map[string]bool{
	LanguagePortuguese: wordSet(
		"a", "o", "as", "os", "um", "uma", "uns", "umas",
		"de", "do", "da", "dos", "das", "em", "no", "na", "nos", "nas",
		"ao", "aos", "à", "às", "por", "pelo", "pela", "pelos", "pelas",
		"para", "com", "sem", "sob", "sobre", "entre", "até", "após",
		"e", "ou", "mas", "que", "se", "como", "quando", "onde", "porque", "pois",
		"também", "já", "não", "sim", "mais", "menos", "muito", "muita", "muitos",
		"todo", "toda", "todos", "todas", "cada", "outro", "outra",
		"este", "esta", "estes", "estas", "esse", "essa", "isso", "isto",
		"aquele", "aquela", "ele", "ela", "eles", "elas", "eu", "nós", "você",
		"seu", "sua", "seus", "suas", "ser", "é", "são", "foi", "era",
		"está", "estão", "ter", "tem", "têm", "há", "pode", "deve", "será",
	),
	LanguageEnglish: wordSet(
		"the", "a", "an", "of", "to", "in", "on", "at", "by", "for", "with",
		"from", "as", "and", "or", "but", "not", "no", "is", "are", "was",
		"were", "be", "been", "being", "has", "have", "had", "do", "does",
		"did", "will", "would", "shall", "should", "can", "could", "may",
		"might", "must", "this", "that", "these", "those", "it", "its", "he",
		"she", "they", "them", "his", "her", "their", "we", "our", "you",
		"your", "i", "my", "me", "us", "him", "who", "which", "what", "when",
		"where", "why", "how", "if", "then", "than", "so", "there", "here",
		"all", "any", "some", "more", "most", "other", "such", "only", "also",
		"very", "into", "about", "over", "after",
	),
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
