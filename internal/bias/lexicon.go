package bias

// Category is a kind of loaded language.
type Category struct {
	Name  string
	Terms []string
}

// Lexicon is the loaded-language word list, in reporting order.
var Lexicon = []Category{
	{Name: "emotive", Terms: []string{"shocking", "devastating", "tragic", "outrageous", "scandalous"}},
	{Name: "prescriptive", Terms: []string{"must", "should", "ought", "need to"}},
	{Name: "hedging", Terms: []string{"perhaps", "maybe", "possibly", "might", "could"}},
	{Name: "intensifiers", Terms: []string{"very", "extremely", "incredibly", "absolutely"}},
}

// SubjectivityMarkers signal opinion rather than report.
var SubjectivityMarkers = []string{
	"i think", "i believe", "in my opinion", "seems", "appears",
	"likely", "probably", "suggests", "indicates",
}

// lexiconTerms is every loaded term, flattened.
var lexiconTerms = func() map[string]bool {
	m := make(map[string]bool)
	for _, c := range Lexicon {
		for _, t := range c.Terms {
			m[t] = true
		}
	}
	return m
}()

// positiveWords and negativeWords drive LexiconSentiment.
var positiveWords = map[string]bool{
	"good": true, "great": true, "excellent": true, "positive": true,
	"success": true, "successful": true, "win": true, "wins": true,
	"won": true, "gain": true, "gains": true, "growth": true,
	"improve": true, "improved": true, "improvement": true, "benefit": true,
	"benefits": true, "strong": true, "stronger": true, "hope": true,
	"hopeful": true, "welcome": true, "welcomed": true, "praise": true,
	"praised": true, "celebrate": true, "celebrated": true, "support": true,
	"supported": true, "agreement": true, "peace": true, "safe": true,
	"recovery": true, "boost": true, "record": true, "optimistic": true,
	"progress": true, "breakthrough": true, "relief": true, "happy": true,
}

var negativeWords = map[string]bool{
	"bad": true, "poor": true, "negative": true, "fail": true,
	"failed": true, "failure": true, "loss": true, "losses": true,
	"lose": true, "lost": true, "decline": true, "declined": true,
	"crisis": true, "attack": true, "attacks": true, "killed": true,
	"dead": true, "death": true, "deaths": true, "war": true,
	"violence": true, "violent": true, "threat": true, "threats": true,
	"fear": true, "fears": true, "concern": true, "concerns": true,
	"criticized": true, "criticism": true, "condemned": true, "scandal": true,
	"corrupt": true, "corruption": true, "collapse": true, "weak": true,
	"worse": true, "worst": true, "angry": true, "outrage": true,
	"shocking": true, "devastating": true, "tragic": true, "outrageous": true,
	"scandalous": true, "disaster": true, "chaos": true, "protest": true,
}
