// Package query implements intent-aware retrieval over stored claims:
// question decomposition, store-level pre-filtering, multi-signal scoring,
// and adaptive result sizing for the Q&A pipeline.
package query

import (
	"regexp"
	"strings"

	"github.com/pkozlov/claimcheck/internal/model"
)

// verdictFamily maps question phrasing to the verdict label it asks about.
// Families are checked in order; the first match wins, so accusatory
// phrasing ("false", "lied") dominates softer wording in the same question.
type verdictFamily struct {
	label    model.Label
	patterns []*regexp.Regexp
}

var verdictFamilies = []verdictFamily{
	{model.LabelFalse, compileAll(
		`\bfalse\b`, `\blie[sd]?\b`, `\blying\b`, `\binaccurate\b`,
		`\bwrong\b`, `\buntrue\b`, `\bfabricated?\b`, `\bfake\b`,
	)},
	{model.LabelVerified, compileAll(
		`\bverified\b`, `\btrue\b`, `\baccurate\b`, `\bcorrect\b`,
		`\bconfirmed?\b`, `\bhonest\b`,
	)},
	{model.LabelMisleading, compileAll(
		`\bmisleading\b`, `\bdeceptive\b`, `\bexaggerat`,
	)},
	{model.LabelApproxTrue, compileAll(
		`\bapprox`, `\bclose\b`, `\bnearly\b`, `\broughly\b`,
	)},
	{model.LabelUnverifiable, compileAll(
		`\bunverif`, `\bcannot verify\b`, `\bno data\b`,
	)},
}

// metricSynonym maps a canonical metric name to the phrasings that refer
// to it. Kept as a slice so detection order is deterministic.
type metricSynonym struct {
	canonical string
	patterns  []*regexp.Regexp
	raw       []string
}

var metricSynonyms = []metricSynonym{
	newSynonym("revenue", `revenue`, `sales`, `top[\s\-]?line`, `net[\s\-]?revenue`),
	newSynonym("eps", `\beps\b`, `earnings[\s\-]?per[\s\-]?share`),
	newSynonym("gross_margin", `gross[\s\-]?margin`, `gross[\s\-]?profit`),
	newSynonym("operating_income", `operating[\s\-]?(income|profit|earnings)`, `\bebit\b`),
	newSynonym("net_income", `net[\s\-]?(income|profit|earnings)`, `bottom[\s\-]?line`),
	newSynonym("free_cash_flow", `free[\s\-]?cash[\s\-]?flow`, `\bfcf\b`),
	newSynonym("operating_margin", `operating[\s\-]?margin`),
	newSynonym("cash", `\bcash\b`, `cash[\s\-]?position`),
	newSynonym("debt", `\bdebt\b`, `leverage`),
	newSynonym("capex", `\bcapex\b`, `capital[\s\-]?expenditure`),
	newSynonym("r_and_d", `\br&d\b`, `\br\s*and\s*d\b`, `research`),
	newSynonym("dividend", `dividend`, `payout`),
	newSynonym("buyback", `buyback`, `share[\s\-]?repurchase`),
	newSynonym("headcount", `headcount`, `employees`, `workforce`, `hiring`),
	newSynonym("cloud", `\bcloud\b`, `\bazure\b`, `\baws\b`, `\bgcp\b`),
	newSynonym("ai", `\bai\b`, `\bartificial[\s\-]?intelligence\b`, `\bmachine[\s\-]?learning\b`),
	newSynonym("guidance", `guidance`, `outlook`, `forecast`, `expect`),
	newSynonym("growth", `growth`, `grew`, `increase[sd]?`, `gain`),
	newSynonym("margin", `\bmargin\b`),
	newSynonym("services", `services`),
	newSynonym("segment", `segment`),
	newSynonym("subscribers", `subscriber`, `user base`, `dau`, `mau`),
}

type speakerRole struct {
	role     string
	patterns []*regexp.Regexp
}

var speakerRoles = []speakerRole{
	{"CEO", compileAll(`\bceo\b`, `\bchief executive\b`)},
	{"CFO", compileAll(`\bcfo\b`, `\bchief financial\b`, `\bfinance chief\b`)},
	{"COO", compileAll(`\bcoo\b`, `\bchief operating\b`)},
	{"CTO", compileAll(`\bcto\b`, `\bchief technology\b`)},
}

// quarterPattern accepts both "Q4 2024" and "2024 Q4" spellings.
var quarterPattern = regexp.MustCompile(`(?i)(?:q(\d)[\s,]*(\d{4}))|(?:(\d{4})[\s,]*q(\d))`)

var comparisonPattern = regexp.MustCompile(`compar|vs\.?|versus|change|differ|trend`)

var wordPattern = regexp.MustCompile(`[a-z0-9_]+`)

var stopWords = makeSet(
	"the", "a", "an", "is", "was", "were", "are", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "should",
	"could", "may", "might", "must", "can", "about", "in", "on", "at",
	"to", "for", "of", "with", "by", "from", "up", "down", "out", "off",
	"over", "under", "again", "further", "then", "once", "what", "which",
	"who", "whom", "this", "that", "these", "those", "am", "or", "and",
	"but", "not", "no", "so", "if", "its", "it", "they", "them", "their",
	"there", "here", "how", "why", "when", "where", "any", "all", "each",
	"every", "both", "few", "more", "most", "other", "some", "such", "than",
	"too", "very", "just", "because", "as", "until", "while", "during",
	"before", "after", "above", "below", "between", "same", "own", "into",
	"through", "only", "also", "tell", "give", "show", "me", "please",
	"company", "companies", "claim", "claims", "say", "said",
	"many", "much",
)

func newSynonym(canonical string, raw ...string) metricSynonym {
	return metricSynonym{canonical: canonical, patterns: compileAll(raw...), raw: raw}
}

func compileAll(raw ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(raw))
	for i, r := range raw {
		out[i] = regexp.MustCompile(r)
	}
	return out
}

func makeSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// likePattern converts a synonym regex into an SQL LIKE pattern usable for
// pre-filtering the metric column.
func likePattern(raw string) string {
	s := raw
	s = strings.ReplaceAll(s, `\b`, "")
	s = strings.ReplaceAll(s, `[\s\-]?`, "%")
	s = strings.ReplaceAll(s, `[\s\-]`, "%")
	return "%" + s + "%"
}

func detectVerdict(question string) (model.Label, bool) {
	q := strings.ToLower(question)
	for _, fam := range verdictFamilies {
		for _, pat := range fam.patterns {
			if pat.MatchString(q) {
				return fam.label, true
			}
		}
	}
	return "", false
}

func detectMetrics(question string) []string {
	q := strings.ToLower(question)
	var found []string
	for _, syn := range metricSynonyms {
		for _, pat := range syn.patterns {
			if pat.MatchString(q) {
				found = append(found, syn.canonical)
				break
			}
		}
	}
	return found
}

func detectQuarters(question string) [][2]int {
	var quarters [][2]int
	for _, m := range quarterPattern.FindAllStringSubmatch(question, -1) {
		switch {
		case m[1] != "" && m[2] != "": // Q4 2024
			quarters = append(quarters, [2]int{atoi(m[2]), atoi(m[1])})
		case m[3] != "" && m[4] != "": // 2024 Q4
			quarters = append(quarters, [2]int{atoi(m[3]), atoi(m[4])})
		}
	}
	return quarters
}

func detectSpeaker(question string) string {
	q := strings.ToLower(question)
	for _, sr := range speakerRoles {
		for _, pat := range sr.patterns {
			if pat.MatchString(q) {
				return sr.role
			}
		}
	}
	return ""
}

func isComparison(question string) bool {
	return comparisonPattern.MatchString(strings.ToLower(question))
}

func extractKeywords(question string) []string {
	var keywords []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(question), -1) {
		if len(w) > 2 && !stopWords[w] {
			keywords = append(keywords, w)
		}
	}
	return keywords
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
