// Package sources grades the citations returned by web verification so
// readers can tell an official statement from a repost.
package sources

import (
	"net/url"
	"strings"
)

// Tier is the coarse standing of a cited source
type Tier int

const (
	TierUnknown   Tier = iota // unparseable or empty URL
	TierOfficial              // governments, agencies, international bodies, academia
	TierFactCheck             // dedicated fact-checking outlets
	TierNews                  // wire services and established newsrooms
	TierOther                 // everything else, including social media
)

func (t Tier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierFactCheck:
		return "fact-check"
	case TierNews:
		return "news"
	case TierOther:
		return "other"
	default:
		return "unknown"
	}
}

var defaultOfficial = []string{
	"who.int",
	"un.org",
	"europa.eu",
	"reliefweb.int",
	"ifrc.org",
	"weather.gov",
	"doi.org",
}

var defaultFactCheck = []string{
	"snopes.com",
	"politifact.com",
	"factcheck.org",
	"fullfact.org",
	"factcheck.afp.com",
	"leadstories.com",
	"checkyourfact.com",
}

var defaultNews = []string{
	"reuters.com",
	"apnews.com",
	"bbc.co.uk",
	"bbc.com",
	"afp.com",
	"nytimes.com",
	"theguardian.com",
	"washingtonpost.com",
	"aljazeera.com",
	"npr.org",
}

// official suffixes matched against the host
var officialSuffixes = []string{".gov", ".mil", ".edu", ".int", ".ac.uk", ".gov.uk", ".gc.ca", ".gov.au"}

// Classifier maps citation URLs to tiers. The zero value is not usable;
// use NewClassifier.
type Classifier struct {
	domains map[string]Tier
}

// NewClassifier builds a classifier from the built-in domain lists.
// Entries in extra override them, keyed by bare domain.
func NewClassifier(extra map[string]Tier) *Classifier {
	c := &Classifier{domains: make(map[string]Tier)}
	for _, d := range defaultOfficial {
		c.domains[d] = TierOfficial
	}
	for _, d := range defaultNews {
		c.domains[d] = TierNews
	}
	for _, d := range defaultFactCheck {
		c.domains[d] = TierFactCheck
	}
	for d, t := range extra {
		c.domains[strings.ToLower(strings.TrimPrefix(d, "www."))] = t
	}
	return c
}

// Classify returns the tier of rawURL. The most specific matching domain
// wins, so factcheck.afp.com ranks as a fact-checker while afp.com is news.
func (c *Classifier) Classify(rawURL string) Tier {
	host := hostOf(rawURL)
	if host == "" {
		return TierUnknown
	}

	for h := host; h != ""; h = parentDomain(h) {
		if t, ok := c.domains[h]; ok {
			return t
		}
	}

	for _, suffix := range officialSuffixes {
		if strings.HasSuffix(host, suffix) {
			return TierOfficial
		}
	}
	return TierOther
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

// parentDomain drops the leftmost label, returning "" at the last one
func parentDomain(host string) string {
	i := strings.IndexByte(host, '.')
	if i < 0 {
		return ""
	}
	rest := host[i+1:]
	if !strings.Contains(rest, ".") {
		return ""
	}
	return rest
}
