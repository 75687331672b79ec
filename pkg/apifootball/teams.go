package apifootball

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// The three tracked Portuguese clubs. Their API-Football team IDs are
// stable and hard-coded the same way across every feed integration.
const (
	TeamBenfica  = 211
	TeamPorto    = 212
	TeamSporting = 228
)

// Competition IDs used by the trigger predicates.
const (
	LeaguePrimeiraLiga    = 94
	LeagueTacaPortugal    = 96
	LeagueChampionsLeague = 2
	LeagueEuropaLeague    = 3
)

// Big3IDs is the closed set of tracked team IDs.
var Big3IDs = map[int]bool{
	TeamBenfica:  true,
	TeamPorto:    true,
	TeamSporting: true,
}

// big3Aliases maps normalized name variants to team IDs. Feeds are not
// consistent about club naming ("FC Porto", "Porto", "Sporting CP",
// "Sporting Lisbon"), so matching goes through NormalizeTeamName.
var big3Aliases = map[string]int{
	"benfica":                TeamBenfica,
	"sl benfica":             TeamBenfica,
	"sport lisboa e benfica": TeamBenfica,

	"porto":                  TeamPorto,
	"fc porto":               TeamPorto,
	"futebol clube do porto": TeamPorto,

	"sporting":                   TeamSporting,
	"sporting cp":                TeamSporting,
	"sporting lisbon":            TeamSporting,
	"sporting clube de portugal": TeamSporting,
}

// IsBig3 reports whether a team ID is one of the three tracked clubs.
func IsBig3(teamID int) bool {
	return Big3IDs[teamID]
}

// NormalizeTeamName lowercases a club name, strips diacritics and
// collapses whitespace so feed variants compare equal.
func NormalizeTeamName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		normalized = name
	}

	normalized = strings.ToLower(normalized)

	var b strings.Builder
	lastSpace := false
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '.':
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// MatchBig3Name resolves a club name to a tracked team ID, if it is one
// of the three.
func MatchBig3Name(name string) (int, bool) {
	id, ok := big3Aliases[NormalizeTeamName(name)]
	return id, ok
}
