package bankprofile

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-import/internal/domain/importer/decoder"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
)

// MinConfidence is the matched-header fraction a profile must clear to be
// proposed. Below it the detector falls back to generic keyword
// heuristics with no named profile.
const MinConfidence = 0.6

// nearMatchDistance is the maximum edit distance for a header to count as
// matching a signature header (absorbs minor spelling drift between
// export versions).
const nearMatchDistance = 2

// Detection is the detector's advisory output.
type Detection struct {
	Profile    *Profile
	Suggested  mapping.ColumnMapping
	Confidence float64
}

// Detector matches grids against the profile registry and, failing that,
// suggests a mapping from multilingual header keywords.
type Detector struct {
	profiles []*Profile
	keywords *keywordMatcher
}

// NewDetector builds a detector over the static registry.
func NewDetector() *Detector {
	return &Detector{
		profiles: Registry(),
		keywords: newKeywordMatcher(),
	}
}

// Detect scores every registered profile against the grid headers and
// returns the best match with a seeded column mapping. The grid is never
// mutated.
func (d *Detector) Detect(grid *decoder.RawGrid) Detection {
	headers := make([]string, len(grid.Headers))
	for i, h := range grid.Headers {
		headers[i] = normalizeHeader(h)
	}

	var best *Profile
	bestScore := 0.0
	for _, p := range d.profiles {
		score := scoreProfile(p, headers)
		if score > bestScore { // strict: earliest registry entry wins ties
			bestScore = score
			best = p
		}
	}

	if best == nil || bestScore < MinConfidence {
		return Detection{
			Profile:    nil,
			Suggested:  d.keywords.suggest(headers),
			Confidence: bestScore,
		}
	}

	return Detection{
		Profile:    best,
		Suggested:  seedMapping(best, headers),
		Confidence: bestScore,
	}
}

// scoreProfile returns the fraction of the profile's signature headers
// found in the grid, exactly or within the near-match edit distance.
func scoreProfile(p *Profile, gridHeaders []string) float64 {
	signature := p.headerSet()
	if len(signature) == 0 {
		return 0
	}
	matched := 0
	for _, want := range signature {
		if findHeader(normalizeHeader(want), gridHeaders) >= 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(signature))
}

// seedMapping assigns each signature field to the grid column whose
// header matches it. Columns are claimed one-to-one in canonical field
// order so the result is always a legal mapping.
func seedMapping(p *Profile, gridHeaders []string) mapping.ColumnMapping {
	m := mapping.New()
	for _, f := range mapping.Fields() {
		want, ok := p.Signature[f]
		if !ok {
			continue
		}
		if col := findHeader(normalizeHeader(want), gridHeaders); col >= 0 {
			// Set only fails when the column is already claimed by an
			// earlier field; skipping keeps the mapping advisory.
			_ = m.Set(f, col)
		}
	}
	return m
}

func findHeader(want string, headers []string) int {
	for i, h := range headers {
		if h == want {
			return i
		}
	}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if fuzzy.LevenshteinDistance(h, want) <= nearMatchDistance {
			return i
		}
	}
	return -1
}

// normalizeHeader lowercases, trims and folds diacritics so "Descrição"
// and "descricao" compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(foldDiacritic, h)
}

func foldDiacritic(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ã', 'ä', 'å':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'õ', 'ö':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	}
	return r
}

// keywordMatcher suggests a mapping from generic multilingual header
// keywords using a single-pass Aho-Corasick scan per header.
type keywordMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	fields   []mapping.Field
}

// keywordTable lists substring keywords per canonical field. Order within
// a field is by decreasing specificity; the longest matched pattern wins
// when a header hits several.
var keywordTable = []struct {
	field    mapping.Field
	keywords []string
}{
	{mapping.FieldDate, []string{"date", "data", "fecha", "datum"}},
	{mapping.FieldDescription, []string{"descri", "libel", "label", "concept", "merchant", "payee", "memo", "narrat", "detail"}},
	{mapping.FieldAmount, []string{"amount", "montant", "montante", "valor", "importe", "betrag", "value"}},
	{mapping.FieldDirection, []string{"direction", "debit/credit", "d/c", "dr/cr", "sens", "sinal"}},
	{mapping.FieldReference, []string{"reference", "referencia", "ref.", "comment", "document"}},
	{mapping.FieldCounterparty, []string{"counterparty", "contrepartie", "beneficiar", "tiers", "entidade"}},
	{mapping.FieldStatus, []string{"status", "statut", "estado", "etat", "state", "situa"}},
}

func newKeywordMatcher() *keywordMatcher {
	km := &keywordMatcher{}
	for _, entry := range keywordTable {
		for _, kw := range entry.keywords {
			km.patterns = append(km.patterns, kw)
			km.fields = append(km.fields, entry.field)
		}
	}
	byteParts := make([][]byte, len(km.patterns))
	for i, p := range km.patterns {
		byteParts[i] = []byte(p)
	}
	km.matcher = ahocorasick.NewMatcher(byteParts)
	return km
}

// suggest maps each header to the canonical field of its most specific
// keyword hit, claiming columns one-to-one in header order.
func (km *keywordMatcher) suggest(headers []string) mapping.ColumnMapping {
	m := mapping.New()
	for col, header := range headers {
		if header == "" {
			continue
		}
		hits := km.matcher.Match([]byte(header))
		bestField := mapping.Field("")
		bestLen := 0
		for _, idx := range hits {
			if idx < 0 || idx >= len(km.patterns) {
				continue
			}
			if l := len(km.patterns[idx]); l > bestLen {
				bestLen = l
				bestField = km.fields[idx]
			}
		}
		if bestField == "" || m.Mapped(bestField) {
			continue
		}
		_ = m.Set(bestField, col)
	}
	return m
}
