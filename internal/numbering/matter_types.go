package numbering

import (
	"sort"
	"strings"
)

// MatterType is one entry of the static matter-type taxonomy used in case
// numbers.
type MatterType struct {
	Abbreviation string `json:"abbreviation"`
	FullForm     string `json:"full_form"`
	Notes        string `json:"notes,omitempty"`
	Category     string `json:"category"`
}

const (
	categoryProperty   = "Property & Real Estate Law"
	categoryCorporate  = "Corporate & Commercial Law"
	categoryLitigation = "Litigation & Dispute Resolution"
	categoryCivil      = "Civil & General Law"
	categoryCriminal   = "Criminal Law"
	categoryFamily     = "Family Law"
	categoryIP         = "Intellectual Property & Technology"
	categoryEmployment = "Employment & Labor Law"
	categoryHumanRight = "Immigration & Human Rights"
	categoryAdmin      = "Administrative & Constitutional Law"
)

var matterTypes = map[string]MatterType{
	"CONV":  {"CONV", "Conveyancing", "Sale, purchase, transfer of property", categoryProperty},
	"ELC":   {"ELC", "Environment and Land Court", "Land disputes, environmental issues", categoryProperty},
	"SUCC":  {"SUCC", "Succession Matters", "Wills, estates, probate involving property", categoryProperty},
	"BRS":   {"BRS", "Business Registration Services", "Company registration, compliance", categoryCorporate},
	"COMM":  {"COMM", "Commercial Transactions", "Business contracts, sales, commercial dealings", categoryCorporate},
	"CORP":  {"CORP", "Corporate Law", "Company governance, mergers, acquisitions", categoryCorporate},
	"COMP":  {"COMP", "Company Law", "Formation and regulation of companies", categoryCorporate},
	"TAX":   {"TAX", "Tax Law", "Tax disputes and compliance", categoryCorporate},
	"FIN":   {"FIN", "Financial Services Law", "Banking, securities, investments", categoryCorporate},
	"REG":   {"REG", "Regulatory Compliance", "Compliance with industry regulations", categoryCorporate},
	"INS":   {"INS", "Insurance Law", "Insurance policy and claims", categoryCorporate},
	"LIT":   {"LIT", "Litigation", "Lawsuits, court proceedings", categoryLitigation},
	"ADR":   {"ADR", "Alternative Dispute Resolution", "Arbitration, mediation, out-of-court settlement", categoryLitigation},
	"ENF":   {"ENF", "Enforcement Proceedings", "Execution of court judgments, debt collection", categoryLitigation},
	"CIV":   {"CIV", "Civil Matters", "Contract disputes, torts, personal injury", categoryCivil},
	"GEN":   {"GEN", "General Matters", "Miscellaneous, non-specific legal matters", categoryCivil},
	"CRIM":  {"CRIM", "Criminal Matters", "Criminal prosecutions, defense", categoryCriminal},
	"FAM":   {"FAM", "Family Law", "Divorce, custody, maintenance, adoption", categoryFamily},
	"IP":    {"IP", "Intellectual Property", "Patents, copyrights, trademarks", categoryIP},
	"ELRC":  {"ELRC", "Employment and Labour Relations Court", "Employment disputes, labor laws", categoryEmployment},
	"IMM":   {"IMM", "Immigration Law", "Visa, residency, citizenship", categoryHumanRight},
	"HRC":   {"HRC", "Human Rights Court/Commission", "Human rights violations, constitutional complaints", categoryHumanRight},
	"ADMIN": {"ADMIN", "Administrative Law", "Government decisions, judicial reviews", categoryAdmin},
	"CONST": {"CONST", "Constitutional Matters", "Constitutional rights and laws", categoryAdmin},
}

// LookupMatterType finds a matter type by abbreviation, case-insensitively.
func LookupMatterType(abbreviation string) (MatterType, bool) {
	mt, ok := matterTypes[strings.ToUpper(strings.TrimSpace(abbreviation))]
	return mt, ok
}

// MatterTypes returns every matter type sorted by abbreviation.
func MatterTypes() []MatterType {
	out := make([]MatterType, 0, len(matterTypes))
	for _, mt := range matterTypes {
		out = append(out, mt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Abbreviation < out[j].Abbreviation
	})
	return out
}

// MatterTypesByCategory groups the taxonomy by category.
func MatterTypesByCategory() map[string][]MatterType {
	out := make(map[string][]MatterType)
	for _, mt := range MatterTypes() {
		out[mt.Category] = append(out[mt.Category], mt)
	}
	return out
}
