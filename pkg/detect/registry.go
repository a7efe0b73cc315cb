package detect

import "regexp"

// The pattern tables below are the process-wide detection configuration.
// They are compiled once at init and never mutated afterwards, so scans can
// run concurrently with zero coordination.

type piiRule struct {
	category Category
	expr     *regexp.Regexp
}

type secretRule struct {
	category Category
	expr     *regexp.Regexp
}

// familyRule groups the patterns of one injection/exfiltration family. A
// family contributes at most one finding per scan: the first pattern in
// declaration order that matches wins, which bounds the severity signal to
// one per family.
type familyRule struct {
	category Category
	exprs    []*regexp.Regexp
}

var piiRules = []piiRule{
	{CategoryEmail, regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)},
	{CategoryPhone, regexp.MustCompile(`(?:\+?[0-9]{1,3}[ .-])?(?:\([0-9]{3}\)|[0-9]{3})[ .-][0-9]{3}[ .-][0-9]{4}\b`)},
	{CategorySSN, regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)},
	{CategoryCreditCard, regexp.MustCompile(`\b(?:[0-9]{4}[ -]?){3}[0-9]{4}\b`)},
	{CategoryNumericID, regexp.MustCompile(`\b[0-9]{7,12}\b`)},
	{CategoryIBAN, regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`)},
	{CategoryAddress, regexp.MustCompile(`(?i)\b[0-9]{1,5}\s+[a-z][a-z ]{1,30}\s(?:street|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way)\b`)},
	{CategoryPassport, regexp.MustCompile(`(?i)\bpassport\s*(?:no\.?|number|#)?[:\s]+[a-z0-9]{6,9}\b`)},
	{CategoryDriversLicense, regexp.MustCompile(`(?i)\bdriver'?s?\s+licen[cs]e\s*(?:no\.?|number|#)?[:\s]+[a-z0-9-]{5,15}\b`)},
	{CategoryMedicalRecord, regexp.MustCompile(`(?i)\b(?:mrn|medical\s+record\s*(?:no\.?|number|#)?)[:\s]+[a-z0-9-]{5,12}\b`)},
	{CategoryTaxID, regexp.MustCompile(`(?i)\b(?:ein|tin|tax\s*id)\s*[:#]?\s*[0-9]{2}-?[0-9]{7}\b`)},
	{CategoryVATNumber, regexp.MustCompile(`(?i)\bvat\s*(?:no\.?|number|reg(?:istration)?)?\s*[:#]?\s*[a-z]{2}[0-9]{8,12}\b`)},
}

var secretRules = []secretRule{
	// Vendor-specific key formats.
	{CategoryAPIKey, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{CategoryAPIKey, regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{20,}\b`)},
	{CategoryAPIKey, regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,255}\b`)},
	{CategoryAPIKey, regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)},
	{CategoryAPIKey, regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,48}\b`)},
	{CategorySecretKey, regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{5,}\b`)},
	// Generic key=value shaped assignments.
	{CategoryAPIKey, regexp.MustCompile(`(?i)\b(?:api[_-]?key|apikey|access[_-]?key|auth[_-]?token|bearer[_-]?token|client[_-]?secret)\s*[:=]\s*["']?[a-z0-9_\-./+]{12,}`)},
	{CategorySecretKey, regexp.MustCompile(`(?i)\b(?:secret[_-]?key|secret|password|passwd|pwd|private[_-]?key)\s*[:=]\s*["']?\S{8,}`)},
}

var familyRules = []familyRule{
	{CategorySQLInjection, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bunion\s+(?:all\s+)?select\b`),
		regexp.MustCompile(`(?i)\bselect\s+.{0,80}?\bfrom\b`),
		regexp.MustCompile(`(?i)\binsert\s+into\b`),
		regexp.MustCompile(`(?i)\bdrop\s+table\b`),
		regexp.MustCompile(`(?i)\bdelete\s+from\b`),
		regexp.MustCompile(`(?i)\bupdate\s+[a-z_]+\s+set\b`),
		regexp.MustCompile(`(?i)'\s*or\s+'?1'?\s*=\s*'?1`),
		regexp.MustCompile(`;\s*--`),
	}},
	{CategoryXSS, []*regexp.Regexp{
		regexp.MustCompile(`(?i)<script\b`),
		regexp.MustCompile(`(?i)\bjavascript:`),
		regexp.MustCompile(`(?i)\bon(?:error|load|click|mouseover|focus)\s*=`),
		regexp.MustCompile(`(?i)<iframe\b`),
		regexp.MustCompile(`(?i)\bdocument\.(?:cookie|location)\b`),
		regexp.MustCompile(`(?i)\beval\s*\(`),
	}},
	{CategoryJailbreak, []*regexp.Regexp{
		// Instruction override.
		regexp.MustCompile(`(?i)\bignore\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+(?:instructions|prompts|rules|directives)\b`),
		regexp.MustCompile(`(?i)\bdisregard\s+(?:all\s+)?(?:previous|your|the)\s+(?:instructions|guidelines|rules)\b`),
		regexp.MustCompile(`(?i)\bforget\s+(?:everything|all)\b`),
		// Role hijack.
		regexp.MustCompile(`(?i)\byou\s+are\s+now\s+(?:a|an|in)\b`),
		regexp.MustCompile(`(?i)\bpretend\s+(?:to\s+be|you\s+are)\b`),
		regexp.MustCompile(`(?i)\bact\s+as\s+(?:if|though)\b`),
		regexp.MustCompile(`(?i)\bdeveloper\s+mode\b`),
		// System-prompt extraction.
		regexp.MustCompile(`(?i)\b(?:reveal|show|print|repeat|display|output)\s+(?:your\s+|the\s+)?system\s+prompt\b`),
		regexp.MustCompile(`(?i)\bwhat\s+(?:is|are)\s+your\s+(?:initial\s+)?instructions\b`),
		// Privileged tag markers.
		regexp.MustCompile(`(?i)<\|(?:system|im_start|im_end|endoftext)\|>`),
		regexp.MustCompile(`(?i)\[/?(?:system|inst)\]`),
	}},
	{CategoryExfiltration, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:list|dump|export|send|extract|give)\s+(?:me\s+)?(?:all|every|each|the\s+entire)\b.{0,60}?\b(?:records?|rows?|data|entries|users?|customers?|clients?|accounts?|database|table)\b`),
		regexp.MustCompile(`(?i)\bexfiltrat(?:e|ion|ing)\b`),
		regexp.MustCompile(`(?i)\bselect\s+\*\s+from\b`),
		regexp.MustCompile(`(?i)\b(?:entire|whole|complete|full)\s+(?:database|dataset|customer\s+list|table)\b`),
	}},
}

// bulkPhrase marks prose that explicitly asks for or announces a record dump.
var bulkPhrase = regexp.MustCompile(`(?i)\b(?:all\s+(?:customer|client|user|employee)\s+(?:records|data)|entire\s+(?:database|table|dataset)|full\s+(?:export|dump)|complete\s+list\s+of)\b`)

// multiSpace splits run-aligned columns when counting fields for the bulk
// heuristic.
var multiSpace = regexp.MustCompile(`[^\S\n]{2,}`)
