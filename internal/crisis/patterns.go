package crisis

import "regexp"

// indicatorPattern is a compiled regex with the crisis category it signals,
// the risk level it implies on its own, and a confidence weight.
type indicatorPattern struct {
	re     *regexp.Regexp
	label  string
	level  RiskLevel
	weight float64
}

// indicatorPatterns are scanned in order; a single strong match is enough to
// raise the assessed level.
var indicatorPatterns = []indicatorPattern{
	// Suicidal ideation, explicit statements.
	{regexp.MustCompile(`(?i)\b(want\s+to\s+die|wish\s+i\s+(was|were)\s+dead|kill\s+myself)\b`), "suicidal_ideation:direct", RiskHigh, 0.95},
	{regexp.MustCompile(`(?i)\b(end\s+it\s+all|not\s+worth\s+living|better\s+off\s+dead)\b`), "suicidal_ideation:direct", RiskHigh, 0.95},
	{regexp.MustCompile(`(?i)\b(suicide|suicidal|end\s+my\s+life|take\s+my\s+(own\s+)?life)\b`), "suicidal_ideation:direct", RiskHigh, 0.95},
	{regexp.MustCompile(`(?i)\b(planning\s+to\s+die|ready\s+to\s+die|time\s+to\s+go)\b`), "suicidal_ideation:plan", RiskHigh, 0.9},
	{regexp.MustCompile(`(?i)\b(no\s+reason\s+to\s+live|life\s+is\s+meaningless|pointless\s+to\s+continue)\b`), "suicidal_ideation:passive", RiskHigh, 0.85},
	{regexp.MustCompile(`(?i)\b(everyone\s+would\s+be\s+better\s+off( without\s+me)?|burden\s+to\s+everyone)\b`), "suicidal_ideation:burden", RiskHigh, 0.8},
	{regexp.MustCompile(`(?i)\b(can'?t\s+take\s+it\s+anymore|reached\s+my\s+limit)\b`), "suicidal_ideation:exhaustion", RiskMedium, 0.7},
	{regexp.MustCompile(`(?i)\b(don'?t\s+want\s+to\s+be\s+here|wish\s+i\s+wasn'?t\s+born)\b`), "suicidal_ideation:passive", RiskMedium, 0.7},
	{regexp.MustCompile(`(?i)\b(tired\s+of\s+living|exhausted\s+by\s+life|what'?s\s+the\s+point)\b`), "suicidal_ideation:passive", RiskMedium, 0.6},

	// Self harm.
	{regexp.MustCompile(`(?i)\b(cutting\s+myself|hurt(ing)?\s+myself|harm(ing)?\s+myself)\b`), "self_harm:active", RiskHigh, 0.95},
	{regexp.MustCompile(`(?i)\bself[\s-]?(harm|injury|mutilation)\b`), "self_harm:active", RiskHigh, 0.9},
	{regexp.MustCompile(`(?i)\b(urge\s+to\s+cut|want\s+to\s+hurt\s+myself|need\s+to\s+cut)\b`), "self_harm:urge", RiskHigh, 0.85},
	{regexp.MustCompile(`(?i)\b(deserve\s+pain|need\s+to\s+feel\s+pain|punish\s+myself)\b`), "self_harm:urge", RiskMedium, 0.7},
	{regexp.MustCompile(`(?i)\b(thinking\s+about\s+cutting|tempted\s+to\s+hurt)\b`), "self_harm:ideation", RiskMedium, 0.65},

	// Severe depression.
	{regexp.MustCompile(`(?i)\b(completely\s+hopeless|utter\s+despair|total\s+darkness)\b`), "severe_depression:hopeless", RiskMedium, 0.75},
	{regexp.MustCompile(`(?i)\b(can'?t\s+function|can'?t\s+get\s+out\s+of\s+bed)\b`), "severe_depression:impairment", RiskMedium, 0.7},
	{regexp.MustCompile(`(?i)\b(feel\s+nothing|numb\s+to\s+everything|emotionally\s+dead)\b`), "severe_depression:numbness", RiskMedium, 0.65},
	{regexp.MustCompile(`(?i)\b(lost\s+all\s+hope|no\s+hope\s+left|no\s+future)\b`), "severe_depression:hopeless", RiskMedium, 0.65},
	{regexp.MustCompile(`(?i)\bhopeless\b`), "severe_depression:hopeless", RiskLow, 0.5},

	// Panic.
	{regexp.MustCompile(`(?i)\b(panic\s+attack|can'?t\s+breathe|heart\s+(is\s+)?racing)\b`), "panic:acute", RiskMedium, 0.75},
	{regexp.MustCompile(`(?i)\b(losing\s+control|going\s+crazy|losing\s+my\s+mind)\b`), "panic:acute", RiskMedium, 0.6},
	{regexp.MustCompile(`(?i)\b(overwhelming\s+panic|intense\s+fear|hyperventilating)\b`), "panic:acute", RiskLow, 0.55},

	// Domestic violence.
	{regexp.MustCompile(`(?i)\b((he|she|they)\s+hit\s+me|being\s+abused|domestic\s+violence)\b`), "domestic_violence:active", RiskHigh, 0.9},
	{regexp.MustCompile(`(?i)\b(afraid\s+for\s+my\s+life|threatened\s+to\s+(hurt|kill)\s+me)\b`), "domestic_violence:threat", RiskHigh, 0.9},
	{regexp.MustCompile(`(?i)\b(abusive\s+relationship|won'?t\s+let\s+me\s+leave|scared\s+of\s+(him|her|them))\b`), "domestic_violence:pattern", RiskMedium, 0.7},

	// Substance abuse.
	{regexp.MustCompile(`(?i)\b(overdose|overdosed)\b`), "substance_abuse:acute", RiskHigh, 0.9},
	{regexp.MustCompile(`(?i)\b(can'?t\s+stop\s+(drinking|using)|need\s+a\s+fix)\b`), "substance_abuse:dependence", RiskMedium, 0.7},
	{regexp.MustCompile(`(?i)\b(relapsed|fell\s+off\s+the\s+wagon|back\s+to\s+using)\b`), "substance_abuse:relapse", RiskLow, 0.6},

	// General distress.
	{regexp.MustCompile(`(?i)\b(falling\s+apart|can'?t\s+cope|at\s+the\s+end\s+of\s+my\s+rope)\b`), "general_distress", RiskLow, 0.5},
	{regexp.MustCompile(`(?i)\b(nobody\s+cares|all\s+alone|no\s+one\s+would\s+notice)\b`), "general_distress:isolation", RiskLow, 0.5},
}

// contextHint marks caller-supplied context that raises the combined
// emotional/contextual signal by one level.
type contextHint struct {
	re    *regexp.Regexp
	label string
}

var contextHints = []contextHint{
	{regexp.MustCompile(`(?i)\b(recent[\s_-]?loss|recently\s+lost|death\s+in\s+(the\s+)?family|bereave)`), "context:recent_loss"},
	{regexp.MustCompile(`(?i)\b(prior[\s_-]?crisis|previous\s+crisis|crisis\s+history|past\s+attempt)`), "context:prior_crisis_flag"},
	{regexp.MustCompile(`(?i)\b(relationship\s+ended|divorce|breakup|lost\s+my\s+job|evicted)\b`), "context:recent_upheaval"},
}

// protectiveHints mark statements of support, coping, or safety planning.
// They damp the emotional/contextual signal by one level; they never lower
// a lexical indicator match.
var protectiveHints = []contextHint{
	{regexp.MustCompile(`(?i)\b(would\s+never\s+act\s+on|not\s+going\s+to\s+hurt\s+myself)\b`), "protective:no_intent"},
	{regexp.MustCompile(`(?i)\b(seeing\s+(a|my)\s+therapist|my\s+therapist|in\s+counseling|started\s+therapy)\b`), "protective:treatment"},
	{regexp.MustCompile(`(?i)\b(safety\s+plan|coping\s+strategies|grounding\s+exercises)\b`), "protective:coping"},
	{regexp.MustCompile(`(?i)\b(support\s+(network|system)|friends\s+who\s+(help|listen)|family\s+support(s|ing)?\s+me)\b`), "protective:support_network"},
	{regexp.MustCompile(`(?i)\b(reasons\s+to\s+live|my\s+(kids|children|family)\s+need\s+me)\b`), "protective:reasons_to_live"},
}

// negativeEmotions are the primary-emotion clusters that, at sufficient
// intensity, contribute a risk signal on their own.
var negativeEmotions = map[string]bool{
	"sadness": true, "grief": true, "despair": true,
	"fear": true, "anxiety": true, "stress": true,
	"anger": true, "frustration": true,
}
