// Package scope decides whether a learner's question belongs to the physics syllabus.
package scope

import (
	"regexp"
	"strings"
	"unicode"
)

// RefusalMessage is returned to the learner whenever a query is out of scope
const RefusalMessage = "I can only help with questions about the physics lessons on this site, " +
	"such as vectors, motion, forces, energy, waves, electricity and the other topics in the syllabus. " +
	"Try asking about one of those."

// Reason labels explain a decision in logs
const (
	ReasonInSyllabus   = "in_syllabus"
	ReasonEmpty        = "empty_query"
	ReasonNoTopicTerms = "no_syllabus_terms"
	ReasonOffTopic     = "off_topic"
	ReasonManipulation = "manipulation"
)

// Decision is the outcome of classifying one query
type Decision struct {
	Allowed bool
	Refusal string
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonInSyllabus}
}

func refuse(reason string) Decision {
	return Decision{Allowed: false, Refusal: RefusalMessage, Reason: reason}
}

// offTopicRequests are request shapes that are never syllabus material even
// when they mention a physics word ("write me a poem about gravity").
var offTopicRequests = map[string]*regexp.Regexp{
	"creative_writing": regexp.MustCompile(`(?i)\b(write|compose)\s+(me\s+)?(an?\s+)?(poem|song|story|essay|joke|rap|haiku|cover\s+letter)`),
	"coding":           regexp.MustCompile(`(?i)\b(write|fix|debug)\s+(me\s+)?(some\s+|a\s+|the\s+|this\s+|my\s+)?(code|program|script|function|sql|javascript|python)\b`),
	"food":             regexp.MustCompile(`(?i)\b(recipe|recipes|how\s+to\s+(cook|bake))\b`),
	"entertainment":    regexp.MustCompile(`(?i)\b(recommend|suggest)\s+(me\s+)?(an?\s+|some\s+)?(movie|movies|film|films|show|shows|series|song|songs|game|games|book|books)\b`),
	"sports_results":   regexp.MustCompile(`(?i)\bwho\s+(won|will\s+win)\b`),
	"finance":          regexp.MustCompile(`(?i)\b((stock|stocks|crypto|bitcoin|ethereum)\s+(tips?|picks?|price|prices|prediction)|prices?\s+of\s+(bitcoin|crypto|ethereum|stocks?))\b`),
	"dating":           regexp.MustCompile(`(?i)\b(dating|girlfriend|boyfriend|date\s+ideas?)\b`),
	"weather":          regexp.MustCompile(`(?i)\bweather\s+(today|tomorrow|forecast|in\s+\w+)\b`),
	"shopping":         regexp.MustCompile(`(?i)\b((current|today'?s|latest|market)\s+prices?|prices?\s+of\s+(gold|silver|oil|petrol|gasoline)|where\s+(can|do)\s+i\s+buy)\b`),
	"traffic":          regexp.MustCompile(`(?i)\b(speed\s+limits?|speeding\s+tickets?|traffic\s+(laws?|rules?|fines?))\b`),
}

// weakTerms are syllabus words with common everyday meanings ("current price",
// "power supply"). Alone they admit a query only when it is phrased as a study
// question; a second syllabus term or any strong term always admits it.
var weakTerms = []string{"current", "power", "speed", "work", "field", "period", "light", "charge"}

// studyCues mark a query as a request about the subject matter
var studyCues = map[string]struct{}{
	"explain": {}, "define": {}, "definition": {}, "derive": {}, "derivation": {}, "formula": {},
	"equation": {}, "calculate": {}, "calculation": {}, "compute": {}, "physical": {}, "law": {},
	"lesson": {},
}

// questionFiller is what a bare definitional question ("what is power?") adds
// around its term, after words() has stripped plurals ("does" becomes "doe").
var questionFiller = map[string]struct{}{
	"what": {}, "s": {}, "is": {}, "are": {}, "was": {}, "the": {}, "a": {}, "an": {}, "of": {},
	"doe": {}, "do": {}, "mean": {}, "meaning": {}, "by": {}, "in": {}, "tell": {}, "me": {},
	"about": {}, "term": {}, "word": {},
}

// defaultTopicTerms is the in-syllabus vocabulary. Terms are matched on
// normalised word boundaries; multi-word terms match as phrases.
var defaultTopicTerms = []string{
	// foundations
	"physics", "unit", "dimension", "dimensional analysis", "scalar", "vector",
	"magnitude", "direction", "component", "resultant", "significant figure", "measurement",
	"uncertainty", "scientific notation",
	// kinematics
	"kinematics", "motion", "position", "displacement", "distance", "velocity", "speed",
	"acceleration", "projectile", "trajectory", "free fall", "freefall", "relative motion",
	"uniform motion", "reference frame",
	// dynamics
	"dynamics", "force", "newton", "inertia", "mass", "weight", "gravity", "gravitational",
	"friction", "normal force", "tension", "free body diagram", "net force",
	"equilibrium", "torque", "centripetal", "circular motion", "spring", "hooke",
	// energy and momentum
	"energy", "kinetic", "potential", "work", "power", "joule", "watt", "conservation",
	"momentum", "impulse", "collision", "elastic", "inelastic",
	// rotation and gravitation
	"rotation", "rotational", "angular", "moment of inertia", "orbit", "orbital", "kepler",
	// oscillations and waves
	"oscillation", "pendulum", "harmonic", "frequency", "period", "amplitude", "wave",
	"wavelength", "sound", "doppler", "interference", "diffraction", "resonance", "standing wave",
	// optics
	"light", "optics", "reflection", "refraction", "lens", "mirror", "snell", "focal",
	// thermodynamics
	"heat", "temperature", "thermal", "thermodynamics", "entropy", "specific heat",
	"ideal gas", "pressure", "kelvin",
	// fluids
	"fluid", "buoyancy", "archimedes", "density", "bernoulli",
	// electricity and magnetism
	"charge", "electric", "electricity", "electrostatic", "coulomb", "field", "voltage",
	"potential difference", "current", "resistance", "resistor", "ohm", "circuit",
	"capacitor", "capacitance", "magnetic", "magnetism", "magnet", "induction", "faraday",
	"electromagnetic",
	// modern
	"photon", "quantum", "relativity", "atom", "nucleus", "radioactive", "half life",
}

// Option configures a Classifier
type Option func(*Classifier)

// WithSyllabus extends the classifier with terms and patterns from a syllabus file
func WithSyllabus(s *Syllabus) Option {
	return func(c *Classifier) {
		if s == nil {
			return
		}
		for _, t := range s.Allow.Terms {
			c.addTerm(t)
		}
		for _, t := range s.Deny.Terms {
			c.addDenyTerm(t)
		}
		for name, re := range s.compiled {
			c.offTopic["syllabus_"+name] = re
		}
	}
}

// Classifier holds the allow vocabulary and deny patterns.
// It is immutable after New returns and safe for concurrent use.
type Classifier struct {
	terms     map[string]struct{}
	weak      map[string]struct{}
	phrases   []string
	denyTerms map[string]struct{}
	offTopic  map[string]*regexp.Regexp
}

// New creates a Classifier with the built-in physics vocabulary
func New(opts ...Option) *Classifier {
	c := &Classifier{
		terms:     make(map[string]struct{}, len(defaultTopicTerms)),
		weak:      make(map[string]struct{}, len(weakTerms)),
		denyTerms: make(map[string]struct{}),
		offTopic:  make(map[string]*regexp.Regexp, len(offTopicRequests)),
	}
	for name, re := range offTopicRequests {
		c.offTopic[name] = re
	}
	for _, t := range defaultTopicTerms {
		c.addTerm(t)
	}
	for _, t := range weakTerms {
		c.weak[t] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) addTerm(term string) {
	ws := words(term)
	switch len(ws) {
	case 0:
	case 1:
		c.terms[ws[0]] = struct{}{}
	default:
		c.phrases = append(c.phrases, strings.Join(ws, " "))
	}
}

func (c *Classifier) addDenyTerm(term string) {
	if w := words(term); len(w) > 0 {
		c.denyTerms[strings.Join(w, " ")] = struct{}{}
	}
}

// Classify decides whether the query is in scope.
// Manipulation attempts and off-topic request shapes are refused first;
// otherwise the query must mention a syllabus term. A lone weak term needs
// a study cue or a bare definitional question around it.
func (c *Classifier) Classify(query string) Decision {
	if strings.TrimSpace(query) == "" {
		return refuse(ReasonEmpty)
	}

	if _, blocked := blockingDetection(query); blocked {
		return refuse(ReasonManipulation)
	}

	for _, re := range c.offTopic {
		if re.MatchString(query) {
			return refuse(ReasonOffTopic)
		}
	}

	ws := words(query)
	joined := " " + strings.Join(ws, " ") + " "
	for term := range c.denyTerms {
		if strings.Contains(joined, " "+term+" ") {
			return refuse(ReasonOffTopic)
		}
	}

	for _, p := range c.phrases {
		if strings.Contains(joined, " "+p+" ") {
			return allow()
		}
	}

	weak := make(map[string]struct{})
	for _, w := range ws {
		if _, ok := c.terms[w]; !ok {
			continue
		}
		if _, ok := c.weak[w]; !ok {
			return allow()
		}
		weak[w] = struct{}{}
	}

	switch {
	case len(weak) > 1:
		return allow()
	case len(weak) == 1 && (hasStudyCue(ws) || isBareQuestion(ws, weak)):
		return allow()
	}
	return refuse(ReasonNoTopicTerms)
}

func hasStudyCue(ws []string) bool {
	for _, w := range ws {
		if _, ok := studyCues[w]; ok {
			return true
		}
	}
	return false
}

// isBareQuestion reports whether every word is either filler or one of terms
func isBareQuestion(ws []string, terms map[string]struct{}) bool {
	for _, w := range ws {
		if _, ok := terms[w]; ok {
			continue
		}
		if _, ok := questionFiller[w]; ok {
			continue
		}
		if _, ok := studyCues[w]; ok {
			continue
		}
		return false
	}
	return true
}

// TermCount returns the number of single-word and phrase terms in the vocabulary
func (c *Classifier) TermCount() int {
	return len(c.terms) + len(c.phrases)
}

var defaultClassifier = New()

// Classify runs the built-in classifier
func Classify(query string) Decision {
	return defaultClassifier.Classify(query)
}

// words lowercases text, splits on anything that is not a letter or digit,
// and strips plural "s" so "forces" matches "force".
func words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for i, f := range fields {
		if len([]rune(f)) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			fields[i] = strings.TrimSuffix(f, "s")
		}
	}
	return fields
}
