package course

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// QuestionParser recovers quiz questions from free-form model output.
type QuestionParser interface {
	Parse(raw string) []engine.GeneratedQuestion
}

var (
	// Pass 1: "1. Stem" at the start of a line.
	stemRE = regexp.MustCompile(`(?m)^(\d+)\.[ \t]+(.+)$`)
	// Option label at line start or after blanks: "A)", "b.".
	optionLabelRE = regexp.MustCompile(`(?m)(?:^|[ \t])[ \t]*([A-Da-d])[.)][ \t]+`)
	// Option label opening a line: "A)", "- b.", "(C)".
	lineLabelRE = regexp.MustCompile(`(?m)^[ \t]*[\*\-•]*[ \t]*\(?([A-Da-d])[.)][ \t]+`)
	// A line that starts the answer, ending the option list.
	answerLineRE = regexp.MustCompile(`(?mi)^[ \t\*_>-]*(?:correct[ \t]+answer|answer|correct)[ \t]*\**[ \t]*:`)

	answerIndicatorRE = regexp.MustCompile(`(?i)\b(?:correct[ \t]+answer|answer|correct)[ \t]*\**[ \t]*:[ \t]*\**[ \t]*\(?([a-d])\b`)
	inlineCorrectRE   = regexp.MustCompile(`(?i)\(?\b([a-d])\)?[ \t]+is[ \t]+(?:the[ \t]+)?correct\b`)
	answerIsRE        = regexp.MustCompile(`(?i)\b(?:correct[ \t]+)?answer[ \t]+is[ \t]+\**\(?([a-d])\b`)

	// Pass 2.
	lineStemRE   = regexp.MustCompile(`^\**[ \t]*(?:(?i:q(?:uestion)?)[ \t]*)?(\d+)[ \t]*[.):][ \t]*(.*)$`)
	lineOptionRE = regexp.MustCompile(`^[\*\-•]*[ \t]*\(?([A-Da-d])[.):][ \t]*(.+)$`)
)

// ParseQuestions runs the structured pass and falls back to the line pass when
// it recovers nothing. It never fails; garbage yields an empty slice.
func ParseQuestions(raw string) []engine.GeneratedQuestion {
	raw = strings.ReplaceAll(engine.StripFences(raw), "\r\n", "\n")

	qs := StructuredParser{}.Parse(raw)
	if len(qs) == 0 {
		engine.IncrQuestionParseFallback()
		qs = LineParser{}.Parse(raw)
	}
	engine.AddQuestionsParsed(len(qs))
	if qs == nil {
		return []engine.GeneratedQuestion{}
	}
	return qs
}

// --- Pass 1 ---

// StructuredParser reads "N. stem" spans with A-D labelled options.
type StructuredParser struct{}

func (StructuredParser) Parse(raw string) []engine.GeneratedQuestion {
	var out []engine.GeneratedQuestion
	for _, sp := range splitQuestionSpans(raw) {
		q := engine.GeneratedQuestion{
			Question:      cleanText(sp.stem),
			Options:       extractOptions(sp.body),
			CorrectAnswer: findAnswer(sp.body),
		}
		if keepQuestion(q) {
			out = append(out, q)
		}
	}
	return out
}

type questionSpan struct {
	stem string
	body string // everything after the stem up to the next stem
}

// splitQuestionSpans cuts raw at each numbered stem line. Options written on
// the stem line itself are moved into the body.
func splitQuestionSpans(raw string) []questionSpan {
	locs := stemRE.FindAllStringSubmatchIndex(raw, -1)
	spans := make([]questionSpan, 0, len(locs))
	for i, loc := range locs {
		end := len(raw)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		stem, rest := cutInlineOptions(raw[loc[4]:loc[5]])
		spans = append(spans, questionSpan{stem: stem, body: rest + raw[loc[1]:end]})
	}
	return spans
}

// cutInlineOptions splits "What is X? A) a B) b" into stem and option text.
// It only cuts when at least two options follow, so a stray "A." stays in the stem.
func cutInlineOptions(stem string) (string, string) {
	for _, m := range optionLabelRE.FindAllStringSubmatchIndex(stem, -1) {
		if strings.ToUpper(stem[m[2]:m[3]]) != "A" {
			continue
		}
		rest := stem[m[0]:]
		if len(extractOptions(rest)) >= 2 {
			return stem[:m[0]], rest + "\n"
		}
		break
	}
	return stem, ""
}

// extractOptions returns the A-D options of a span in label order. Labels out
// of sequence are treated as option text. When two or more options open their
// own lines, labels inside a line ("Vitamin B. It helps") are text too.
func extractOptions(body string) []engine.QuestionOption {
	if loc := answerLineRE.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}
	labelRE := optionLabelRE
	if len(lineLabelRE.FindAllStringIndex(body, 3)) >= 2 {
		labelRE = lineLabelRE
	}

	type label struct {
		id         string
		start, end int
	}
	var labels []label
	next := byte('A')
	for _, m := range labelRE.FindAllStringSubmatchIndex(body, -1) {
		if next > 'D' {
			break
		}
		id := strings.ToUpper(body[m[2]:m[3]])
		if id[0] != next {
			continue
		}
		labels = append(labels, label{id: id, start: m[0], end: m[1]})
		next++
	}

	opts := make([]engine.QuestionOption, 0, len(labels))
	for i, l := range labels {
		stop := len(body)
		if i+1 < len(labels) {
			stop = labels[i+1].start
		}
		text := body[l.end:stop]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[:nl]
		}
		text, _ = cutAnswer(text)
		if text = cleanText(text); text != "" {
			opts = append(opts, engine.QuestionOption{ID: l.id, Text: text})
		}
	}
	return opts
}

// findAnswer returns the uppercase answer letter named in s, or "".
func findAnswer(s string) string {
	for _, re := range []*regexp.Regexp{answerIndicatorRE, answerIsRE, inlineCorrectRE} {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// --- Pass 2 ---

// LineParser walks trimmed lines: ordinal lines open a question, labelled
// lines add options, answer phrases set the answer.
type LineParser struct{}

func (LineParser) Parse(raw string) []engine.GeneratedQuestion {
	var (
		out []engine.GeneratedQuestion
		cur *engine.GeneratedQuestion
	)
	flush := func() {
		if cur != nil && keepQuestion(*cur) {
			out = append(out, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if cur != nil {
			if opt, rest, ok := parseOptionLine(line); ok {
				if !hasOption(cur.Options, opt.ID) {
					cur.Options = append(cur.Options, opt)
				}
				if a := findAnswer(rest); a != "" {
					cur.CorrectAnswer = a
				}
				continue
			}
			if a := findAnswer(line); a != "" {
				cur.CorrectAnswer = a
				continue
			}
		}
		if stem, ok := parseStemLine(line); ok {
			flush()
			cur = &engine.GeneratedQuestion{Question: stem}
			continue
		}
		// Stem wrapped onto following lines.
		if cur != nil && len(cur.Options) == 0 {
			cur.Question = strings.TrimSpace(cur.Question + " " + cleanText(line))
		}
	}
	flush()
	return out
}

// parseStemLine matches "1.", "1)", "1:", "Question 1:", "**1." prefixes.
func parseStemLine(line string) (string, bool) {
	m := lineStemRE.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return cleanText(m[2]), true
}

// parseOptionLine matches "A) text", "(a) text", "- B. text". rest is whatever
// follows an answer keyword on the same line.
func parseOptionLine(line string) (engine.QuestionOption, string, bool) {
	m := lineOptionRE.FindStringSubmatch(line)
	if m == nil {
		return engine.QuestionOption{}, "", false
	}
	text, rest := cutAnswer(m[2])
	text = cleanText(text)
	if text == "" {
		return engine.QuestionOption{}, "", false
	}
	return engine.QuestionOption{ID: strings.ToUpper(m[1]), Text: text}, rest, true
}

// --- Shared ---

// cutAnswer splits "Opt4 Correct answer: C" into the option text and the
// answer phrase. Text such as "The answer: yes" names no letter and is kept.
func cutAnswer(text string) (string, string) {
	if loc := answerIndicatorRE.FindStringIndex(text); loc != nil {
		return text[:loc[0]], text[loc[0]:]
	}
	return text, ""
}

// keepQuestion requires a stem, at least one option, and an answer that names
// one of the question's own options.
func keepQuestion(q engine.GeneratedQuestion) bool {
	if q.Question == "" || len(q.Options) == 0 || q.CorrectAnswer == "" {
		return false
	}
	return hasOption(q.Options, q.CorrectAnswer)
}

func hasOption(opts []engine.QuestionOption, id string) bool {
	for _, o := range opts {
		if o.ID == id {
			return true
		}
	}
	return false
}

// cleanText trims whitespace and markdown emphasis.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_"))
}
