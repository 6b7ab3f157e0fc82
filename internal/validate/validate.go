package validate

import (
	"regexp"
	"strings"
)

// Field limits for the application form.
const (
	minNameLen            = 2
	maxNameLen            = 50
	maxEmailLen           = 100
	maxURLLen             = 200
	minAccomplishmentsLen = 50
	maxAccomplishmentsLen = 2000
)

var (
	nameRe     = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	githubRe   = regexp.MustCompile(`^https?://(www\.)?github\.com/[a-zA-Z0-9_-]+/?$`)
	linkedinRe = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/(in|pub)/[a-zA-Z0-9_-]+/?$`)

	urlRe = regexp.MustCompile(`(?i)https?://[^\s]+`)

	// Runs of 5+ special characters and standalone digit groups of 3+ are
	// strong spam signals on a free-text application form.
	specialRunRe = regexp.MustCompile(`[^\w\s]{5,}`)
	digitGroupRe = regexp.MustCompile(`\b\d{3,}\b`)

	spamKeywordRe = regexp.MustCompile(`(?i)\b(viagra|casino|lottery|winner|congratulations|urgent|act now|click here|free money|get rich|make money fast)\b`)
)

// Name accepts 2-50 chars of letters/spaces/hyphens/apostrophes that do not
// trip the spam heuristics.
func Name(name string) bool {
	trimmed := strings.TrimSpace(name)
	return len(trimmed) >= minNameLen &&
		len(trimmed) <= maxNameLen &&
		nameRe.MatchString(trimmed) &&
		!IsSpamContent(trimmed)
}

// Email accepts a local@domain.tld shape up to 100 chars.
func Email(email string) bool {
	trimmed := strings.TrimSpace(email)
	return emailRe.MatchString(trimmed) && len(trimmed) <= maxEmailLen
}

// GitHubURL accepts a github.com profile URL up to 200 chars.
func GitHubURL(url string) bool {
	return githubRe.MatchString(url) && len(url) <= maxURLLen
}

// LinkedInURL accepts an empty string (the field is optional) or a
// linkedin.com/in or /pub profile URL up to 200 chars.
func LinkedInURL(url string) bool {
	if url == "" {
		return true
	}
	return linkedinRe.MatchString(url) && len(url) <= maxURLLen
}

// Accomplishments accepts 50-2000 chars of non-spam text with substance.
func Accomplishments(text string) bool {
	trimmed := strings.TrimSpace(text)
	return len(trimmed) >= minAccomplishmentsLen &&
		len(trimmed) <= maxAccomplishmentsLen &&
		!IsSpamContent(trimmed) &&
		HasSubstantialContent(trimmed)
}

// IsSpamContent flags text matching any one of the spam heuristics:
// a character repeated 11+ times in a row, 3+ URLs, any word longer than
// 3 chars repeated more than 5 times, a run of 5+ special characters,
// 2+ standalone digit groups of 3+ digits, or a denylisted promo keyword.
func IsSpamContent(text string) bool {
	if hasLongCharRun(text, 11) {
		return true
	}

	if len(urlRe.FindAllString(text, -1)) >= 3 {
		return true
	}

	// Word-frequency check: the same long word showing up over and over.
	counts := map[string]int{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) > 3 {
			counts[word]++
			if counts[word] > 5 {
				return true
			}
		}
	}

	return specialRunRe.MatchString(text) ||
		len(digitGroupRe.FindAllString(text, -1)) >= 2 ||
		spamKeywordRe.MatchString(text)
}

// HasSubstantialContent requires at least two sentences (fragments longer
// than 5 chars after splitting on .!?) and at least 10 distinct lowercase
// words longer than 3 chars.
func HasSubstantialContent(text string) bool {
	sentences := 0
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if len(strings.TrimSpace(s)) > 5 {
			sentences++
		}
	}

	unique := map[string]struct{}{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(word) > 3 {
			unique[word] = struct{}{}
		}
	}

	return sentences >= 2 && len(unique) >= 10
}

// hasLongCharRun reports whether any rune repeats at least n times
// consecutively. Go's RE2 engine has no backreferences, so the original
// (.)\1{10,} pattern is expressed as a scan.
func hasLongCharRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// Submission validates every field and returns one message per failure.
// An empty slice means the payload is acceptable. All fields are checked so
// the applicant sees the full list in one round trip.
func Submission(name, email, linkedin, github, accomplishments string) []string {
	var errs []string

	if name == "" || !Name(name) {
		errs = append(errs, "Invalid name provided")
	}
	if email == "" || !Email(email) {
		errs = append(errs, "Invalid email address")
	}
	if !LinkedInURL(linkedin) {
		errs = append(errs, "Invalid LinkedIn URL format")
	}
	if github == "" || !GitHubURL(github) {
		errs = append(errs, "Invalid GitHub profile URL")
	}
	if accomplishments == "" || !Accomplishments(accomplishments) {
		errs = append(errs, "Invalid or insufficient accomplishments description")
	}

	return errs
}
