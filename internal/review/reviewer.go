// Package review asks a language model to review, security-scan or roast a
// source file, using the file's structure and the project style guide as
// context.
package review

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// Input is one file sent for review.
type Input struct {
	Path string
	Code string
	// Language is the display name of the file's language; empty means
	// "General".
	Language string
	// Structure is the human-readable structure summary of the file.
	Structure string
	// StyleRules are the style guide excerpts that apply.
	StyleRules []string
}

func (in Input) language() string {
	if in.Language == "" {
		return "General"
	}
	return in.Language
}

// Reviewer builds prompts and interprets model replies.
type Reviewer struct {
	llm Completer
	log logrus.FieldLogger
}

// NewReviewer returns a reviewer backed by llm. A nil log uses the logrus
// standard logger.
func NewReviewer(llm Completer, log logrus.FieldLogger) *Reviewer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reviewer{llm: llm, log: log}
}

const reviewPrompt = `
You are a Senior %s Architect reviewing code for project alignment and quality.

CONTEXT:
- File Structure: %s
- Project Style Rules:
  - %s

TASK:
Review the ENTIRE file for:
1. Project alignment: does the code follow consistent patterns, naming conventions, and architecture?
2. Bugs and logic errors
3. Security vulnerabilities
4. Code quality: readability, maintainability, proper error handling
5. Style rule compliance (see above)

Return a JSON object with a list of "comments".
For each issue, provide:
- 'line_number': The ABSOLUTE line number in the file (1-based).
- 'suggestion': A short, actionable suggestion.
- 'fixed_code': The corrected line(s) of code.
- 'severity': One of "error", "warning", "info", or "hint".
  - "error": bugs, crashes, security vulnerabilities
  - "warning": code smells, poor patterns, potential issues
  - "info": style/readability improvements
  - "hint": optional suggestions, nice-to-haves

CRITICAL:
- Output MUST be valid JSON.
- If the code is good, return an empty list: { "comments": [] }
- Review the WHOLE file, not just parts of it.
`

const securityPrompt = `
You are a Senior Application Security Engineer specializing in %s.

CONTEXT:
- Code Structure: %s

TASK:
Perform a thorough security audit of the provided code. Focus on OWASP Top 10 vulnerabilities:
1. SQL Injection
2. Cross-Site Scripting (XSS)
3. Path Traversal / Directory Traversal
4. Hardcoded Secrets (API keys, passwords, tokens)
5. Command Injection (os.system, exec, eval, child_process)
6. Insecure Deserialization (pickle, yaml.load, eval)
7. Broken Access Control
8. Sensitive Data Exposure (logging secrets, error messages leaking info)
9. Insecure Cryptography (weak hashing, hardcoded IVs, ECB mode)
10. Server-Side Request Forgery (SSRF)

Return a JSON object with a list of "comments".
For each vulnerability found, provide:
- 'line_number': The ABSOLUTE line number (1-based).
- 'suggestion': Description of the vulnerability and how to fix it.
- 'fixed_code': The secure version of the code.
- 'severity': One of "error", "warning", "info", or "hint".
  - "error": confirmed vulnerabilities (injection, hardcoded secrets, command injection)
  - "warning": likely vulnerabilities or unsafe patterns
  - "info": security best practice suggestions
  - "hint": minor hardening suggestions

CRITICAL:
- Output MUST be valid JSON.
- If the code has no security issues, return: { "comments": [] }
- Only report real security concerns, not general code quality.
`

const roastPrompt = `
You are Linus Torvalds.
The user has sent you some code. It is probably terrible.
Your job is to ROAST it. Be brutal, be technical, be funny, but also be educational (deep down).

Rules:
- Use CAPS for emphasis.
- Question their life choices.
- Compare their code to spaghetti, garbage, or worse.
- BUT, point out actual flaws (logic, variable names, architecture).
- Keep it under 200 words.
`

// Review checks the whole file for alignment, bugs, security and style.
func (r *Reviewer) Review(ctx context.Context, in Input) (Response, error) {
	rules := strings.Join(in.StyleRules, "\n  - ")
	return r.comments(ctx, "review", in, Prompt{
		System: fmt.Sprintf(reviewPrompt, in.language(), in.Structure, rules),
		User:   fmt.Sprintf("FILE: %s\n\nCODE:\n%s", in.Path, in.Code),
		JSON:   true,
	})
}

// SecurityScan audits the file against the OWASP Top 10.
func (r *Reviewer) SecurityScan(ctx context.Context, in Input) (Response, error) {
	return r.comments(ctx, "security scan", in, Prompt{
		System: fmt.Sprintf(securityPrompt, in.language(), in.Structure),
		User:   fmt.Sprintf("FILE: %s\n\nCODE:\n%s", in.Path, in.Code),
		JSON:   true,
	})
}

// Roast returns a free-text roast of the file.
func (r *Reviewer) Roast(ctx context.Context, in Input) (string, error) {
	r.log.WithField("file", in.Path).Info("roasting")
	out, err := r.llm.Complete(ctx, Prompt{
		System: roastPrompt,
		User:   fmt.Sprintf("FILE: %s\nCONTENT:\n%s", in.Path, in.Code),
	})
	if err != nil {
		return "", fmt.Errorf("roast %s: %w", in.Path, err)
	}
	return out, nil
}

func (r *Reviewer) comments(ctx context.Context, task string, in Input, p Prompt) (Response, error) {
	log := r.log.WithFields(logrus.Fields{"file": in.Path, "task": task})
	log.Info("calling LLM")

	raw, err := r.llm.Complete(ctx, p)
	if err != nil {
		return Response{}, fmt.Errorf("%s %s: %w", task, in.Path, err)
	}

	resp, ok := ParseResponse(raw)
	if !ok {
		log.WithField("response", truncate(CleanJSON(raw), 200)).Warn("LLM returned unparseable response")
		return resp, nil
	}
	log.WithField("comments", len(resp.Comments)).Debug("LLM response parsed")
	return resp, nil
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
