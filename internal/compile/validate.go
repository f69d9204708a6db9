// Package compile implements the per-scene compilation and isolation
// layer. Every scene compiles against only its own source; one broken
// scene degrades to a placeholder and never touches its neighbors.
package compile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/davidrioja/reelforge/internal/core"
)

// forbiddenImports are module specifiers generated scene code must not
// pull in. Scenes run inside the player sandbox; host access is not
// available there.
var forbiddenImports = []string{
	"fs", "child_process", "path", "os", "net", "http", "https", "process",
}

var (
	importRe        = regexp.MustCompile(`(?m)^\s*import\s+(?:[^'"]+from\s+)?['"]([^'"]+)['"]`)
	requireRe       = regexp.MustCompile(`\brequire\s*\(`)
	exportDefaultRe = regexp.MustCompile(`\bexport\s+default\b`)
)

// Validate performs the structural compile check for one scene's source.
// It is deterministic and pure: same code in, same result out, no state
// shared with any other scene's compilation.
func Validate(sceneID core.SceneID, code string) core.CompilationResult {
	fail := func(msg string, loc *core.ErrorLocation) core.CompilationResult {
		return core.CompilationResult{
			SceneID:  sceneID,
			Success:  false,
			Message:  msg,
			Location: loc,
		}
	}

	if strings.TrimSpace(code) == "" {
		return fail("scene code is empty", nil)
	}

	if loc, err := checkDelimiters(code); err != nil {
		return fail(err.Error(), loc)
	}

	switch n := len(exportDefaultRe.FindAllStringIndex(code, -1)); {
	case n == 0:
		return fail("scene module has no default export", nil)
	case n > 1:
		line := lineOf(code, exportDefaultRe.FindAllStringIndex(code, -1)[1][0])
		return fail("scene module has more than one default export", &core.ErrorLocation{Line: line})
	}

	for _, m := range importRe.FindAllStringSubmatchIndex(code, -1) {
		spec := code[m[2]:m[3]]
		for _, banned := range forbiddenImports {
			if spec == banned || strings.HasPrefix(spec, "node:") {
				return fail(fmt.Sprintf("forbidden import %q", spec),
					&core.ErrorLocation{Line: lineOf(code, m[0])})
			}
		}
	}

	if m := requireRe.FindStringIndex(code); m != nil {
		return fail("require() is not available in scene modules",
			&core.ErrorLocation{Line: lineOf(code, m[0])})
	}

	if !strings.Contains(code, "return") {
		return fail("scene component renders nothing (no return statement)", nil)
	}

	return core.CompilationResult{SceneID: sceneID, Success: true}
}

// checkDelimiters scans for unbalanced brackets outside strings and
// comments and reports the first mismatch with a line hint.
func checkDelimiters(code string) (*core.ErrorLocation, error) {
	type open struct {
		ch   byte
		line int
	}
	var stack []open
	line := 1

	const (
		stCode = iota
		stSingle
		stDouble
		stBacktick
		stLineComment
		stBlockComment
	)
	state := stCode

	closerFor := map[byte]byte{')': '(', ']': '[', '}': '{'}

	for i := 0; i < len(code); i++ {
		c := code[i]
		if c == '\n' {
			line++
			if state == stLineComment {
				state = stCode
			}
			continue
		}

		switch state {
		case stSingle:
			if c == '\\' {
				i++
			} else if c == '\'' {
				state = stCode
			}
		case stDouble:
			if c == '\\' {
				i++
			} else if c == '"' {
				state = stCode
			}
		case stBacktick:
			if c == '\\' {
				i++
			} else if c == '`' {
				state = stCode
			}
		case stBlockComment:
			if c == '*' && i+1 < len(code) && code[i+1] == '/' {
				state = stCode
				i++
			}
		case stLineComment:
			// consumed until newline above
		case stCode:
			switch c {
			case '\'':
				state = stSingle
			case '"':
				state = stDouble
			case '`':
				state = stBacktick
			case '/':
				if i+1 < len(code) {
					switch code[i+1] {
					case '/':
						state = stLineComment
						i++
					case '*':
						state = stBlockComment
						i++
					}
				}
			case '(', '[', '{':
				stack = append(stack, open{ch: c, line: line})
			case ')', ']', '}':
				want := closerFor[c]
				if len(stack) == 0 {
					return &core.ErrorLocation{Line: line},
						fmt.Errorf("unexpected %q with no matching opener", string(c))
				}
				top := stack[len(stack)-1]
				if top.ch != want {
					return &core.ErrorLocation{Line: line},
						fmt.Errorf("mismatched %q, expected closer for %q opened at line %d",
							string(c), string(top.ch), top.line)
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	if state == stSingle || state == stDouble || state == stBacktick {
		return &core.ErrorLocation{Line: line}, fmt.Errorf("unterminated string literal")
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &core.ErrorLocation{Line: top.line},
			fmt.Errorf("unclosed %q opened at line %d", string(top.ch), top.line)
	}
	return nil, nil
}

func lineOf(code string, offset int) int {
	return strings.Count(code[:offset], "\n") + 1
}
