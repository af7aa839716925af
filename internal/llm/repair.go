package llm

// scanState tracks string-literal context while scanning candidate JSON.
// A regex cannot do this correctly: brackets inside string literals (and
// escaped quotes inside them) must not count toward nesting.
type scanState int

const (
	stateDefault scanState = iota
	stateInString
	stateEscaped
)

// RepairArray makes a possibly-truncated JSON array string parseable. Model
// output cut off by a token limit usually ends mid-element; the scan finds
// the last offset where a top-level object closed, drops the dangling
// partial element after it, and appends the closers still open. Balanced
// input is returned unchanged.
func RepairArray(s string) string {
	var stack []byte
	state := stateDefault
	lastComplete := -1

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch state {
		case stateInString:
			switch ch {
			case '\\':
				state = stateEscaped
			case '"':
				state = stateDefault
			}
		case stateEscaped:
			state = stateInString
		default:
			switch ch {
			case '"':
				state = stateInString
			case '[', '{':
				stack = append(stack, ch)
			case ']', '}':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
				// A '}' landing back at depth 1 means a complete
				// top-level array element just ended.
				if ch == '}' && len(stack) == 1 {
					lastComplete = i + 1
				}
			}
		}
	}

	if len(stack) == 0 && state == stateDefault {
		return s
	}

	if lastComplete >= 0 {
		// Only the outer '[' is open at lastComplete, so a single ']'
		// balances the truncated prefix.
		return s[:lastComplete] + "]"
	}

	// No complete element to fall back to; close whatever is open and let
	// the parser decide if the result is usable.
	repaired := s
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			repaired += "]"
		} else {
			repaired += "}"
		}
	}
	return repaired
}
