package compose

import "github.com/ConnorBritain/pidgeon/internal/schema"

// groupStack is the state machine tracking segment-group scopes while the
// message composer walks a trigger event's rule list. A group rule pushes a
// frame recording whether the group was included; member rules consult the
// top frame before their own inclusion is even evaluated. The schema encodes
// groups as open scopes keyed by nesting level, not balanced brackets, so
// frames are popped by level comparison when the walk returns to a shallower
// rule.
type groupStack struct {
	frames []groupFrame
}

type groupFrame struct {
	level    int
	included bool
}

// sync pops every frame opened at or below the depth of the rule about to be
// processed. A rule at level N closes any group whose own rule sat at level
// >= N, because group members live one level deeper than the group rule.
func (s *groupStack) sync(rule schema.SegmentRule) {
	for len(s.frames) > 0 && s.frames[len(s.frames)-1].level >= rule.NestingLevel {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// push opens a group scope.
func (s *groupStack) push(rule schema.SegmentRule, included bool) {
	s.frames = append(s.frames, groupFrame{level: rule.NestingLevel, included: included})
}

// suppressed reports whether the innermost enclosing group was excluded.
// When it was, member rules are skipped outright; their own optionality is
// never consulted.
func (s *groupStack) suppressed() bool {
	return len(s.frames) > 0 && !s.frames[len(s.frames)-1].included
}

func (s *groupStack) depth() int { return len(s.frames) }
