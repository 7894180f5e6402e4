// Package model contains domain models passed between layers.
package model

import "fmt"

// Skill is one of the fixed competency dimensions assessed per subject.
// Keeping this a closed enum (rather than free-form strings) lets the
// compiler catch a missing case when skill-specific behavior is added.
type Skill int

const (
	SkillCommunication Skill = iota
	SkillCollaboration
	SkillLeadership
	SkillAdaptability
	SkillProblemSolving
	SkillCreativity
	SkillResilience

	skillCount
)

// SkillCount is the number of assessed skills.
const SkillCount = int(skillCount)

var skillNames = [skillCount]string{
	SkillCommunication:  "communication",
	SkillCollaboration:  "collaboration",
	SkillLeadership:     "leadership",
	SkillAdaptability:   "adaptability",
	SkillProblemSolving: "problem_solving",
	SkillCreativity:     "creativity",
	SkillResilience:     "resilience",
}

// AllSkills returns every assessed skill in declaration order.
func AllSkills() []Skill {
	skills := make([]Skill, 0, skillCount)
	for s := Skill(0); s < skillCount; s++ {
		skills = append(skills, s)
	}
	return skills
}

// String returns the wire name of the skill.
func (s Skill) String() string {
	if s < 0 || s >= skillCount {
		return fmt.Sprintf("skill(%d)", int(s))
	}
	return skillNames[s]
}

// Valid reports whether s is a known skill.
func (s Skill) Valid() bool {
	return s >= 0 && s < skillCount
}

// ParseSkill maps a wire name back to a Skill.
func ParseSkill(name string) (Skill, error) {
	for s, n := range skillNames {
		if n == name {
			return Skill(s), nil
		}
	}
	return 0, fmt.Errorf("unknown skill %q", name)
}

// MarshalText implements encoding.TextMarshaler so skills serialize as
// their wire names in JSON payloads.
func (s Skill) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid skill %d", int(s))
	}
	return []byte(skillNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Skill) UnmarshalText(text []byte) error {
	parsed, err := ParseSkill(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
