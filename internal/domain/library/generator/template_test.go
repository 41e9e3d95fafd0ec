package generator

import (
	"context"
	"strings"
	"testing"

	"dreamtales/internal/domain/story"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spaceParams() story.Params {
	return story.Params{
		Topic:      "space",
		Goal:       story.GoalBedtime,
		Age:        5,
		Duration:   story.DurationOneTwo,
		VoiceStyle: story.VoiceCalmMom,
		Language:   story.LanguageEnglish,
	}
}

func TestTemplateMentionsParameters(t *testing.T) {
	gen := NewTemplateGenerator(FixedNamer("Mia"))

	text, err := gen.Generate(context.Background(), spaceParams())
	require.NoError(t, err)

	assert.NotEmpty(t, text)
	assert.Contains(t, text, "space")
	assert.Contains(t, text, "5 year olds")
	assert.Contains(t, text, "1-2 minutes")
	assert.Contains(t, text, "twinkled softly")
	assert.Contains(t, text, "Goodnight")
	assert.Len(t, strings.Split(text, "\n\n"), 3)
}

func TestTemplateIsDeterministicForFixedName(t *testing.T) {
	gen := NewTemplateGenerator(FixedNamer("Leo"))
	assert.Equal(t, gen.Compose(spaceParams()), gen.Compose(spaceParams()))
}

func TestTemplateNameOnlyChangesCosmetics(t *testing.T) {
	a := NewTemplateGenerator(FixedNamer("Mia")).Compose(spaceParams())
	b := NewTemplateGenerator(FixedNamer("Leo")).Compose(spaceParams())

	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ReplaceAll(a, "Mia", "Leo"), b)
}

func TestTemplateFragmentPerGoal(t *testing.T) {
	gen := NewTemplateGenerator(FixedNamer("Sam"))
	seen := map[string]story.Goal{}
	for _, goal := range story.Goals {
		params := spaceParams()
		params.Goal = goal
		text := gen.Compose(params)
		first := strings.Split(text, "\n\n")[0]
		if other, dup := seen[first]; dup {
			t.Fatalf("goals %s and %s share the same opening", goal, other)
		}
		seen[first] = goal
	}
}
