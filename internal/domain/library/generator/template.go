package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"dreamtales/internal/domain/story"
)

// Namer picks the hero's name. It is the only source of variation in
// template stories.
type Namer func() string

var heroNames = []string{"Mia", "Leo", "Noa", "Sam", "Luna", "Theo", "Ella", "Max"}

// RandomNamer picks a name from the built-in list
func RandomNamer() string {
	return heroNames[rand.Intn(len(heroNames))]
}

// FixedNamer always returns name
func FixedNamer(name string) Namer {
	return func() string { return name }
}

var goalFragments = map[story.Goal]string{
	story.GoalBedtime:  "As the stars twinkled softly in the night sky, %[1]s embarked on a gentle, soothing adventure.",
	story.GoalLearning: "Through exciting discoveries and fascinating experiences, %[1]s learned valuable lessons about the world around them.",
	story.GoalSocial:   "Along the way, %[1]s met new friends and found out how good it feels to share and to listen.",
	story.GoalCalming:  "%[1]s took a slow, deep breath, and with every breath the world grew a little quieter and calmer.",
	story.GoalFun:      "With excitement and wonder, %[1]s set out on an unforgettable journey filled with surprises.",
}

var goalEndings = map[story.Goal]string{
	story.GoalBedtime: "And so, with a sleepy smile, %[1]s drifted off to dreamland. Goodnight.",
	story.GoalCalming: "And so, feeling safe and peaceful, %[1]s rested quietly until the next adventure.",
}

const defaultEnding = "And so, with hearts full of joy and minds full of wonder, %[1]s and friends lived happily ever after."

// TemplateGenerator composes story text from fixed fragments chosen by goal
type TemplateGenerator struct {
	namer Namer
}

func NewTemplateGenerator(namer Namer) *TemplateGenerator {
	if namer == nil {
		namer = RandomNamer
	}
	return &TemplateGenerator{namer: namer}
}

func (t *TemplateGenerator) Name() string { return string(StrategyTemplate) }

func (t *TemplateGenerator) Generate(_ context.Context, params story.Params) (string, error) {
	return t.Compose(params), nil
}

// Compose builds the text. The structure depends only on params.
func (t *TemplateGenerator) Compose(params story.Params) string {
	hero := t.namer()
	topic := strings.TrimSpace(params.Topic)

	fragment, ok := goalFragments[params.Goal]
	if !ok {
		fragment = goalFragments[story.GoalFun]
	}
	ending, ok := goalEndings[params.Goal]
	if !ok {
		ending = defaultEnding
	}

	paragraphs := []string{
		fmt.Sprintf("Once upon a time, there was a wonderful story about %s. %s", topic, fmt.Sprintf(fragment, hero)),
		fmt.Sprintf("This enchanting tale, perfect for %d year olds, unfolds over %s of magical storytelling. %s learned that friendship, courage, and kindness could overcome any challenge.",
			params.Age, strings.ToLower(string(params.Duration)), hero),
		fmt.Sprintf(ending, hero),
	}
	return strings.Join(paragraphs, "\n\n")
}
