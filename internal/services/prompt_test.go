package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestScoringPromptCarriesInputsAndThresholds(t *testing.T) {
	msgs := NewPromptBuilder(StrictThresholds).BuildScoringMessages("JD: Go and Kafka", "RESUME: Jane")

	require.Len(t, msgs, 2)
	user := msgs[1].Content
	assert.Contains(t, user, "JD: Go and Kafka")
	assert.Contains(t, user, "RESUME: Jane")
	assert.Contains(t, user, "75")
	assert.Contains(t, user, "50")
	assert.Contains(t, user, "40% of Core skills")
	assert.NotContains(t, user, "%!")
}

func TestClassificationPromptSamplesText(t *testing.T) {
	long := strings.Repeat("a", classificationSampleRunes) + "TAIL"
	msgs := NewPromptBuilder(StandardThresholds).BuildClassificationMessages(long)

	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[1].Content, "TAIL")
}

func TestToGeminiContentsSplitsSystemInstruction(t *testing.T) {
	system, contents := toGeminiContents([]ChatMessage{
		{Role: RoleSystem, Content: "be strict"},
		{Role: RoleUser, Content: "score this"},
		{Role: RoleAssistant, Content: "{}"},
	})

	assert.Equal(t, "be strict", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}
