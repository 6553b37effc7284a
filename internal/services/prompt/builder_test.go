package prompt

import (
	"testing"

	"github.com/replygate/replygate/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildProfessionalPrompt(t *testing.T) {
	b := NewBuilder(models.BusinessConfig{Company: "Acme Rentals", Location: "Pune", Expertise: "camera gear"})

	out := b.Build("Is the FX3 free this weekend?",
		models.GenerationContext{Tone: models.ToneProfessional, SenderName: "Asha"},
		models.BusinessContext{Type: "rental_inquiry", Description: "a customer asking about renting equipment", Approach: "be helpful with availability"})

	assert.Contains(t, out, "Acme Rentals")
	assert.Contains(t, out, "Pune")
	assert.Contains(t, out, "professional tone")
	assert.Contains(t, out, "from Asha")
	assert.Contains(t, out, "Is the FX3 free this weekend?")
	assert.Contains(t, out, "2-4 sentences")
	assert.NotContains(t, out, "Recent conversation")
}

func TestBuildPersonalPromptWithHistory(t *testing.T) {
	b := NewBuilder(models.BusinessConfig{})

	out := b.Build("see you tomorrow?",
		models.GenerationContext{Tone: models.TonePersonal, ConversationHistory: "them: dinner friday?\nme: sounds great"},
		models.BusinessContext{Type: "general", Description: "a general message", Approach: "respond naturally"})

	assert.Contains(t, out, "friendly human")
	assert.Contains(t, out, "Recent conversation")
	assert.Contains(t, out, "dinner friday?")
	assert.Contains(t, out, "see you tomorrow?")
}

func TestBuildDefaultsBusinessIdentity(t *testing.T) {
	b := NewBuilder(models.BusinessConfig{})

	out := b.Build("hello",
		models.GenerationContext{Tone: models.ToneProfessional},
		models.BusinessContext{Description: "a general message", Approach: "respond naturally"})

	assert.Contains(t, out, "Primes and Zooms")
}
