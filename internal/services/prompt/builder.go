package prompt

import (
	"fmt"
	"strings"

	"github.com/replygate/replygate/internal/models"
	"github.com/replygate/replygate/internal/utils"
)

// Builder assembles provider prompts from the incoming message, the caller's
// context and the configured business identity. One builder serves all
// providers; adapters receive the finished prompt as a single user message.
type Builder struct {
	business models.BusinessConfig
}

func NewBuilder(business models.BusinessConfig) *Builder {
	return &Builder{business: business.WithDefaults()}
}

// Build renders the full prompt. Buffers come from the shared pool since
// conversation histories can run long.
func (b *Builder) Build(message string, genCtx models.GenerationContext, bizCtx models.BusinessContext) string {
	buf := utils.Get()
	defer utils.Put(buf)

	if genCtx.Tone == models.TonePersonal {
		fmt.Fprintf(buf, "You are replying to a personal message on behalf of the owner of %s, based in %s.\n",
			b.business.Company, b.business.Location)
		buf.WriteString("Write like a friendly human texting, casual and warm. Emojis are fine in moderation.\n")
	} else {
		fmt.Fprintf(buf, "You are drafting a reply for %s, a business based in %s.\n",
			b.business.Company, b.business.Location)
		fmt.Fprintf(buf, "The business specializes in %s.\n", b.business.Expertise)
		buf.WriteString("Write in a courteous, professional tone. No emojis.\n")
	}

	fmt.Fprintf(buf, "\nThe message is %s. %s\n", bizCtx.Description, capitalize(bizCtx.Approach))

	if genCtx.ConversationHistory != "" {
		buf.WriteString("\nRecent conversation:\n")
		buf.WriteString(genCtx.ConversationHistory)
		buf.WriteString("\n")
	}

	buf.WriteString("\nIncoming message")
	if genCtx.SenderName != "" {
		fmt.Fprintf(buf, " from %s", genCtx.SenderName)
	}
	fmt.Fprintf(buf, ":\n%s\n", message)

	buf.WriteString("\nReply in 2-4 sentences. Answer only with the reply text, no preamble and no quotes.")

	return buf.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
