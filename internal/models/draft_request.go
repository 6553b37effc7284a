package models

// DraftRequest is the body of a draft generation call.
type DraftRequest struct {
	Message             string `json:"message"`
	Tone                Tone   `json:"tone,omitzero"`
	SenderID            string `json:"sender_id,omitzero"`
	SenderName          string `json:"sender_name,omitzero"`
	ConversationHistory string `json:"conversation_history,omitzero"`
}

// Context converts the request into the orchestrator's generation context.
func (r *DraftRequest) Context() GenerationContext {
	return GenerationContext{
		Tone:                r.Tone,
		SenderName:          r.SenderName,
		ConversationHistory: r.ConversationHistory,
	}
}
