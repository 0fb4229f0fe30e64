package pipeline

import (
	"context"
	"strings"

	"github.com/noteflow/noteflow/internal/apperr"
	"github.com/noteflow/noteflow/internal/assistant"
	"github.com/noteflow/noteflow/internal/locale"
	"github.com/noteflow/noteflow/internal/tools"
)

// Chat answers a question about the caller's notes. The model may read the
// caller's notes through the list_notes and get_note tools.
func (o *Orchestrator) Chat(ctx context.Context, userID, message string, history []assistant.Turn, language string) (string, error) {
	loc := locale.Normalize(language)
	if strings.TrimSpace(message) == "" {
		return "", apperr.NewInputInvalid(loc, locale.ErrMessageRequired, nil)
	}

	a := o.assistant(loc).WithTools(tools.NewNoteTools(o.store, tools.ForUser(userID)))
	reply, err := a.Converse(ctx, message, locale.T(loc, locale.PromptChat, nil), history, true)
	if err != nil {
		o.logger.Error("chat failed", "user_id", userID, "error", err)
		return "", apperr.NewEnhancementFailed(loc, locale.ErrChatFailed, err)
	}
	return reply, nil
}
