package pipeline

import (
	"context"

	"github.com/noteflow/noteflow/internal/locale"
)

// Result is what a synchronous run produced. Fields are empty for stages
// that did not run.
type Result struct {
	Transcript string   `json:"transcript"`
	Summary    string   `json:"summary"`
	Insights   []string `json:"insights"`
}

// ProcessNote runs every stage the note needs, in order, and waits for
// each: Transcribe if the note has audio but no transcript, then Summarize
// and ExtractInsights if a transcript exists. The first failure aborts the
// run and is returned; fields saved by earlier stages stay saved.
func (o *Orchestrator) ProcessNote(ctx context.Context, noteID, userID, language string) (Result, error) {
	n, err := o.load(noteID, userID, locale.Normalize(language))
	if err != nil {
		return Result{}, err
	}
	o.logger.Info("processing note", "note_id", n.ID)

	var res Result
	res.Transcript = n.Transcript
	if n.Transcript == "" && n.AudioFileURL != "" {
		if res.Transcript, err = o.Transcribe(ctx, noteID, userID, language); err != nil {
			return Result{}, err
		}
	}
	if res.Transcript == "" {
		return res, nil
	}

	if res.Summary, err = o.Summarize(ctx, noteID, userID, language); err != nil {
		return Result{}, err
	}
	if res.Insights, err = o.ExtractInsights(ctx, noteID, userID, 0, language); err != nil {
		return Result{}, err
	}
	o.logger.Info("note processed", "note_id", n.ID, "insights", len(res.Insights))
	return res, nil
}
