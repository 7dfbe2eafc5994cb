package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "go-sign-recognizer/internal/errors"
	"go-sign-recognizer/internal/inference"
	"go-sign-recognizer/internal/logger"
	"go-sign-recognizer/internal/observer"
	"go-sign-recognizer/internal/repository"
	"go-sign-recognizer/internal/scoring"
	"go-sign-recognizer/pkg/models"

	"github.com/sirupsen/logrus"
)

// Spell classifies a fingerspelling sequence frame by frame and joins the
// labels into a transcript. Frames run concurrently on the worker pool but
// results keep the input order. Frames that fail are reported individually
// and left out of the transcript.
func (s *recognitionService) Spell(ctx context.Context, req SpellRequest) (*models.SpellResponse, error) {
	if len(req.Frames) == 0 {
		return nil, apperrors.NewValidationError("At least one frame is required", nil)
	}
	if len(req.Frames) > s.maxSpellFrames {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Too many frames: %d (maximum %d)", len(req.Frames), s.maxSpellFrames), nil)
	}

	start := s.now()
	frames := make([]models.SpellFrame, len(req.Frames))

	var wg sync.WaitGroup
	for i, file := range req.Frames {
		wg.Add(1)
		job := func() {
			defer wg.Done()
			frames[i] = s.spellFrame(ctx, i, file)
		}
		if s.pool == nil {
			job()
			continue
		}
		if !s.pool.Submit(job) {
			wg.Done()
			frames[i] = models.SpellFrame{Index: i, Filename: file.Filename, Error: "worker pool is closed"}
		}
	}
	wg.Wait()

	var labels []string
	var kept []int
	failed := 0
	for _, f := range frames {
		if f.Error != "" {
			failed++
			continue
		}
		labels = append(labels, f.PredictedClass)
		kept = append(kept, f.Index)
	}
	if failed == len(frames) {
		return nil, apperrors.NewProcessingError("No frame could be classified", nil)
	}

	resp := &models.SpellResponse{
		Transcript:   scoring.Transcript(labels, remapBreaks(req.Breaks, kept), req.CollapseRepeats),
		Frames:       frames,
		FailedFrames: failed,
	}
	if req.Expected != "" {
		score := scoring.Score(req.Expected, resp.Transcript)
		resp.Score = &models.SpellingScore{
			Expected:       score.Expected,
			EditDistance:   score.EditDistance,
			CER:            score.CER,
			WER:            score.WER,
			ReferenceWords: score.ReferenceWords,
			Exact:          score.Exact,
		}
	}
	resp.ProcessingTimeMs = s.now().Sub(start).Milliseconds()

	logger.WithFields(logrus.Fields{
		"frames":             len(frames),
		"failed_frames":      failed,
		"transcript":         resp.Transcript,
		"processing_time_ms": resp.ProcessingTimeMs,
	}).Info("Spelling sequence classified")
	return resp, nil
}

func (s *recognitionService) spellFrame(ctx context.Context, index int, file UploadFile) models.SpellFrame {
	frame := models.SpellFrame{Index: index, Filename: file.Filename}
	frameStart := time.Now()
	source := string(repository.SourceImage)
	meta := map[string]interface{}{"frame": index, "batch": true}

	s.publish(ctx, observer.PredictionEvent{EventType: observer.PredictionStarted, Source: source, Metadata: meta})

	fail := func(err error) models.SpellFrame {
		appErr := apperrors.FromInference(err)
		frame.Error = appErr.Message
		if appErr.Details != "" {
			frame.Error += ": " + appErr.Details
		}
		s.publish(ctx, observer.PredictionEvent{
			EventType:      observer.PredictionFailed,
			Source:         source,
			ProcessingTime: time.Since(frameStart),
			ErrorMessage:   frame.Error,
			Metadata:       meta,
		})
		return frame
	}

	if err := s.uploadValidator.ValidateUpload(file.Filename, int64(len(file.Data))); err != nil {
		return fail(err)
	}
	img, _, err := inference.DecodeBytes(file.Data)
	if err != nil {
		return fail(err)
	}
	report := s.analyzer.Analyze(img)
	frame.Quality = toFrameQuality(&report)

	result, err := s.classify(ctx, img)
	if err != nil {
		return fail(err)
	}
	frame.PredictedClass = result.PredictedClass
	frame.Confidence = result.Confidence

	s.publish(ctx, observer.PredictionEvent{
		EventType:      observer.PredictionCompleted,
		Source:         source,
		PredictedClass: result.PredictedClass,
		Confidence:     result.Confidence,
		ProcessingTime: time.Since(frameStart),
		Metadata:       meta,
	})
	return frame
}

// remapBreaks translates word breaks given as original frame indexes into
// positions within the kept (successfully classified) frames. kept must be
// sorted ascending.
func remapBreaks(breaks, kept []int) []int {
	if len(breaks) == 0 {
		return nil
	}
	out := make([]int, 0, len(breaks))
	for _, b := range breaks {
		pos := 0
		for pos < len(kept) && kept[pos] < b {
			pos++
		}
		if len(out) == 0 || out[len(out)-1] != pos {
			out = append(out, pos)
		}
	}
	return out
}
