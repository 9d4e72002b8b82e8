package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yogaaditandanu/medical-image-analysis/internal/classify"
	"github.com/yogaaditandanu/medical-image-analysis/internal/metrics"
	"github.com/yogaaditandanu/medical-image-analysis/internal/model"
	"github.com/yogaaditandanu/medical-image-analysis/internal/models"
	"github.com/yogaaditandanu/medical-image-analysis/internal/prompt"
	"github.com/yogaaditandanu/medical-image-analysis/internal/session"
	"github.com/yogaaditandanu/medical-image-analysis/internal/staging"
)

type AnalysisService struct {
	logger *log.Logger
	client model.Client
	stager *staging.Stager
	store  session.Store
}

func NewAnalysisService(logger *log.Logger, client model.Client, stager *staging.Stager, store session.Store) *AnalysisService {
	return &AnalysisService{
		logger: logger,
		client: client,
		stager: stager,
		store:  store,
	}
}

func (s *AnalysisService) State(ctx context.Context, sessionID string) (session.State, error) {
	return s.store.Load(ctx, sessionID)
}

// SelectFile records an upload for the session, dropping the stored result
// when the file name changed.
func (s *AnalysisService) SelectFile(ctx context.Context, sessionID, fileName string) (session.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return state, err
	}
	state.SelectFile(fileName)
	if err := s.store.Save(ctx, sessionID, state); err != nil {
		return state, err
	}
	return state, nil
}

func (s *AnalysisService) Clear(ctx context.Context, sessionID string) error {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	state.Clear()
	return s.store.Save(ctx, sessionID, state)
}

// Analyze stages the upload, runs one model call and classifies the reply.
// A successful report is stored in the session; classified failures are only
// returned. An empty sessionID analyzes without touching any session.
// The returned error covers staging and session store failures only.
func (s *AnalysisService) Analyze(ctx context.Context, sessionID string, upload models.Upload, mode prompt.Mode) (classify.Outcome, error) {
	var state session.State
	if sessionID != "" {
		var err error
		if state, err = s.SelectFile(ctx, sessionID, upload.FileName); err != nil {
			return classify.Outcome{}, err
		}
	}

	outcome, err := s.run(ctx, upload, mode)
	if err != nil {
		return outcome, err
	}
	metrics.AnalysisTotal(mode.Slug(), string(outcome.Kind))

	if sessionID == "" || !outcome.OK() {
		return outcome, nil
	}
	state.SetResult(outcome.Result)
	if err := s.store.Save(ctx, sessionID, state); err != nil {
		return outcome, fmt.Errorf("failed to store result: %w", err)
	}
	return outcome, nil
}

func (s *AnalysisService) run(ctx context.Context, upload models.Upload, mode prompt.Mode) (classify.Outcome, error) {
	s.logger.Printf("start analysis: file=%s mode=%s\n", upload.FileName, mode.Slug())
	defer s.logger.Printf("finish analysis: file=%s\n", upload.FileName)

	staged, err := s.stager.Stage(ctx, upload.Data)
	if err != nil {
		metrics.ImageStagingTotal("error", "unknown")
		s.logger.Printf("stage error: file=%s: %v\n", upload.FileName, err)
		// the file name is user input and stays out of the classified text
		return classify.Outcome{}, fmt.Errorf("failed to stage image: %w", err)
	}
	defer staged.Release()
	metrics.ImageStagingTotal("ok", staged.Format)

	start := time.Now()
	text, err := s.client.Analyze(ctx, prompt.Build(mode), staged.Path)
	metrics.AnalysisDuration(mode.Slug(), time.Since(start))
	if err != nil {
		s.logger.Printf("model error: %v\n", err)
		return classify.FromError(err), nil
	}
	return classify.FromText(text), nil
}
