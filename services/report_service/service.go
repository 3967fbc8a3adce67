package report_service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fundamental/analyst-app/core"
	"fundamental/analyst-app/crew"
	"golang.org/x/sync/singleflight"
)

const MessageGenerated = "Report generated successfully."

var ErrCredentialsUnsupported = errors.New("per-request API keys are not supported by this server")

// Credentials are caller-supplied API keys for a single request. They are
// never stored or logged.
type Credentials struct {
	LLMAPIKey    string
	SearchAPIKey string
}

func (c Credentials) IsZero() bool {
	return c.LLMAPIKey == "" && c.SearchAPIKey == ""
}

func (c Credentials) fingerprint() string {
	if c.IsZero() {
		return ""
	}
	sum := sha256.Sum256([]byte(c.LLMAPIKey + "\x00" + c.SearchAPIKey))
	return hex.EncodeToString(sum[:8])
}

// ReportRequest is the caller input of one report. CurrentYear defaults to the
// current calendar year.
type ReportRequest struct {
	CompanyName string      `json:"company_name"`
	CurrentYear string      `json:"current_year,omitempty"`
	Credentials Credentials `json:"-"`
}

type Report struct {
	Message  string `json:"message"`
	Company  string `json:"company"`
	Year     string `json:"year"`
	RunID    string `json:"run_id"`
	Artifact string `json:"artifact"`
	Report   string `json:"report"`
}

// ReportFile is a run's final artifact prepared for download.
type ReportFile struct {
	FileName string
	Artifact string
	Company  string
	Text     string
}

type Pipeline interface {
	Run(ctx context.Context, inputs crew.RunInputs, defs *crew.Definitions) (*crew.RunResult, error)
}

type ArtifactReader interface {
	Read(runID, name string) (string, error)
}

// PipelineFactory builds a pipeline bound to caller-supplied credentials.
type PipelineFactory func(ctx context.Context, creds Credentials) (Pipeline, error)

type Option func(*Service)

func WithPipelineFactory(f PipelineFactory) Option {
	return func(s *Service) { s.factory = f }
}

// Service produces fundamental-analysis reports. Identical requests in flight
// at the same time share one run, which keeps going while any of their callers
// is still waiting.
type Service struct {
	pipeline Pipeline
	factory  PipelineFactory
	store    ArtifactReader
	defs     crew.DefinitionsSource
	now      func() time.Time
	group    singleflight.Group

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the shared context of one coalesced run.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func NewService(pipeline Pipeline, store ArtifactReader, defs crew.DefinitionsSource, opts ...Option) *Service {
	s := &Service{
		pipeline: pipeline,
		store:    store,
		defs:     defs,
		now:      time.Now,
		flights:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate runs the pipeline for req and returns the final artifact exactly as
// stored. A final artifact missing after a successful run is reported as
// *artifact.NotFoundError. Generate returns ctx.Err() as soon as ctx ends,
// even when the run is shared with other callers.
func (s *Service) Generate(ctx context.Context, req ReportRequest) (*Report, error) {
	inputs, err := crew.NewRunInputs(req.CompanyName, req.CurrentYear, s.now())
	if err != nil {
		return nil, err
	}
	if !req.Credentials.IsZero() && s.factory == nil {
		return nil, ErrCredentialsUnsupported
	}

	key := coalesceKey(inputs, req.Credentials)
	f := s.join(ctx, key)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.generate(f.ctx, inputs, req.Credentials)
	})

	select {
	case res := <-ch:
		s.leave(key, f)
		if res.Shared {
			core.Logger().Debug("report request coalesced", slog.String("company", inputs.CompanyName), slog.String("year", inputs.CurrentYear))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		report := *res.Val.(*Report)
		report.Company = inputs.CompanyName
		return &report, nil
	case <-ctx.Done():
		s.leave(key, f)
		return nil, ctx.Err()
	}
}

func coalesceKey(inputs crew.RunInputs, creds Credentials) string {
	return strings.ToLower(inputs.CompanyName) + "|" + inputs.CurrentYear + "|" + creds.fingerprint()
}

// join registers a caller on the run for key. The run's context drops the
// caller's cancellation and is cancelled once every caller has left.
func (s *Service) join(ctx context.Context, key string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flights[key]; ok {
		f.waiters++
		return f
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight{ctx: runCtx, cancel: cancel, waiters: 1}
	s.flights[key] = f
	return f
}

func (s *Service) leave(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	s.group.Forget(key)
}

func (s *Service) generate(ctx context.Context, inputs crew.RunInputs, creds Credentials) (*Report, error) {
	pipeline := s.pipeline
	if !creds.IsZero() {
		p, err := s.factory(ctx, creds)
		if err != nil {
			return nil, err
		}
		pipeline = p
	}

	defs := s.defs.Definitions()
	result, err := pipeline.Run(ctx, inputs, defs)
	if err != nil {
		return nil, err
	}

	text, err := s.store.Read(result.RunID, result.FinalArtifact)
	if err != nil {
		return nil, err
	}
	return &Report{
		Message:  MessageGenerated,
		Company:  inputs.CompanyName,
		Year:     inputs.CurrentYear,
		RunID:    result.RunID,
		Artifact: result.FinalArtifact,
		Report:   text,
	}, nil
}

// Download returns a run's final artifact as recorded in its manifest, named
// after the analyzed company.
func (s *Service) Download(runID string) (*ReportFile, error) {
	m, err := crew.ReadManifest(s.store, runID)
	if err != nil {
		return nil, err
	}
	text, err := s.store.Read(runID, m.FinalArtifact)
	if err != nil {
		return nil, err
	}
	return &ReportFile{
		FileName: DownloadName(m.Company),
		Artifact: m.FinalArtifact,
		Company:  m.Company,
		Text:     text,
	}, nil
}

// DownloadName is the file name offered for a company's report.
func DownloadName(company string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, strings.TrimSpace(company))
	if name == "" {
		name = "report"
	}
	return name + "_fundamental_analysis.md"
}

// IsInputError reports whether err was caused by the caller's input.
func IsInputError(err error) bool {
	return errors.Is(err, crew.ErrValidation) || errors.Is(err, ErrCredentialsUnsupported)
}
