package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsmith/cancel"
	"shortsmith/config"
	"shortsmith/keypool"
	"shortsmith/logger"
	"shortsmith/types"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var (
	errFileFailed     = errors.New("remote file processing failed")
	errFileProcessing = errors.New("remote file still processing")
)

// geminiSession is everything the chunk flow needs from one authenticated
// genai client. One session serves exactly one credential.
type geminiSession interface {
	Upload(ctx context.Context, path string) (*genai.File, error)
	File(ctx context.Context, name string) (*genai.File, error)
	Generate(ctx context.Context, file *genai.File) (string, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

type geminiDialer func(ctx context.Context, apiKey, model string) (geminiSession, error)

// Gemini uploads each chunk to the Files API, waits until it is ACTIVE and
// runs schema-constrained generation on it, all with the same key.
type Gemini struct {
	model        string
	cancel       *cancel.Flag
	log          *logger.Logger
	dial         geminiDialer
	pollInterval time.Duration
	pollAttempts int
}

type GeminiOption func(*Gemini)

// WithPolling overrides the readiness poll cadence.
func WithPolling(interval time.Duration, attempts int) GeminiOption {
	return func(g *Gemini) {
		g.pollInterval = interval
		g.pollAttempts = attempts
	}
}

func withGeminiDialer(d geminiDialer) GeminiOption {
	return func(g *Gemini) { g.dial = d }
}

func NewGemini(model string, flag *cancel.Flag, log *logger.Logger, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		model:        model,
		cancel:       flag,
		log:          log.Named("gemini"),
		dial:         dialGenAI,
		pollInterval: config.PollInterval,
		pollAttempts: config.PollAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.pollAttempts < 1 {
		g.pollAttempts = 1
	}
	return g
}

func (g *Gemini) Name() string { return config.ProviderGemini }

func (g *Gemini) Close() error { return nil }

func (g *Gemini) ProcessChunk(ctx context.Context, cred keypool.Credential, fileRef string, offset time.Duration, status StatusFunc) ([]types.Moment, error) {
	notify := notifier(status)

	sess, err := g.dial(ctx, cred.Secret, g.model)
	if err != nil {
		return nil, g.classify(cred, fmt.Errorf("creating client: %w", err))
	}
	defer sess.Close()

	notify(fmt.Sprintf("Uploading with %s...", cred.Name))
	file, err := sess.Upload(ctx, fileRef)
	if err != nil {
		return nil, g.classify(cred, fmt.Errorf("uploading %s: %w", filepath.Base(fileRef), err))
	}
	defer g.cleanup(sess, file.Name)

	if file.State != genai.FileStateActive {
		if err := g.waitActive(ctx, sess, file.Name); err != nil {
			return nil, g.classify(cred, err)
		}
	}

	if g.cancel.IsSet() {
		return nil, ErrCancelled
	}

	notify(fmt.Sprintf("Analyzing with %s...", cred.Name))
	text, err := sess.Generate(ctx, file)
	if err != nil {
		return nil, g.classify(cred, fmt.Errorf("generating analysis: %w", err))
	}

	moments, err := ParseMoments(text)
	if err != nil {
		return nil, fmt.Errorf("parsing structured moments: %w", err)
	}
	rebased, dropped := types.RebaseAll(moments, offset)
	if dropped > 0 {
		g.log.Warnf("dropped %d moments with unreadable timestamps", dropped)
	}
	return rebased, nil
}

// waitActive polls the uploaded file until it is usable. The cancel flag is
// checked before every poll.
func (g *Gemini) waitActive(ctx context.Context, sess geminiSession, name string) error {
	checks := 0
	op := func() error {
		if g.cancel.IsSet() {
			return backoff.Permanent(ErrCancelled)
		}
		checks++
		f, err := sess.File(ctx, name)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("checking file status: %w", err))
		}
		switch f.State {
		case genai.FileStateActive:
			return nil
		case genai.FileStateFailed:
			return backoff.Permanent(errFileFailed)
		}
		return errFileProcessing
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.pollInterval), uint64(g.pollAttempts-1)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	if errors.Is(err, errFileProcessing) {
		return fmt.Errorf("file processing timed out after %d checks", checks)
	}
	return err
}

func (g *Gemini) cleanup(sess geminiSession, name string) {
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := sess.Delete(ctx, name); err != nil {
		g.log.WithError(err).Debugf("could not delete remote file %s", name)
	}
}

func (g *Gemini) classify(cred keypool.Credential, err error) error {
	return classify(g.Name(), cred.Name, err, googleQuota)
}

// googleQuota recognises 429s from the REST upload path and
// RESOURCE_EXHAUSTED from the gRPC generation path.
func googleQuota(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := grpcstatus.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}

// momentSchema constrains generation to {"moments": [...]}.
func momentSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"moments": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"start_time":  str(),
						"end_time":    str(),
						"category":    {Type: genai.TypeString, Enum: Categories},
						"description": str(),
						"dialogue": {
							Type: genai.TypeArray,
							Items: &genai.Schema{
								Type: genai.TypeObject,
								Properties: map[string]*genai.Schema{
									"start_time": str(),
									"end_time":   str(),
									"phrase":     str(),
								},
								Required: []string{"start_time", "end_time", "phrase"},
							},
						},
					},
					Required: []string{"start_time", "end_time", "category", "description"},
				},
			},
		},
		Required: []string{"moments"},
	}
}

// genaiSession is the production geminiSession.
type genaiSession struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func dialGenAI(ctx context.Context, apiKey, modelName string) (geminiSession, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(config.AnalysisTemperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = momentSchema()
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemPrompt)}}

	return &genaiSession{client: client, model: model}, nil
}

func (s *genaiSession) Upload(ctx context.Context, path string) (*genai.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk: %w", err)
	}
	defer f.Close()

	return s.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    config.ChunkMIMEType,
	})
}

func (s *genaiSession) File(ctx context.Context, name string) (*genai.File, error) {
	return s.client.GetFile(ctx, name)
}

func (s *genaiSession) Generate(ctx context.Context, file *genai.File) (string, error) {
	mime := file.MIMEType
	if mime == "" {
		mime = config.ChunkMIMEType
	}

	resp, err := s.model.GenerateContent(ctx,
		genai.FileData{MIMEType: mime, URI: file.URI},
		genai.Text(ChunkInstruction),
	)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no response from gemini")
	}
	return b.String(), nil
}

func (s *genaiSession) Delete(ctx context.Context, name string) error {
	return s.client.DeleteFile(ctx, name)
}

func (s *genaiSession) Close() error {
	return s.client.Close()
}
