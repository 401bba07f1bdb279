package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/physics-tutor/models"
	"github.com/upb/physics-tutor/services"
	"github.com/upb/physics-tutor/services/chunker"
	"github.com/upb/physics-tutor/services/completion"
	"github.com/upb/physics-tutor/services/prompt"
	"github.com/upb/physics-tutor/services/scope"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockClassifier is a mock implementation of Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(query string) scope.Decision {
	args := m.Called(query)
	return args.Get(0).(scope.Decision)
}

// MockLoader is a mock implementation of content.Loader
type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context) ([]models.Document, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

// MockProvider is a mock implementation of completion.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req *completion.Request) (*completion.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*completion.Response), args.Error(1)
}

var lessonDocs = []models.Document{
	{ID: "dynamics/newton", Text: "Newton's second law states that force equals mass times acceleration, F = m a."},
	{ID: "waves/sound", Text: "Sound is a longitudinal wave. Its speed in air is about 343 m/s."},
	{ID: "thermo/heat", Text: "Heat flows from hot bodies to cold bodies until equilibrium."},
}

const newtonQuestion = "What does Newton's second law say about force and acceleration?"

func allowed() scope.Decision {
	return scope.Decision{Allowed: true, Reason: scope.ReasonInSyllabus}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Chunking = chunker.Config{Size: 200, Overlap: 20}
	cfg.TopK = 2
	cfg.Timeout = time.Second
	return cfg
}

func conversation(last string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hello, ask me about the lessons."},
		{Role: models.RoleUser, Content: last},
	}
}

func TestService_Reply_Success(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)

	var captured *completion.Request
	provider.On("Complete", mock.Anything, mock.AnythingOfType("*completion.Request")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*completion.Request)
		}).
		Return(&completion.Response{Text: "F = m a (source: dynamics/newton)", Model: "gpt-4o-mini"}, nil)

	svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())

	ctx := models.WithRequestID(context.Background(), "req-123")
	reply, err := svc.Reply(ctx, conversation(newtonQuestion))

	require.NoError(t, err)
	assert.Equal(t, "F = m a (source: dynamics/newton)", reply.Text)
	assert.False(t, reply.Refused)
	assert.Equal(t, "req-123", reply.RequestID)
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, "dynamics/newton", reply.Sources[0])

	require.NotNil(t, captured)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.InDelta(t, 0.2, captured.Temperature, 1e-9)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, completion.RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, prompt.BuildSystemPrompt(), captured.Messages[0].Content)
	assert.Equal(t, completion.RoleUser, captured.Messages[1].Role)
	assert.Contains(t, captured.Messages[1].Content, "source: dynamics/newton")
	assert.Contains(t, captured.Messages[1].Content, newtonQuestion)

	classifier.AssertExpectations(t)
	loader.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestService_Reply_UsesLastUserTurn(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	messages := []models.ChatMessage{
		{Role: models.RoleUser, Content: "Tell me about heat."},
		{Role: models.RoleUser, Content: newtonQuestion},
		{Role: models.RoleAssistant, Content: "Sure."},
	}

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)
	provider.On("Complete", mock.Anything, mock.Anything).Return(&completion.Response{Text: "answer"}, nil)

	svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())
	_, err := svc.Reply(context.Background(), messages)

	require.NoError(t, err)
	classifier.AssertExpectations(t)
}

func TestService_Reply_GeneratesRequestID(t *testing.T) {
	classifier := new(MockClassifier)
	classifier.On("Classify", mock.Anything).Return(scope.Decision{Refusal: scope.RefusalMessage, Reason: scope.ReasonOffTopic})

	svc := NewService(classifier, new(MockLoader), new(MockProvider), testConfig(), zap.NewNop())
	reply, err := svc.Reply(context.Background(), conversation("who won the match?"))

	require.NoError(t, err)
	assert.Len(t, reply.RequestID, 36)
}

func TestService_Reply_Refusal(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", "Write me a poem about cats").
		Return(scope.Decision{Allowed: false, Refusal: scope.RefusalMessage, Reason: scope.ReasonOffTopic})

	svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())
	reply, err := svc.Reply(context.Background(), conversation("Write me a poem about cats"))

	require.NoError(t, err)
	assert.True(t, reply.Refused)
	assert.Equal(t, scope.RefusalMessage, reply.Text)
	assert.Equal(t, scope.ReasonOffTopic, reply.Reason)
	assert.NotNil(t, reply.Sources)
	assert.Empty(t, reply.Sources)

	loader.AssertNotCalled(t, "Load", mock.Anything)
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestService_Reply_OffTopicWithSyllabusClassifier(t *testing.T) {
	loader := new(MockLoader)
	provider := new(MockProvider)

	svc := NewService(scope.New(), loader, provider, testConfig(), zap.NewNop())
	reply, err := svc.Reply(context.Background(), []models.ChatMessage{
		{Role: models.RoleUser, Content: "what's the best pizza topping"},
	})

	require.NoError(t, err)
	assert.True(t, reply.Refused)
	assert.Equal(t, scope.RefusalMessage, reply.Text)
	assert.Empty(t, reply.Sources)

	loader.AssertNumberOfCalls(t, "Load", 0)
	provider.AssertNumberOfCalls(t, "Complete", 0)
}

func TestService_Reply_InvalidConversation(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.ChatMessage
		wantErr  error
	}{
		{
			name:     "no messages",
			messages: nil,
			wantErr:  services.ErrNoMessages,
		},
		{
			name:     "only assistant turns",
			messages: []models.ChatMessage{{Role: models.RoleAssistant, Content: "Hello"}},
			wantErr:  services.ErrNoUserMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := new(MockClassifier)
			svc := NewService(classifier, new(MockLoader), new(MockProvider), testConfig(), zap.NewNop())

			reply, err := svc.Reply(context.Background(), tt.messages)

			assert.Nil(t, reply)
			assert.Same(t, tt.wantErr, err)
			assert.True(t, services.IsValidationError(err))
			classifier.AssertNotCalled(t, "Classify", mock.Anything)
		})
	}
}

func TestService_Reply_LoadError(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(nil, errors.New("disk on fire"))

	svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())
	_, err := svc.Reply(context.Background(), conversation(newtonQuestion))

	require.Error(t, err)
	assert.True(t, services.IsLoadError(err))
	assert.Contains(t, err.Error(), "disk on fire")
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestService_Reply_LoadErrorKeepsDomainError(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)

	loadErr := services.WrapLoad("lesson directory missing", errors.New("stat: no such file"))
	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(nil, loadErr)

	svc := NewService(classifier, loader, new(MockProvider), testConfig(), zap.NewNop())
	_, err := svc.Reply(context.Background(), conversation(newtonQuestion))

	assert.Same(t, loadErr, err)
}

func TestService_Reply_InvalidChunking(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)

	cfg := testConfig()
	cfg.Chunking = chunker.Config{Size: 100, Overlap: 100}

	svc := NewService(classifier, loader, provider, cfg, zap.NewNop())
	_, err := svc.Reply(context.Background(), conversation(newtonQuestion))

	require.Error(t, err)
	assert.True(t, services.IsConfigurationError(err))
	provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestService_Reply_CompletionFailures(t *testing.T) {
	tests := []struct {
		name        string
		resp        *completion.Response
		err         error
		wantMessage string
	}{
		{
			name:        "provider error",
			err:         completion.NewProviderError("mock", completion.CodeHTTP, "HTTP request failed", 0, true, errors.New("connection refused")),
			wantMessage: services.ErrCompletionUnavailable.Message,
		},
		{
			name:        "provider timeout",
			err:         completion.NewProviderError("mock", completion.CodeHTTP, "HTTP request failed", 0, true, context.DeadlineExceeded),
			wantMessage: services.ErrCompletionTimeout.Message,
		},
		{
			name:        "blank reply",
			resp:        &completion.Response{Text: "  \n "},
			wantMessage: services.ErrEmptyCompletion.Message,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := new(MockClassifier)
			loader := new(MockLoader)
			provider := new(MockProvider)

			classifier.On("Classify", newtonQuestion).Return(allowed())
			loader.On("Load", mock.Anything).Return(lessonDocs, nil)
			if tt.resp != nil {
				provider.On("Complete", mock.Anything, mock.Anything).Return(tt.resp, nil)
			} else {
				provider.On("Complete", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())
			reply, err := svc.Reply(context.Background(), conversation(newtonQuestion))

			assert.Nil(t, reply)
			require.Error(t, err)
			assert.True(t, services.IsExternalError(err))
			assert.Equal(t, tt.wantMessage, services.GetErrorMessage(err))
		})
	}
}

func TestService_Reply_LogsProviderFailure(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)
	provider.On("Complete", mock.Anything, mock.Anything).
		Return(nil, completion.NewProviderError("mock", "overloaded_error", "Overloaded", 529, true, nil))

	core, logs := observer.New(zapcore.ErrorLevel)
	svc := NewService(classifier, loader, provider, testConfig(), zap.New(core))
	_, err := svc.Reply(context.Background(), conversation(newtonQuestion))
	require.Error(t, err)

	entries := logs.FilterMessage("completion failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, true, fields["retryable"])
	assert.Equal(t, "overloaded_error", fields["code"])
	assert.EqualValues(t, 529, fields["status_code"])
	assert.Equal(t, "mock", fields["provider"])

	// one attempt only
	provider.AssertNumberOfCalls(t, "Complete", 1)
}

func TestService_Reply_CompletionDeadline(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	classifier.On("Classify", newtonQuestion).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)
	provider.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, errors.New("request aborted"))

	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	svc := NewService(classifier, loader, provider, cfg, zap.NewNop())
	_, err := svc.Reply(context.Background(), conversation(newtonQuestion))

	require.Error(t, err)
	assert.Equal(t, services.ErrCompletionTimeout.Message, services.GetErrorMessage(err))
}

func TestService_Reply_NoMatchingMaterial(t *testing.T) {
	classifier := new(MockClassifier)
	loader := new(MockLoader)
	provider := new(MockProvider)

	query := "Explain quantum chromodynamics gluons"
	classifier.On("Classify", query).Return(allowed())
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)

	var captured *completion.Request
	provider.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*completion.Request)
		}).
		Return(&completion.Response{Text: "The lessons do not cover that yet."}, nil)

	svc := NewService(classifier, loader, provider, testConfig(), zap.NewNop())
	reply, err := svc.Reply(context.Background(), conversation(query))

	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	require.NotNil(t, captured)
	assert.Contains(t, captured.Messages[1].Content, prompt.NoMaterialNotice)
}

func TestService_Retrieve(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything).Return(lessonDocs, nil)

	svc := NewService(new(MockClassifier), loader, new(MockProvider), testConfig(), zap.NewNop())
	ranked, err := svc.Retrieve(context.Background(), "speed of sound in air", 1)

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "waves/sound", ranked[0].Chunk.Source)
	assert.Greater(t, ranked[0].Score, 0.0)
}

func TestNewService_DefaultsTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 0

	svc := NewService(new(MockClassifier), new(MockLoader), new(MockProvider), cfg, zap.NewNop())

	assert.Equal(t, DefaultTimeout, svc.cfg.Timeout)
	assert.Equal(t, "mock", svc.Provider().Name())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "overlap not smaller than size",
			mutate:  func(c *Config) { c.Chunking = chunker.Config{Size: 10, Overlap: 10} },
			wantErr: "chunking",
		},
		{
			name:    "non-positive top-k",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: "top-k",
		},
		{
			name:    "missing model",
			mutate:  func(c *Config) { c.Model = "" },
			wantErr: "model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, services.IsConfigurationError(err))
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
