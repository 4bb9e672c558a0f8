package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/trichat/core"
	"github.com/hupe1980/trichat/logging"
	"github.com/hupe1980/trichat/model"
)

// DefaultTemperature is the sampling temperature sent with every call.
const DefaultTemperature = 0.7

// Credentials maps a provider name to its API key.
type Credentials map[string]string

// Options configures a Coordinator.
type Options struct {
	// Temperature is sent with every upstream call.
	Temperature float64

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Coordinator fans a turn out to every model in the registry.
type Coordinator struct {
	registry *core.Registry
	models   map[string]model.Model
	opts     Options
}

// New creates a Coordinator. models maps a provider name (see
// core.ProviderOpenRouter) to the adapter serving it.
func New(registry *core.Registry, models map[string]model.Model, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Temperature: DefaultTemperature,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Coordinator{registry: registry, models: models, opts: opts}
}

// Registry returns the registry this coordinator fans out to.
func (c *Coordinator) Registry() *core.Registry { return c.registry }

// HandleTurn runs one turn on sess:
//  1. appends user(message) to every model's history
//  2. calls every model concurrently with its own history
//  3. on success appends the assistant reply, on failure rolls the history
//     back to its pre-turn length
//
// It returns after every branch settled. Turns on the same session are
// serialized; if ctx ends while waiting for an earlier turn, every model
// fails with the context error and no history is touched.
func (c *Coordinator) HandleTurn(ctx context.Context, sess *core.Session, message string, creds Credentials) core.Outputs {
	turnID := uuid.NewString()
	logger := logging.WithSession(c.opts.Logger, sess.ID, turnID)
	specs := c.registry.Specs()
	results := make(core.Outputs, len(specs))

	end, err := sess.BeginTurn(ctx)
	if err != nil {
		for i, spec := range specs {
			results[i] = core.Failure(spec, err)
		}
		logger.Warn("Turn abandoned while waiting for session", "error", err.Error())
		return results
	}
	defer end()

	start := time.Now()

	// Every branch must see the new turn before any call is dispatched.
	marks := make([]int, len(specs))
	ready := make([]bool, len(specs))
	for i, spec := range specs {
		mark, err := sess.Append(spec.Key, core.NewUserMessage(message))
		if err != nil {
			results[i] = core.Failure(spec, err)
			continue
		}
		marks[i], ready[i] = mark, true
	}

	var wg sync.WaitGroup
	for i, spec := range specs {
		if !ready[i] {
			continue
		}
		wg.Add(1)
		go func(i int, spec core.ModelSpec) {
			defer wg.Done()
			results[i] = c.runBranch(ctx, logger, sess, spec, marks[i], creds[spec.Provider])
		}(i, spec)
	}
	wg.Wait()

	ok, failed := results.Counts()
	logger.Info("Turn completed", "succeeded", ok, "failed", failed, "duration", time.Since(start))

	return results
}

// runBranch performs one model's upstream call and reconciles its history.
// It only touches the history for spec.Key.
func (c *Coordinator) runBranch(
	ctx context.Context,
	logger logging.Logger,
	sess *core.Session,
	spec core.ModelSpec,
	mark int,
	apiKey string,
) (out core.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			_ = sess.Truncate(spec.Key, mark)
			out = core.Failure(spec, fmt.Errorf("upstream adapter panic: %v", r))
		}
	}()

	resp, err := c.call(ctx, sess, spec, apiKey)
	if err == nil {
		_, err = sess.Append(spec.Key, core.NewAssistantMessage(resp.Text))
	}

	if err != nil {
		_ = sess.Truncate(spec.Key, mark)
		logger.Warn("Upstream call failed",
			"model_key", spec.Key, "model", spec.ID,
			"duration", time.Since(start), "error", err.Error())
		return core.Failure(spec, err)
	}

	args := []any{
		"model_key", spec.Key, "model", spec.ID,
		"response_id", resp.ID, "finish_reason", resp.FinishReason,
		"duration", time.Since(start),
	}
	if u := resp.Usage; u != nil {
		args = append(args,
			"prompt_tokens", u.PromptTokens,
			"completion_tokens", u.CompletionTokens,
			"total_tokens", u.TotalTokens)
	}
	logger.Info("Upstream call completed", args...)
	return core.Success(spec, resp.Text)
}

func (c *Coordinator) call(ctx context.Context, sess *core.Session, spec core.ModelSpec, apiKey string) (model.Response, error) {
	m, ok := c.models[spec.Provider]
	if !ok {
		return model.Response{}, fmt.Errorf("no upstream adapter for provider %q", spec.Provider)
	}
	history, ok := sess.History(spec.Key)
	if !ok {
		return model.Response{}, fmt.Errorf("%w: %q", core.ErrUnknownModelKey, spec.Key)
	}
	return m.Complete(ctx, model.Request{
		APIKey:      apiKey,
		Model:       spec.ID,
		Messages:    history,
		Temperature: c.opts.Temperature,
	})
}
