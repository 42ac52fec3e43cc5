package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voice-butler/internal/domain"
)

const DefaultClassifyTimeout = 10 * time.Second

type ClassifierConfig struct {
	SystemPrompt string
	Timeout      time.Duration
	// UnavailableReply is spoken when the chat service cannot be used.
	UnavailableReply string
	// FallbackWhenUnreachable runs the keyword rules when the service fails
	// fast. Timeouts never fall back.
	FallbackWhenUnreachable bool
	Rules                   []domain.ClassificationRule
}

// IntentClassifier resolves text into a decision: one bounded model call,
// then deterministic keyword rules when the model names no device.
type IntentClassifier struct {
	chat   ChatService
	cfg    ClassifierConfig
	logger *slog.Logger
}

func NewIntentClassifier(chat ChatService, cfg ClassifierConfig, logger *slog.Logger) *IntentClassifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClassifyTimeout
	}
	return &IntentClassifier{
		chat:   chat,
		cfg:    cfg,
		logger: logger,
	}
}

type chatResult struct {
	text string
	err  error
}

// Classify never retries. It returns an error only when ctx is cancelled or
// the model reply holds an undecodable object (*domain.MalformedResponseError).
func (c *IntentClassifier) Classify(ctx context.Context, text string) (domain.Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	// buffered so a chat service that ignores its context cannot leak the sender
	done := make(chan chatResult, 1)
	go func() {
		reply, err := c.chat.Chat(callCtx, c.cfg.SystemPrompt, text)
		done <- chatResult{text: reply, err: err}
	}()

	var res chatResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = chatResult{err: callCtx.Err()}
	}

	if res.err != nil {
		if ctx.Err() != nil {
			return domain.Decision{}, ctx.Err()
		}
		if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, domain.ErrServiceTimeout) {
			c.logger.Warn("chat service timed out", "timeout", c.cfg.Timeout, "text", text)
			return c.unavailable(), nil
		}

		c.logger.Warn("chat service unavailable", "error", res.err, "text", text)
		if c.cfg.FallbackWhenUnreachable {
			if d, ok := Fallback(c.cfg.Rules, text); ok {
				c.logger.Info("fallback rule matched", "device", d.Device, "action", d.Action)
				return d, nil
			}
		}
		return c.unavailable(), nil
	}

	decision, err := parseModelReply(res.text)
	if err != nil {
		c.logger.Warn("malformed model reply", "error", err, "raw", res.text)
		return domain.Decision{}, err
	}

	if !decision.HasDevice() {
		if d, ok := Fallback(c.cfg.Rules, text); ok {
			c.logger.Info("fallback rule matched", "device", d.Device, "action", d.Action)
			return d, nil
		}
	}

	c.logger.Info("classified",
		"text", text,
		"device", decision.Device,
		"action", decision.Action,
		"source", decision.Source,
	)

	return decision, nil
}

func (c *IntentClassifier) unavailable() domain.Decision {
	return domain.Decision{Reply: c.cfg.UnavailableReply, Source: domain.SourceUnavailable}
}
