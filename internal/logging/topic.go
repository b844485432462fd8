// Package logging provides the slog handler shared by the power-probe commands.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// TopicHandler wraps an slog.Handler and filters records by a "topic" attribute.
// Records without a topic attribute and records at Warn or above always pass
// through. Other records with a topic only pass if that topic is enabled.
type TopicHandler struct {
	inner  slog.Handler
	topics map[string]bool
	topic  string // set when WithAttrs includes a "topic" key
}

// NewTopicHandler returns a handler passing the given topics ("all" enables
// every topic) to inner.
func NewTopicHandler(inner slog.Handler, topics map[string]bool) *TopicHandler {
	return &TopicHandler{inner: inner, topics: topics}
}

// ParseTopics turns a comma-separated -log flag into a topic set.
func ParseTopics(flagValue string, verbose bool) map[string]bool {
	topics := make(map[string]bool)
	if verbose {
		topics["all"] = true
	}
	if flagValue != "" {
		for _, t := range strings.Split(flagValue, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics[t] = true
			}
		}
	}
	return topics
}

// New builds the text logger the commands use.
func New(w io.Writer, topics map[string]bool) *slog.Logger {
	return slog.New(NewTopicHandler(
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		topics,
	))
}

func (h *TopicHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.inner.Enabled(context.Background(), level)
}

func (h *TopicHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.topics["all"] || r.Level >= slog.LevelWarn {
		return h.inner.Handle(ctx, r)
	}
	topic := h.topic
	if topic == "" {
		// Check record-level attrs as fallback.
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "topic" {
				topic = a.Value.String()
				return false
			}
			return true
		})
	}
	if topic != "" && !h.topics[topic] {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *TopicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	topic := h.topic
	for _, a := range attrs {
		if a.Key == "topic" {
			topic = a.Value.String()
		}
	}
	return &TopicHandler{inner: h.inner.WithAttrs(attrs), topics: h.topics, topic: topic}
}

func (h *TopicHandler) WithGroup(name string) slog.Handler {
	return &TopicHandler{inner: h.inner.WithGroup(name), topics: h.topics, topic: h.topic}
}
