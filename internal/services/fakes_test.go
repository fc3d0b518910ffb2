package services

import (
	"context"
	"errors"
	"sync"

	"alfredoptarigan/resume-screener/internal/models"
)

type chatReply struct {
	text string
	err  error
}

// scriptedChat replays replies in order and repeats the last one.
type scriptedChat struct {
	mu       sync.Mutex
	replies  []chatReply
	requests []ChatRequest
}

func newScriptedChat(replies ...chatReply) *scriptedChat {
	return &scriptedChat{replies: replies}
}

func (c *scriptedChat) Model() string { return "test-model" }

func (c *scriptedChat) Complete(ctx context.Context, req ChatRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}

	idx := len(c.requests) - 1
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	r := c.replies[idx]
	return r.text, r.err
}

func (c *scriptedChat) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

type stubOracle struct {
	mu          sync.Mutex
	score       func(text string) (*Assessment, error)
	classify    func(text string) (bool, error)
	scoreCalls  int
	classifyHit int
}

func (o *stubOracle) Score(_ context.Context, _ string, text string) (*Assessment, error) {
	o.mu.Lock()
	o.scoreCalls++
	o.mu.Unlock()
	if o.score == nil {
		return &Assessment{MatchScore: 80, Status: models.StatusApproved}, nil
	}
	return o.score(text)
}

func (o *stubOracle) Classify(_ context.Context, text string) (bool, error) {
	o.mu.Lock()
	o.classifyHit++
	o.mu.Unlock()
	if o.classify == nil {
		return true, nil
	}
	return o.classify(text)
}

func (o *stubOracle) scored() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scoreCalls
}

func (o *stubOracle) classified() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.classifyHit
}

// resumeText passes the heuristic classifier.
const resumeText = "Jane Doe - Senior Software Engineer. Email: jane@example.com. " +
	"Experience: five years building Go services on AWS with Docker and SQL. " +
	"Education: Bachelor of Computer Science, State University."
