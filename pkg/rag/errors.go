package rag

import "errors"

// ErrUnavailable is returned when the knowledge-base service can't be
// reached or responds with a non-2xx status; callers treat RAG as an
// optional context source and should degrade gracefully rather than fail
// the turn (SS5).
var ErrUnavailable = errors.New("rag: knowledge base unavailable")
