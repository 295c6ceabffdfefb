package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/llm"
	"github.com/starford/ansuz/internal/store"
	"github.com/starford/ansuz/internal/testutil"
)

type stubIndex struct {
	store.Index
	hits []store.SearchHit
}

func (s *stubIndex) Search(_ []float32, limit int, _ *store.Filter) ([]store.SearchHit, error) {
	if len(s.hits) > limit {
		return s.hits[:limit], nil
	}
	return s.hits, nil
}

type recordingClient struct {
	reply         string
	systemPrompts []string
	messages      [][]llm.Message
}

func (r *recordingClient) Chat(_ context.Context, msgs []llm.Message, system string) (string, error) {
	r.messages = append(r.messages, msgs)
	r.systemPrompts = append(r.systemPrompts, system)
	return r.reply, nil
}

func hit(title, path, content string) store.SearchHit {
	return store.SearchHit{
		NoteChunk: store.NoteChunk{Title: title, RelativePath: path, Filename: path, Content: content},
		Score:     0.9,
	}
}

func TestSendInjectsRetrievedContext(t *testing.T) {
	client := &recordingClient{reply: "tomatoes, in March"}
	idx := &stubIndex{hits: []store.SearchHit{hit("Garden Log", "garden.md", "planted tomatoes in March")}}
	s := NewSession(client, &testutil.StubEmbedder{}, idx, history.NewWindow(10), true, 5)

	reply, hits, err := s.Send(context.Background(), "what did I plant?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply != "tomatoes, in March" {
		t.Errorf("reply = %q", reply)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d", len(hits))
	}

	system := client.systemPrompts[0]
	if !strings.Contains(system, "planted tomatoes in March") {
		t.Errorf("system prompt missing retrieved content:\n%s", system)
	}
	if !strings.Contains(system, "[1] Garden Log (garden.md)") {
		t.Errorf("system prompt missing source attribution:\n%s", system)
	}
}

func TestSendNoHitsStillSendsContextBlock(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	s := NewSession(client, &testutil.StubEmbedder{}, &stubIndex{}, history.NewWindow(10), true, 5)

	if _, _, err := s.Send(context.Background(), "anything"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(client.systemPrompts[0], "(No relevant context found in vault)") {
		t.Errorf("system prompt = %q", client.systemPrompts[0])
	}
}

func TestSendNilIndexDowngradesToNoContext(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	s := NewSession(client, &testutil.StubEmbedder{}, nil, history.NewWindow(10), true, 5)

	_, hits, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hits != nil {
		t.Errorf("hits = %v", hits)
	}
}

func TestSendWithoutRAGSkipsRetrieval(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	emb := &testutil.StubEmbedder{}
	s := NewSession(client, emb, &stubIndex{hits: []store.SearchHit{hit("t", "p.md", "c")}}, history.NewWindow(10), false, 5)

	_, hits, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if hits != nil {
		t.Errorf("no-rag session retrieved context: %v", hits)
	}
	if len(emb.Queries) != 0 {
		t.Errorf("embedder should be untouched, saw queries %v", emb.Queries)
	}
	if client.systemPrompts[0] != "" {
		t.Errorf("system prompt = %q", client.systemPrompts[0])
	}
}

func TestSendAccumulatesHistory(t *testing.T) {
	client := &recordingClient{reply: "fine"}
	s := NewSession(client, &testutil.StubEmbedder{}, nil, history.NewWindow(10), false, 5)

	_, _, _ = s.Send(context.Background(), "first")
	_, _, _ = s.Send(context.Background(), "second")

	last := client.messages[1]
	if len(last) != 3 {
		t.Fatalf("expected 3 messages on second turn, got %d", len(last))
	}
	if last[0].Content != "first" || last[1].Content != "fine" || last[2].Content != "second" {
		t.Errorf("history order wrong: %+v", last)
	}
}

func TestSendAppendsSummaryBlock(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	hist := history.NewCompacting(10, 1, nil)
	s := NewSession(client, &testutil.StubEmbedder{}, nil, hist, false, 5)

	_, _, _ = s.Send(context.Background(), strings.Repeat("a", 100))
	_, _, _ = s.Send(context.Background(), strings.Repeat("b", 100))
	_, _, _ = s.Send(context.Background(), "now what?")

	lastSystem := client.systemPrompts[len(client.systemPrompts)-1]
	if !strings.Contains(lastSystem, "Conversation Summary (earlier context):") {
		t.Errorf("summary block missing from system prompt: %q", lastSystem)
	}
}

func TestClearResetsSession(t *testing.T) {
	client := &recordingClient{reply: "ok"}
	idx := &stubIndex{hits: []store.SearchHit{hit("t", "p.md", "c")}}
	s := NewSession(client, &testutil.StubEmbedder{}, idx, history.NewWindow(10), true, 5)

	_, _, _ = s.Send(context.Background(), "hi")
	if len(s.LastContext()) != 1 {
		t.Fatalf("LastContext = %v", s.LastContext())
	}
	s.Clear()
	if s.LastContext() != nil {
		t.Error("LastContext should be nil after Clear")
	}
	_, _, _ = s.Send(context.Background(), "again")
	if len(client.messages[1]) != 1 {
		t.Errorf("history should restart after Clear, got %d messages", len(client.messages[1]))
	}
}

func TestFormatSources(t *testing.T) {
	if got := FormatSources(nil); got != "" {
		t.Errorf("FormatSources(nil) = %q", got)
	}
	got := FormatSources([]store.SearchHit{hit("Garden Log", "g.md", "c")})
	if !strings.Contains(got, "Garden Log") {
		t.Errorf("FormatSources = %q", got)
	}
}
