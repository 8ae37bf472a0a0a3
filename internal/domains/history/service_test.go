package history

import (
	"context"
	"strings"
	"testing"

	"github.com/seslichat/sesli/internal/config"
	"github.com/seslichat/sesli/internal/types"
	"github.com/seslichat/sesli/pkg/Logger"
)

type fakeRepo struct {
	turns   []types.Turn
	saved   []types.Turn
	created map[string]string // channelID -> name
}

func (f *fakeRepo) CreateChannel(ctx context.Context, userID, channelID, name string) error {
	if f.created == nil {
		f.created = make(map[string]string)
	}
	f.created[channelID] = name
	return nil
}
func (f *fakeRepo) ChannelExists(ctx context.Context, userID, channelID string) (bool, error) {
	return true, nil
}
func (f *fakeRepo) ListChannels(ctx context.Context, userID string) ([]types.ChannelInfo, error) {
	return nil, nil
}
func (f *fakeRepo) LoadTurns(ctx context.Context, userID, channelID string) ([]types.Turn, error) {
	return f.turns, nil
}
func (f *fakeRepo) SaveTurns(ctx context.Context, userID, channelID string, turns []types.Turn) error {
	f.saved = turns
	return nil
}
func (f *fakeRepo) DeleteChannel(ctx context.Context, userID, channelID string) error    { return nil }
func (f *fakeRepo) DeleteAllChannels(ctx context.Context, userID string) error           { return nil }

func newTestService(repo Repository, maxTurns, maxContext int) Service {
	cfg := config.ChatConfig{
		MaxHistoryTurns:   maxTurns,
		MaxContextChars:   maxContext,
		ChannelTitleChars: 60,
	}
	return New(repo, nil, cfg, 0, Logger.New(true))
}

func TestLoadFullKeepsAudioURLs(t *testing.T) {
	repo := &fakeRepo{turns: []types.Turn{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello", AudioURL: "/static/audio/a.wav"},
	}}
	svc := newTestService(repo, 100, 1000)

	turns, err := svc.Load(context.Background(), "u", "c", false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if turns[1].AudioURL != "/static/audio/a.wav" {
		t.Errorf("full view must keep audio urls")
	}
}

func TestContextViewStripsAudioURLs(t *testing.T) {
	repo := &fakeRepo{turns: []types.Turn{
		{Role: types.RoleAssistant, Content: "hello", AudioURL: "/static/audio/a.wav"},
	}}
	svc := newTestService(repo, 100, 1000)

	turns, err := svc.Load(context.Background(), "u", "c", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if turns[0].AudioURL != "" {
		t.Errorf("context view must strip audio urls")
	}
}

func TestContextViewDropsOldestWholeTurns(t *testing.T) {
	repo := &fakeRepo{turns: []types.Turn{
		{Role: types.RoleUser, Content: strings.Repeat("a", 50)},      // oldest, dropped whole
		{Role: types.RoleAssistant, Content: strings.Repeat("b", 40)},
		{Role: types.RoleUser, Content: strings.Repeat("c", 30)},
	}}
	svc := newTestService(repo, 100, 75)

	turns, err := svc.Load(context.Background(), "u", "c", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 newest turns within budget, got %d", len(turns))
	}
	total := 0
	for _, turn := range turns {
		total += len(turn.Content)
		if strings.HasPrefix(turn.Content, "a") {
			t.Errorf("oldest overflowing turn must be entirely absent")
		}
	}
	if total > 75 {
		t.Errorf("context view exceeds budget: %d chars", total)
	}
	// suffix order preserved, oldest kept turn first
	if !strings.HasPrefix(turns[0].Content, "b") || !strings.HasPrefix(turns[1].Content, "c") {
		t.Errorf("context view must be the newest suffix in append order")
	}
}

func TestContextViewNeverClipsMidMessage(t *testing.T) {
	repo := &fakeRepo{turns: []types.Turn{
		{Role: types.RoleUser, Content: strings.Repeat("x", 100)},
	}}
	svc := newTestService(repo, 100, 50)

	turns, err := svc.Load(context.Background(), "u", "c", true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("a turn over budget is dropped whole, never truncated: got %d turns", len(turns))
	}
}

func TestSaveEnforcesRetentionCap(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, 5, 1000)

	turns := make([]types.Turn, 8)
	for i := range turns {
		turns[i] = types.Turn{Role: types.RoleUser, Content: strings.Repeat("m", i+1)}
	}
	if err := svc.Save(context.Background(), "u", "c", turns); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(repo.saved) != 5 {
		t.Fatalf("expected cap of 5 turns, got %d", len(repo.saved))
	}
	if repo.saved[0].Content != turns[3].Content {
		t.Errorf("the most recent turns must be the ones retained")
	}
}

func TestCreateChannelTitlesFromSeedText(t *testing.T) {
	repo := &fakeRepo{}
	svc := newTestService(repo, 100, 1000)

	id, err := svc.CreateChannel(context.Background(), "u", "How do I cook rice? And also pasta.")
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated channel id")
	}
	if repo.created[id] != "How do I cook rice" {
		t.Errorf("expected first-sentence title, got %q", repo.created[id])
	}
}

func TestTitleFromText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", "New chat"},
		{"   ", "New chat"},
		{"short", "short"},
		{"first sentence. second sentence", "first sentence"},
		{strings.Repeat("word ", 30), strings.TrimSpace(strings.Repeat("word ", 12))},
	}
	for _, tc := range cases {
		if got := titleFromText(tc.in, 60); got != tc.want {
			t.Errorf("titleFromText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
